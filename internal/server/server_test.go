package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sipc/internal/compressor"
	"sipc/internal/config"
	"sipc/internal/contenthash"
	"sipc/internal/events"
	"sipc/internal/jobs"
	"sipc/internal/logging"
	"sipc/internal/manifest"
	"sipc/internal/pack"
	"sipc/internal/server"
	"sipc/internal/store"
	"sipc/internal/testsupport"
	"sipc/internal/transform"
)

type passthrough struct{}

func (passthrough) Optimize(_ context.Context, _ manifest.Kind, ext string, data []byte) transform.Outcome {
	return transform.Outcome{Ext: ext, Data: data}
}

type env struct {
	cfg      *config.Config
	store    *store.Store
	registry *events.Registry
	runner   *jobs.Runner
	server   *server.Server
	http     *httptest.Server
}

func newEnv(t *testing.T, opts ...testsupport.ConfigOption) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	reg := events.NewRegistry()
	runner, err := jobs.New(cfg, st, reg, compressor.New(passthrough{}, 6, logging.NewNop()), logging.NewNop())
	if err != nil {
		t.Fatalf("jobs.New failed: %v", err)
	}
	srv, err := server.New(cfg, st, reg, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		runner.Wait()
	})
	return &env{cfg: cfg, store: st, registry: reg, runner: runner, server: srv, http: ts}
}

func packBytes(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.siq")
	testsupport.WritePack(t, path,
		testsupport.Entry{Name: pack.ManifestName, Data: []byte(`<package name="P" version="5" logo="@logo.png"><rounds/></package>`)},
		testsupport.Entry{Name: "Images/logo.png", Data: []byte("logo")},
	)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pack: %v", err)
	}
	return data
}

func upload(t *testing.T, url, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func dialEvents(t *testing.T, e *env, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var frames []map[string]any
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("expected normal close, got %v", err)
			}
			return frames
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("decode frame %s: %v", data, err)
		}
		frames = append(frames, frame)
	}
}

func TestCompressRequiresToken(t *testing.T) {
	e := newEnv(t)
	resp := upload(t, e.http.URL+"/compress", "a.siq", []byte("x"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCompressRequiresFile(t *testing.T) {
	e := newEnv(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("note", "no file")
	_ = mw.Close()
	resp, err := http.Post(e.http.URL+"/compress?token=t", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCompressRejectsOversizedUpload(t *testing.T) {
	e := newEnv(t)
	e.cfg.Server.MaxUploadMB = 1

	resp := upload(t, e.http.URL+"/compress?token=big", "big.siq", bytes.Repeat([]byte{1}, 1<<20+64<<10))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestUploadStreamAndDownload(t *testing.T) {
	e := newEnv(t)
	conn := dialEvents(t, e, "session-1")
	data := packBytes(t)
	hash := contenthash.Sum(data)

	resp := upload(t, e.http.URL+"/compress?token=session-1", "Квиз Café.siq", data)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "true" {
		t.Fatalf("upload response %d %q", resp.StatusCode, body)
	}

	frames := readFrames(t, conn)
	if len(frames) < 3 {
		t.Fatalf("expected info, log, and result frames, got %v", frames)
	}
	if frames[0]["type"] != "info" || frames[0]["version"] != float64(5) {
		t.Fatalf("unexpected first frame: %v", frames[0])
	}
	last := frames[len(frames)-1]
	if last["type"] != "result" || last["url"] != jobs.ResultURL(hash) {
		t.Fatalf("unexpected last frame: %v", last)
	}
	if e.registry.Len() != 0 {
		t.Fatalf("finished session should be released, %d left", e.registry.Len())
	}

	dl, err := http.Get(e.http.URL + jobs.ResultURL(hash))
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dl.StatusCode)
	}
	disposition := dl.Header.Get("Content-Disposition")
	if !strings.Contains(disposition, `filename="____ Cafe-compressed.siq"`) {
		t.Fatalf("missing ASCII fallback: %s", disposition)
	}
	if !strings.Contains(disposition, "filename*=UTF-8''%D0%9A%D0%B2%D0%B8%D0%B7%20Caf%C3%A9-compressed.siq") {
		t.Fatalf("missing UTF-8 filename: %s", disposition)
	}
	archive, _ := io.ReadAll(dl.Body)
	if !bytes.HasPrefix(archive, []byte("PK")) {
		t.Fatal("download is not a zip archive")
	}
}

func TestDownloadStatuses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pending := strings.Repeat("a", contenthash.HexLength)
	failed := strings.Repeat("b", contenthash.HexLength)
	missing := strings.Repeat("c", contenthash.HexLength)
	done := strings.Repeat("d", contenthash.HexLength)
	testsupport.AddPack(t, e.store, pending, "Pending")
	testsupport.AddPack(t, e.store, failed, "Failed")
	testsupport.AddPack(t, e.store, done, "Done")
	if err := e.store.SetStatus(ctx, failed, store.StatusFailed, "boom"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := e.store.SetStatus(ctx, done, store.StatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	cases := map[string]int{
		"not-a-hash": http.StatusNotFound,
		missing:      http.StatusNotFound,
		pending:      http.StatusConflict,
		failed:       http.StatusConflict,
		done:         http.StatusNotFound,
	}
	for hash, want := range cases {
		resp, err := http.Get(e.http.URL + "/download/" + hash)
		if err != nil {
			t.Fatalf("GET %s: %v", hash, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("download %s status = %d, want %d", hash, resp.StatusCode, want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(t)
	req, _ := http.NewRequest(http.MethodOptions, e.http.URL+"/compress?token=x", nil)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Fatalf("allow headers = %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	e := newEnv(t)
	e.cfg.Server.AllowedOrigins = []string{"http://allowed.example"}

	req, _ := http.NewRequest(http.MethodOptions, e.http.URL+"/compress", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not be echoed")
	}
}

func TestStatusEndpoint(t *testing.T) {
	e := newEnv(t, testsupport.WithFFmpegScript("echo 'ffmpeg version test'\n"))
	e.registry.Acquire("waiting")

	resp, err := http.Get(e.http.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	var payload server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if payload.Sessions != 1 || payload.RunningJobs != 0 {
		t.Fatalf("unexpected status: %+v", payload)
	}
	if len(payload.Dependencies) != 1 || !payload.Dependencies[0].Available || payload.Dependencies[0].Detail != "ffmpeg version test" {
		t.Fatalf("unexpected dependencies: %+v", payload.Dependencies)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestStartLocksStorage(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.server.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer e.server.Stop()
	if e.server.Addr() == "" {
		t.Fatal("expected bound address")
	}

	other, err := server.New(e.cfg, e.store, e.registry, e.runner, logging.NewNop())
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("second server should not acquire the storage lock")
	}

	resp, err := http.Get("http://" + e.server.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET live status: %v", err)
	}
	resp.Body.Close()

	e.server.Stop()
	if _, err := http.Get("http://" + e.server.Addr() + "/api/status"); err == nil {
		t.Fatal("expected connection failure after Stop")
	}
}
