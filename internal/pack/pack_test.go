package pack_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"sipc/internal/pack"
)

func writeArchive(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	w, err := pack.Create(path, 9)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for name, data := range entries {
		if _, err := w.WriteFile(name, data); err != nil {
			t.Fatalf("WriteFile %s failed: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestReaderResolvesFirstCandidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.siq")
	writeArchive(t, path, map[string][]byte{
		"content.xml":         []byte("<package/>"),
		"Images/a%20b.png":    []byte("png"),
		"Images/other.jpg":    []byte("jpg"),
		"Texts/authors.xml":   []byte("<authors/>"),
		"Audio/track%201.mp3": []byte("mp3"),
	})

	r, err := pack.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer r.Close()

	if len(r.Entries()) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(r.Entries()))
	}
	info, _ := os.Stat(path)
	if r.Size() != info.Size() {
		t.Fatalf("expected size %d, got %d", info.Size(), r.Size())
	}

	name, data, err := r.ReadFirst([]string{"Images/missing.png", "Images/a%20b.png", "Images/other.jpg"})
	if err != nil {
		t.Fatalf("ReadFirst failed: %v", err)
	}
	if name != "Images/a%20b.png" || string(data) != "png" {
		t.Fatalf("unexpected resolution %q -> %q", name, data)
	}

	if _, _, err := r.ReadFirst([]string{"Images/none.png"}); !errors.Is(err, pack.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if _, err := r.ReadFile("quality.marker"); !errors.Is(err, pack.ErrEntryNotFound) {
		t.Fatalf("expected missing auxiliary file to report not found, got %v", err)
	}
}

func TestWriterDeduplicatesNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.siq")
	w, err := pack.Create(path, 9)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	first, err := w.WriteFile("Images/abc.webp", []byte("one"))
	if err != nil || !first {
		t.Fatalf("first write: wrote=%v err=%v", first, err)
	}
	second, err := w.WriteFile("Images/abc.webp", []byte("two"))
	if err != nil || second {
		t.Fatalf("second write: wrote=%v err=%v", second, err)
	}
	if !w.Has("Images/abc.webp") {
		t.Fatal("expected Has to report written entry")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 {
		t.Fatalf("expected a single entry, got %d", len(zr.File))
	}
	if zr.File[0].Method != zip.Deflate {
		t.Fatalf("expected deflate entries, got method %d", zr.File[0].Method)
	}
}

func TestWriterLevelZeroStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stored.siq")
	payload := bytes.Repeat([]byte("x"), 4096)
	w, err := pack.Create(path, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.WriteFile(pack.ManifestName, payload); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer zr.Close()
	if zr.File[0].Method != zip.Store {
		t.Fatalf("expected stored entry, got method %d", zr.File[0].Method)
	}
}

func TestCreateRejectsBadLevel(t *testing.T) {
	if _, err := pack.Create(filepath.Join(t.TempDir(), "x.siq"), 12); err == nil {
		t.Fatal("expected error for out-of-range level")
	}
}
