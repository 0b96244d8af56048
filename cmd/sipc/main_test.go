package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sipc/internal/config"
	"sipc/internal/pack"
	"sipc/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeSamplePack(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "Quiz Night.siq")
	testsupport.WritePack(t, path,
		testsupport.Entry{Name: pack.ManifestName, Data: []byte(`<package name="Quiz" version="5" logo="@logo.png"><rounds><round><themes><theme><questions><question><params><param><item type="image">missing.jpg</item></param></params></question></questions></theme></themes></round></rounds></package>`)},
		testsupport.Entry{Name: "Images/logo.png", Data: testsupport.PNG(t, 200, 120)},
		testsupport.Entry{Name: "Texts/authors.xml", Data: []byte("<Authors/>")},
	)
	return path
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.StorageDir)
	requireContains(t, out, "[compress]")
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[compress]\nwebp_quality = 500\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"packs"}, path); err == nil {
		t.Fatal("expected invalid config to fail")
	}
}

func TestCompressLocal(t *testing.T) {
	env := setupCLITestEnv(t)
	in := writeSamplePack(t, t.TempDir())

	out, _, err := runCLI(t, []string{"compress", in}, env.configPath)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	requireContains(t, out, "Pack v5")
	requireContains(t, out, "image/logo.png -> ")
	requireContains(t, out, "image/missing.jpg: File not found")
	requireContains(t, out, "Write Texts/authors.xml...")
	requireContains(t, out, "Summary")

	expected := defaultOutputPath(in)
	if _, err := os.Stat(expected); err != nil {
		t.Fatalf("expected output at %s: %v", expected, err)
	}
}

func TestCompressJSONLines(t *testing.T) {
	env := setupCLITestEnv(t)
	in := writeSamplePack(t, t.TempDir())
	target := filepath.Join(t.TempDir(), "out.siq")

	out, _, err := runCLI(t, []string{"compress", in, "--json", "--output", target, "--level", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("compress --json: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected several event lines, got %q", out)
	}
	var first, last map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("decode last line: %v", err)
	}
	if first["type"] != "info" || last["type"] != "result" || last["url"] != target {
		t.Fatalf("unexpected stream framing: %v ... %v", first, last)
	}
}

func TestCompressRejectsBadLevel(t *testing.T) {
	env := setupCLITestEnv(t)
	in := writeSamplePack(t, t.TempDir())
	if _, _, err := runCLI(t, []string{"compress", in, "--level", "12"}, env.configPath); err == nil {
		t.Fatal("expected invalid level to fail")
	}
}

func TestPacksListsRegistry(t *testing.T) {
	env := setupCLITestEnv(t)
	st := testsupport.MustOpenStore(t, env.cfg)
	testsupport.AddPack(t, st, strings.Repeat("ab", 32), "Friday Quiz")

	out, _, err := runCLI(t, []string{"packs"}, env.configPath)
	if err != nil {
		t.Fatalf("packs: %v", err)
	}
	requireContains(t, out, "Friday Quiz")
	requireContains(t, out, "Pending")
	requireContains(t, out, "abababababab")

	out, _, err = runCLI(t, []string{"packs", "--status", "completed"}, env.configPath)
	if err != nil {
		t.Fatalf("packs --status: %v", err)
	}
	requireContains(t, out, "No packs")

	out, _, err = runCLI(t, []string{"packs", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("packs --json: %v", err)
	}
	var views []packView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode packs json: %v", err)
	}
	if len(views) != 1 || views[0].Status != "pending" {
		t.Fatalf("unexpected views: %+v", views)
	}

	if _, _, err := runCLI(t, []string{"packs", "--status", "archived"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestDepsReportsFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFFmpegScript("echo 'ffmpeg version 9.9'\n"))
	out, _, err := runCLI(t, []string{"deps"}, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "ffmpeg version 9.9")
	requireContains(t, out, "yes")
}

func TestDefaultOutputPath(t *testing.T) {
	got := defaultOutputPath(filepath.Join("packs", "My Pack.siq"))
	want := filepath.Join("packs", "My Pack-compressed.siq")
	if got != want {
		t.Fatalf("defaultOutputPath = %q, want %q", got, want)
	}
}
