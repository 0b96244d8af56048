package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"sipc/internal/pack"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Entry is one file of a test pack.
type Entry struct {
	Name string
	Data []byte
}

// WritePack builds a pack archive at path with entries in the given order.
func WritePack(t testing.TB, path string, entries ...Entry) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	w, err := pack.Create(path, 0)
	if err != nil {
		t.Fatalf("pack.Create: %v", err)
	}
	for _, entry := range entries {
		if _, err := w.WriteFile(entry.Name, entry.Data); err != nil {
			t.Fatalf("write entry %s: %v", entry.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close pack: %v", err)
	}
}

// ReadPack returns the entries of the archive at path keyed by name.
func ReadPack(t testing.TB, path string) map[string][]byte {
	t.Helper()

	r, err := pack.OpenReader(path)
	if err != nil {
		t.Fatalf("pack.OpenReader: %v", err)
	}
	defer r.Close()

	out := make(map[string][]byte)
	for _, name := range r.Entries() {
		data, err := r.ReadFile(name)
		if err != nil {
			t.Fatalf("read entry %s: %v", name, err)
		}
		out[name] = data
	}
	return out
}

// gradient paints a deterministic, mostly incompressible test picture.
func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8((x ^ y) * 3), A: 0xff})
		}
	}
	return img
}

// PNG returns an encoded RGBA PNG of the given size.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(width, height)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns an encoded JPEG of the given size.
func JPEG(t testing.TB, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(width, height), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
