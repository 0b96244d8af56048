package pack

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ManifestName is the archive entry holding the pack manifest.
const ManifestName = "content.xml"

// AuxiliaryFiles are copied verbatim into the output when present.
var AuxiliaryFiles = []string{"Texts/sources.xml", "Texts/authors.xml", "quality.marker"}

// fixedModTime stamps every written entry so identical inputs yield identical archives.
var fixedModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrEntryNotFound reports that none of the requested entries could be opened.
var ErrEntryNotFound = errors.New("archive entry not found")

// Reader provides read access to a source pack.
type Reader struct {
	rc      *zip.ReadCloser
	files   map[string]*zip.File
	entries []string
	size    int64
}

// OpenReader opens the pack archive at path.
func OpenReader(path string) (*Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat pack: %w", err)
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open pack archive: %w", err)
	}
	r := &Reader{
		rc:      rc,
		files:   make(map[string]*zip.File, len(rc.File)),
		entries: make([]string, 0, len(rc.File)),
		size:    info.Size(),
	}
	for _, f := range rc.File {
		if _, dup := r.files[f.Name]; dup {
			continue
		}
		r.files[f.Name] = f
		r.entries = append(r.entries, f.Name)
	}
	return r, nil
}

// Entries lists entry paths in archive order.
func (r *Reader) Entries() []string {
	return append([]string(nil), r.entries...)
}

// Size returns the size of the archive file in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// ReadFile returns the decompressed contents of the named entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", name, err)
	}
	return data, nil
}

// ReadFirst returns the first candidate that can be opened and read, together
// with the entry path it came from. A candidate that exists but fails to read
// counts as missing.
func (r *Reader) ReadFirst(candidates []string) (string, []byte, error) {
	for _, name := range candidates {
		data, err := r.ReadFile(name)
		if err != nil {
			continue
		}
		return name, data, nil
	}
	return "", nil, ErrEntryNotFound
}

// Close releases the underlying archive.
func (r *Reader) Close() error {
	if r == nil || r.rc == nil {
		return nil
	}
	return r.rc.Close()
}

// Writer builds the destination pack.
type Writer struct {
	file    *os.File
	zw      *zip.Writer
	method  uint16
	written map[string]struct{}
	closed  bool
}

// Create starts a new archive at path. Level follows flate: 1 is fastest,
// 9 is smallest, and 0 stores entries without compression.
func Create(path string, level int) (*Writer, error) {
	if level < flate.NoCompression || level > flate.BestCompression {
		return nil, fmt.Errorf("compression level %d out of range", level)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create pack archive: %w", err)
	}
	zw := zip.NewWriter(file)
	method := zip.Deflate
	if level == flate.NoCompression {
		method = zip.Store
	} else {
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}
	return &Writer{file: file, zw: zw, method: method, written: make(map[string]struct{})}, nil
}

// WriteFile adds an entry. Writing a name that already exists is a no-op and
// reports false.
func (w *Writer) WriteFile(name string, data []byte) (bool, error) {
	if _, ok := w.written[name]; ok {
		return false, nil
	}
	header := &zip.FileHeader{Name: name, Method: w.method}
	header.Modified = fixedModTime
	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return false, fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := entry.Write(data); err != nil {
		return false, fmt.Errorf("write entry %s: %w", name, err)
	}
	w.written[name] = struct{}{}
	return true, nil
}

// Has reports whether name was already written.
func (w *Writer) Has(name string) bool {
	_, ok := w.written[name]
	return ok
}

// Close finalises the central directory and closes the file. It is safe to
// call more than once.
func (w *Writer) Close() error {
	if w == nil || w.closed {
		return nil
	}
	w.closed = true
	zipErr := w.zw.Close()
	fileErr := w.file.Close()
	if zipErr != nil {
		return fmt.Errorf("finalize pack archive: %w", zipErr)
	}
	if fileErr != nil && !errors.Is(fileErr, fs.ErrClosed) {
		return fmt.Errorf("close pack archive: %w", fileErr)
	}
	return nil
}
