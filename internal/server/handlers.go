package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"sipc/internal/contenthash"
	"sipc/internal/deps"
	"sipc/internal/logging"
	"sipc/internal/services"
	"sipc/internal/store"
	"sipc/internal/textutil"
)

// uploadField is the multipart form field carrying the pack.
const uploadField = "file"

// genericFailure is the only detail clients get for unexpected errors.
const genericFailure = "Something went wrong"

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		s.writeError(w, http.StatusBadRequest, "token query parameter is required")
		return
	}
	logger := logging.WithContext(r.Context(), s.logger)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart form with a file field is required")
		return
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		if err != nil {
			s.uploadFailed(w, logger, err)
			return
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}

		sub, err := s.runner.Submit(r.Context(), token, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			s.uploadFailed(w, logger, err)
			return
		}
		logger.Info("upload scheduled",
			logging.String(logging.FieldJobID, sub.JobID),
			logging.String(logging.FieldPackHash, sub.Hash),
			logging.Int64("upload_size", sub.Size),
		)
		s.writeJSON(w, http.StatusOK, true)
		return
	}
}

func (s *Server) uploadFailed(w http.ResponseWriter, logger *slog.Logger, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		return
	}
	logger.Error("upload failed", logging.Error(err), logging.String(logging.FieldErrorKind, services.Classify(err)))
	s.writeError(w, http.StatusInternalServerError, genericFailure)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hash := strings.ToLower(strings.TrimSpace(r.PathValue("hash")))
	if !contenthash.Valid(hash) {
		s.writeError(w, http.StatusNotFound, "Pack not found")
		return
	}
	p, err := s.store.Get(r.Context(), hash)
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Error("pack lookup failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, genericFailure)
		return
	}
	if p == nil {
		s.writeError(w, http.StatusNotFound, "Pack not found")
		return
	}
	switch p.Status {
	case store.StatusPending, store.StatusProcessing:
		s.writeError(w, http.StatusConflict, "Pack is still being compressed")
		return
	case store.StatusFailed:
		s.writeError(w, http.StatusConflict, "Pack compression failed")
		return
	}

	file, err := os.Open(s.runner.OutputPath(hash))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Pack not found")
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, genericFailure)
		return
	}

	filename := textutil.SanitizeFileName(p.Name) + "-compressed.siq"
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	http.ServeContent(w, r, filename, info.ModTime(), file)
}

// contentDisposition names the attachment with an ASCII fallback and the
// RFC 5987 UTF-8 form.
func contentDisposition(filename string) string {
	return `attachment; filename="` + textutil.ASCIIFileName(filename) + `"; filename*=UTF-8''` + encodeExtValue(filename)
}

const upperHex = "0123456789ABCDEF"

// encodeExtValue percent-encodes everything outside the RFC 5987 attr-char set.
func encodeExtValue(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	default:
		return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
	}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Dependencies []DependencyStatus `json:"dependencies"`
	Sessions     int                `json:"sessions"`
	RunningJobs  int                `json:"running_jobs"`
	StorageDir   string             `json:"storage_dir"`
}

// DependencyStatus mirrors deps.Status on the wire.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ffmpeg := deps.CheckFFmpeg(r.Context(), s.cfg.Compress.FFmpegBinary)
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Dependencies: []DependencyStatus{{
			Name:        ffmpeg.Name,
			Command:     ffmpeg.Command,
			Description: ffmpeg.Description,
			Available:   ffmpeg.Available,
			Detail:      ffmpeg.Detail,
		}},
		Sessions:    s.registry.Len(),
		RunningJobs: s.runner.Running(),
		StorageDir:  s.cfg.Paths.StorageDir,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"detail": message})
}
