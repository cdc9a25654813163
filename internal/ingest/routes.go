package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/paper-rag/internal/papers"
)

const pdfMIME = "application/pdf"

// UploadOptions configures the upload endpoint.
type UploadOptions struct {
	// Dir receives the uploaded files before ingestion.
	Dir      string
	MaxBytes int64
}

// RegisterRoutes mounts POST /api/papers/upload.
func RegisterRoutes(r chi.Router, store *papers.Store, batcher *Batcher, opts UploadOptions) {
	r.Post("/api/papers/upload", handleUpload(store, batcher, opts))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// uploadError carries the status a validation failure maps to.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func handleUpload(store *papers.Store, batcher *Batcher, opts UploadOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if opts.MaxBytes > 0 {
			if r.ContentLength > opts.MaxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			writeError(w, http.StatusBadRequest, "no file provided")
			return
		}

		// Everything is validated before anything is written.
		if err := validateUploads(r, store, files); err != nil {
			var ue *uploadError
			if errors.As(err, &ue) {
				writeError(w, ue.status, ue.msg)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		paths := make([]string, 0, len(files))
		for _, fh := range files {
			dst := filepath.Join(opts.Dir, filepath.Base(fh.Filename))
			if err := saveUpload(fh, dst); err != nil {
				log.Error().Err(err).Str("file", fh.Filename).Msg("saving upload")
				writeError(w, http.StatusInternalServerError, "saving upload failed")
				return
			}
			paths = append(paths, dst)
		}

		writeJSON(w, http.StatusOK, batcher.Run(r.Context(), paths))
	}
}

func validateUploads(r *http.Request, store *papers.Store, files []*multipart.FileHeader) error {
	seen := make(map[string]bool, len(files))
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if name == "." || name == string(filepath.Separator) || name == "" {
			return &uploadError{http.StatusBadRequest, "missing filename"}
		}
		if seen[name] {
			return &uploadError{http.StatusBadRequest, fmt.Sprintf("%s uploaded twice", name)}
		}
		seen[name] = true

		mt, err := sniff(fh)
		if err != nil {
			return err
		}
		if !mt.Is(pdfMIME) {
			return &uploadError{http.StatusBadRequest, fmt.Sprintf("%s is %s, not a PDF", name, mt.String())}
		}

		exists, err := store.ExistsByFilename(r.Context(), name)
		if err != nil {
			return err
		}
		if exists {
			return &uploadError{http.StatusConflict, fmt.Sprintf("%s is already ingested", name)}
		}
	}
	return nil
}

func sniff(fh *multipart.FileHeader) (*mimetype.MIME, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mimetype.DetectReader(f)
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
