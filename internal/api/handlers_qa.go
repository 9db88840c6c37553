package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsense/internal/domain"
	"github.com/dgallion1/docsense/internal/pipeline"
)

// modelFailureMessage is shown to clients in place of inference error details.
const modelFailureMessage = "The model failed to produce an answer. Please try again later."

type askRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// handleAskPDF answers a question about an uploaded PDF. Extraction and model
// failures are reported as {"error": ...} with status 200, which is what the
// browser frontend expects.
func (s *Server) handleAskPDF(w http.ResponseWriter, r *http.Request) {
	up, question, ok := s.readUpload(w, r, true)
	if !ok {
		return
	}

	res, err := s.svc.AskDocument(r.Context(), question, up)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrExtractionFailed), errors.Is(err, domain.ErrModelInference):
			s.log.Warn("ask-pdf failed", "filename", up.Filename, "error", err)
			writeJSON(w, http.StatusOK, map[string]string{"error": publicMessage(err)})
		default:
			s.writeError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename": up.Filename,
		"question": question,
		"answer":   res.Result.Answer,
	})
}

// handleAskFile answers a question about any supported document format.
func (s *Server) handleAskFile(w http.ResponseWriter, r *http.Request) {
	up, question, ok := s.readUpload(w, r, false)
	if !ok {
		return
	}

	res, err := s.svc.AskDocument(r.Context(), question, up)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":  up.Filename,
		"question":  question,
		"answer":    res.Result.Answer,
		"confident": res.Result.Confident,
		"score":     res.Result.Score,
	})
}

// handleAsk answers a question about a caller-supplied context.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(w, r, &req, s.cfg.MaxUploadBytes) {
		return
	}
	res, err := s.svc.Ask(r.Context(), req.Question, req.Context)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExtract returns the cleaned, page-delimited text of a PDF.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	up, _, ok := s.readUpload(w, r, true)
	if !ok {
		return
	}
	doc, err := s.svc.ExtractText(r.Context(), up)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// readUpload reads the multipart "file" and "question" fields. On failure it
// writes the response and returns ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, pdfOnly bool) (pipeline.Upload, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return pipeline.Upload{}, "", false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return pipeline.Upload{}, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return pipeline.Upload{}, "", false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return pipeline.Upload{}, "", false
	}

	return pipeline.Upload{
		Filename:  sanitizeFilename(header.Filename),
		MediaType: header.Header.Get("Content-Type"),
		Data:      data,
		PDFOnly:   pdfOnly,
	}, r.FormValue("question"), true
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.log.Error("request failed", "status", code, "error", err)
	}
	jsonError(w, publicMessage(err), code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrModelInference):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrModelInference):
		return modelFailureMessage
	case statusFor(err) == http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
