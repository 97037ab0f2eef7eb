// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/pdf2txt/internal/convert"
	"github.com/pdiddy/pdf2txt/internal/history"
	"github.com/pdiddy/pdf2txt/internal/source"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>PDF to Text Converter</title>
</head>
<body>
<h1>PDF to Text Converter</h1>
<p>Upload multiple PDF files to convert them to text and download as a zip or merged text file.</p>
<form method="post" enctype="multipart/form-data" action="/convert/zip">
<input type="file" name="{{.Field}}" accept="application/pdf,.pdf" multiple>
<p>Up to {{.MaxFiles}} files per upload.</p>
<button type="submit" formaction="/convert/zip">Download all as zip</button>
<button type="submit" formaction="/convert/merged">Download merged text</button>
</form>
</body>
</html>
`))

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

type previewResponse struct {
	RequestID   string                    `json:"request_id"`
	ConvertedAt time.Time                 `json:"converted_at"`
	Summary     types.Summary             `json:"summary"`
	Documents   []types.ConvertedDocument `json:"documents"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, RequestID: RequestID(r.Context())})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTmpl.Execute(w, struct {
		Field    string
		MaxFiles int
	}{source.FormField, s.cfg.MaxFiles})
	if err != nil {
		s.logger.Error("rendering index", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"backend":   s.backend,
		"history":   s.recorder != nil,
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.convertUpload(w, r)
	if !ok {
		return
	}
	data, err := convert.BuildArchive(batch)
	if err != nil {
		s.logger.Error("building archive",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, r, http.StatusInternalServerError, "failed to build archive")
		return
	}
	s.record(r, history.ModeArchive, batch, len(data))
	writeAttachment(w, types.ArchiveMIME, types.ArchiveFileName, data)
}

func (s *Server) handleMerged(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.convertUpload(w, r)
	if !ok {
		return
	}
	data := convert.BuildMerged(batch)
	s.record(r, history.ModeMerged, batch, len(data))
	writeAttachment(w, types.MergedMIME+"; charset=utf-8", types.MergedFileName, data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.convertUpload(w, r)
	if !ok {
		return
	}
	s.record(r, history.ModePreview, batch, 0)

	docs := batch.Documents
	if docs == nil {
		docs = []types.ConvertedDocument{}
	}
	respondJSON(w, http.StatusOK, previewResponse{
		RequestID:   RequestID(r.Context()),
		ConvertedAt: batch.ConvertedAt,
		Summary:     batch.Summary(),
		Documents:   docs,
	})
}

// convertUpload reads the multipart upload and converts it. On a read
// failure it writes the error response and returns false; nothing else has
// been written at that point.
func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) (types.Batch, bool) {
	requestID := RequestID(r.Context())
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		s.logger.Warn("rejecting upload", zap.String("request_id", requestID), zap.Error(err))
		respondError(w, r, http.StatusBadRequest, "expected a multipart/form-data upload")
		return types.Batch{}, false
	}

	docs, err := source.FromMultipart(mr, source.Limits{MaxFiles: s.cfg.MaxFiles, MaxBytes: s.cfg.MaxUploadBytes})
	if err != nil {
		status := uploadErrorStatus(err)
		s.logger.Warn("reading upload failed",
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.Error(err),
		)
		respondError(w, r, status, err.Error())
		return types.Batch{}, false
	}

	batch := s.conv.ConvertAll(r.Context(), docs)
	sum := batch.Summary()
	s.logger.Info("upload converted",
		zap.String("request_id", requestID),
		zap.Int("documents", batch.Len()),
		zap.Int("converted", sum.Converted),
		zap.Int("partial", sum.Partial),
		zap.Int("failed", sum.Failed),
	)
	return batch, true
}

func uploadErrorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, source.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) record(r *http.Request, mode history.Mode, batch types.Batch, outputBytes int) {
	if s.recorder == nil {
		return
	}
	run := history.NewRun(mode, s.backend, batch, int64(outputBytes))
	if err := s.recorder.Record(r.Context(), run); err != nil {
		s.logger.Warn("recording history failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
