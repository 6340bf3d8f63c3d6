package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/reflexity/ingest/internal/repository"
)

// maxUploadBytes bounds the in-memory part of a multipart upload.
const maxUploadBytes = 32 << 20

// Handler exposes the ingestion pipeline as HTTP endpoints.
type Handler struct {
	service *Service
	logs    repository.IngestionLogRepository
}

// NewHandler wraps the service with the upload and log endpoints.
func NewHandler(service *Service, logs repository.IngestionLogRepository) *Handler {
	return &Handler{service: service, logs: logs}
}

// HandleUpload accepts a multipart upload with a required "file" field and
// runs the ingestion pipeline synchronously.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file field is required: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	result, err := h.service.Ingest(r.Context(), Request{
		FileName: header.Filename,
		Data:     bytes.NewReader(data),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if IsClientError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, fmt.Sprintf("ingestion failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"message":        fmt.Sprintf("file %s ingested into %s", result.FileName, result.TableName),
		"table_name":     result.TableName,
		"rows_processed": result.RowsProcessed,
		"columns":        result.Columns,
		"file_name":      result.FileName,
		"verified_rows":  result.VerifiedRows,
		"status":         result.Status,
	})
}

// HandleLogs lists recorded ingestion problems for a file.
func (h *Handler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.logs == nil {
		writeError(w, http.StatusNotFound, "ingestion logs are not enabled")
		return
	}

	fileName := strings.TrimSpace(r.URL.Query().Get("file"))
	if fileName == "" {
		writeError(w, http.StatusBadRequest, "file query parameter is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.logs.List(r.Context(), fileName, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list ingestion logs: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"file_name": fileName,
		"entries":   entries,
	})
}

// IsClientError reports whether an ingestion error was caused by the
// caller's input rather than by parsing or the database.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrMissingFileName) ||
		errors.Is(err, ErrEmptyFile)
}

// WriteJSON encodes a response payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, map[string]any{"detail": detail})
}
