package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reflexity/ingest/internal/domain"
	"github.com/reflexity/ingest/internal/ingestion"
	"github.com/reflexity/ingest/internal/worker"

	"github.com/google/uuid"
)

// RawBucket is the storage bucket whose new objects trigger ingestion.
const RawBucket = "raw"

// Downloader fetches object bytes from the storage provider.
type Downloader interface {
	Download(ctx context.Context, bucket, path string) ([]byte, error)
}

// Ingestor runs the ingestion pipeline for one file.
type Ingestor interface {
	Ingest(ctx context.Context, req ingestion.Request) (domain.IngestResult, error)
}

// Handler receives storage-provider notifications and dispatches matching
// ones to the background worker pool.
type Handler struct {
	downloader Downloader
	ingestor   Ingestor
	pool       *worker.Pool
	logger     *slog.Logger
}

// NewHandler wires the webhook endpoint.
func NewHandler(downloader Downloader, ingestor Ingestor, pool *worker.Pool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{downloader: downloader, ingestor: ingestor, pool: pool, logger: logger}
}

// HandleEvent processes one storage notification. Only an INSERT into the
// objects table for the raw bucket triggers ingestion; every other payload is
// acknowledged and dropped. The 202 response says nothing about whether the
// ingestion later succeeds; that outcome is visible in the logs, the
// ingestion audit table, and the job-status endpoint.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ingestion.WriteJSON(w, http.StatusMethodNotAllowed, map[string]any{"detail": "method not allowed"})
		return
	}

	var event domain.StorageWebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		ingestion.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"detail": fmt.Sprintf("malformed webhook payload: %v", err),
		})
		return
	}

	if !event.ShouldIngest(RawBucket) {
		ingestion.WriteJSON(w, http.StatusOK, map[string]any{
			"message": "event ignored",
			"type":    event.Type,
			"table":   event.Table,
		})
		return
	}

	fileName := objectFileName(event)
	filePath := event.ObjectPath()
	if fileName == "" || filePath == "" {
		ingestion.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"detail": "webhook record is missing the object name",
		})
		return
	}

	jobID, err := h.pool.Submit(fmt.Sprintf("ingest %s/%s", RawBucket, filePath), func(ctx context.Context) (any, error) {
		return h.ingestObject(ctx, fileName, filePath)
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			ingestion.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"detail": "ingestion queue is full, retry later",
			})
			return
		}
		ingestion.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"detail": fmt.Sprintf("failed to enqueue ingestion: %v", err),
		})
		return
	}

	h.logger.Info("webhook ingestion enqueued", "file", fileName, "path", filePath, "job_id", jobID)

	ingestion.WriteJSON(w, http.StatusAccepted, map[string]any{
		"message":   fmt.Sprintf("ingestion of %s accepted", fileName),
		"file_name": fileName,
		"file_path": filePath,
		"status":    "processing",
		"job_id":    jobID,
	})
}

// HandleJobStatus reports the state of one background ingestion job.
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ingestion.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"detail": fmt.Sprintf("invalid job id: %v", err),
		})
		return
	}

	job, ok := h.pool.Job(id)
	if !ok {
		ingestion.WriteJSON(w, http.StatusNotFound, map[string]any{"detail": "job not found"})
		return
	}

	ingestion.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) ingestObject(ctx context.Context, fileName, filePath string) (domain.IngestResult, error) {
	payload, err := h.downloader.Download(ctx, RawBucket, filePath)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("failed to download %s/%s: %w", RawBucket, filePath, err)
	}

	result, err := h.ingestor.Ingest(ctx, ingestion.Request{
		FileName: fileName,
		Data:     bytes.NewReader(payload),
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// objectFileName picks the object's base name: the last path token when
// present, otherwise the record name.
func objectFileName(event domain.StorageWebhookEvent) string {
	if tokens := event.Record.PathTokens; len(tokens) > 0 {
		return tokens[len(tokens)-1]
	}
	if idx := strings.LastIndex(event.Record.Name, "/"); idx >= 0 {
		return event.Record.Name[idx+1:]
	}
	return event.Record.Name
}
