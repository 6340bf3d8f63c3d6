package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reflexity/ingest/internal/domain"
	"github.com/reflexity/ingest/internal/ingestion"
	"github.com/reflexity/ingest/internal/worker"
)

type stubDownloader struct {
	mu      sync.Mutex
	calls   []string
	payload []byte
	err     error
}

func (s *stubDownloader) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, bucket+"/"+path)
	return s.payload, s.err
}

type stubIngestor struct {
	mu       sync.Mutex
	requests []ingestion.Request
	result   domain.IngestResult
	err      error
}

func (s *stubIngestor) Ingest(ctx context.Context, req ingestion.Request) (domain.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.result, s.err
}

func (s *stubIngestor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func postEvent(t *testing.T, handler *Handler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)
	return rec
}

func newTestHandler(t *testing.T, downloader *stubDownloader, ingestor *stubIngestor) *Handler {
	t.Helper()
	pool := worker.NewPool(1, 4, nil)
	pool.Start(context.Background())
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })
	return NewHandler(downloader, ingestor, pool, nil)
}

func TestHandleEventIgnoresNonInsert(t *testing.T) {
	ingestor := &stubIngestor{}
	handler := newTestHandler(t, &stubDownloader{}, ingestor)

	rec := postEvent(t, handler, `{"type":"UPDATE","table":"objects","record":{"bucket_id":"raw","name":"x.csv"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ingestor.callCount() != 0 {
		t.Error("ingestion must not run for non-INSERT events")
	}
}

func TestHandleEventIgnoresOtherBuckets(t *testing.T) {
	ingestor := &stubIngestor{}
	handler := newTestHandler(t, &stubDownloader{}, ingestor)

	rec := postEvent(t, handler, `{"type":"INSERT","table":"objects","record":{"bucket_id":"avatars","name":"x.csv"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ingestor.callCount() != 0 {
		t.Error("ingestion must not run for other buckets")
	}
}

func TestHandleEventMalformedPayload(t *testing.T) {
	handler := newTestHandler(t, &stubDownloader{}, &stubIngestor{})

	rec := postEvent(t, handler, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleEventMissingObjectName(t *testing.T) {
	handler := newTestHandler(t, &stubDownloader{}, &stubIngestor{})

	rec := postEvent(t, handler, `{"type":"INSERT","table":"objects","record":{"bucket_id":"raw"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleEventTriggersBackgroundIngestion(t *testing.T) {
	downloader := &stubDownloader{payload: []byte("a,b\n1,2\n")}
	ingestor := &stubIngestor{result: domain.IngestResult{TableName: "raw_sales_csv_1", Status: domain.IngestStatusSuccess}}
	handler := newTestHandler(t, downloader, ingestor)

	rec := postEvent(t, handler, `{"type":"INSERT","table":"objects","record":{"bucket_id":"raw","name":"uploads/sales.csv","path_tokens":["uploads","sales.csv"],"id":"obj-1"}}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var ack struct {
		FileName string `json:"file_name"`
		FilePath string `json:"file_path"`
		Status   string `json:"status"`
		JobID    string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.FileName != "sales.csv" || ack.FilePath != "uploads/sales.csv" || ack.Status != "processing" {
		t.Errorf("unexpected ack: %+v", ack)
	}

	// The 202 says nothing about the outcome; poll the job for completion.
	deadline := time.Now().Add(5 * time.Second)
	for ingestor.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ingestor.callCount() != 1 {
		t.Fatal("background ingestion never ran")
	}

	statusReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/ingest-jobs/%s", ack.JobID), nil)
	statusReq.SetPathValue("id", ack.JobID)
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		statusRec := httptest.NewRecorder()
		handler.HandleJobStatus(statusRec, statusReq)
		if statusRec.Code != http.StatusOK {
			t.Fatalf("job status = %d, body = %s", statusRec.Code, statusRec.Body.String())
		}
		var job struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(statusRec.Body.Bytes(), &job); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if job.Status == string(worker.StatusSucceeded) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reported success")
}

func TestHandleEventQueueFull(t *testing.T) {
	downloader := &stubDownloader{payload: []byte("a\n1\n")}
	ingestor := &stubIngestor{}

	// Unstarted pool with a single slot: the second trigger finds it full.
	pool := worker.NewPool(1, 1, nil)
	handler := NewHandler(downloader, ingestor, pool, nil)

	payload := `{"type":"INSERT","table":"objects","record":{"bucket_id":"raw","name":"f.csv","path_tokens":["f.csv"]}}`
	if rec := postEvent(t, handler, payload); rec.Code != http.StatusAccepted {
		t.Fatalf("first event: status = %d", rec.Code)
	}
	if rec := postEvent(t, handler, payload); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("second event: status = %d, want 503", rec.Code)
	}
}

func TestHandleJobStatusUnknownID(t *testing.T) {
	handler := newTestHandler(t, &stubDownloader{}, &stubIngestor{})

	req := httptest.NewRequest(http.MethodGet, "/api/ingest-jobs/8b8f9f3e-8a4c-4f9f-9a3d-111111111111", nil)
	req.SetPathValue("id", "8b8f9f3e-8a4c-4f9f-9a3d-111111111111")
	rec := httptest.NewRecorder()
	handler.HandleJobStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
