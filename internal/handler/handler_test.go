package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/orderload-system/internal/model"
	"github.com/mmeshcher/orderload-system/internal/service"
)

type stubRunner struct {
	startErr  error
	startPath string

	stopErr error

	status model.RunStatus

	events chan model.Event
}

func (s *stubRunner) Start(path, storeDomain, accessToken string) error {
	s.startPath = path
	return s.startErr
}

func (s *stubRunner) Stop() error {
	return s.stopErr
}

func (s *stubRunner) Status() model.RunStatus {
	return s.status
}

func (s *stubRunner) Events() <-chan model.Event {
	return s.events
}

func newTestHandler(t *testing.T, runner Runner, uploadDir string) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(runner, logger, uploadDir)
}

func TestUpload_StoresFile(t *testing.T) {
	dir := t.TempDir()
	h := newTestHandler(t, &stubRunner{}, dir)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "orders.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("customer_email\na@b.com\n")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	stored := resp["filename"]
	if stored == "" {
		t.Fatalf("response must carry the stored filename")
	}
	if !strings.HasSuffix(stored, "_orders.csv") {
		t.Fatalf("stored name = %q, want unique prefix before original name", stored)
	}

	data, err := os.ReadFile(filepath.Join(dir, stored))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "customer_email\na@b.com\n" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

func TestUpload_NoFile(t *testing.T) {
	h := newTestHandler(t, &stubRunner{}, t.TempDir())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func startBody(t *testing.T, filename string) *bytes.Reader {
	t.Helper()

	body, err := json.Marshal(startRequest{
		Filename:    filename,
		AccessToken: "token",
		StoreDomain: "shop.example.com",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(body)
}

func TestStartImport_Accepted(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{}
	h := newTestHandler(t, runner, dir)

	req := httptest.NewRequest(http.MethodPost, "/api/import/start", startBody(t, "orders.csv"))
	rec := httptest.NewRecorder()

	h.StartImport(rec, req)

	if rec.Result().StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusAccepted)
	}
	if runner.startPath != filepath.Join(dir, "orders.csv") {
		t.Fatalf("start path = %q, want file inside upload dir", runner.startPath)
	}
}

func TestStartImport_AlreadyRunning(t *testing.T) {
	runner := &stubRunner{startErr: service.ErrAlreadyRunning}
	h := newTestHandler(t, runner, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/import/start", startBody(t, "orders.csv"))
	rec := httptest.NewRecorder()

	h.StartImport(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestStartImport_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "not json",
			body: "not-json",
		},
		{
			name: "missing token",
			body: `{"filename":"orders.csv","store_domain":"shop.example.com"}`,
		},
		{
			name: "missing domain",
			body: `{"filename":"orders.csv","access_token":"token"}`,
		},
		{
			name: "path traversal",
			body: `{"filename":"../../etc/passwd","access_token":"token","store_domain":"shop.example.com"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubRunner{}, t.TempDir())

			req := httptest.NewRequest(http.MethodPost, "/api/import/start", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.StartImport(rec, req)

			if rec.Result().StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestStopImport(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		h := newTestHandler(t, &stubRunner{}, t.TempDir())

		rec := httptest.NewRecorder()
		h.StopImport(rec, httptest.NewRequest(http.MethodPost, "/api/import/stop", nil))

		if rec.Result().StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusOK)
		}
	})

	t.Run("idle", func(t *testing.T) {
		h := newTestHandler(t, &stubRunner{stopErr: service.ErrNotRunning}, t.TempDir())

		rec := httptest.NewRecorder()
		h.StopImport(rec, httptest.NewRequest(http.MethodPost, "/api/import/stop", nil))

		if rec.Result().StatusCode != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
		}
	})
}

func TestStatus(t *testing.T) {
	runner := &stubRunner{status: model.RunStatus{Running: true, Current: 3, Total: 10}}
	h := newTestHandler(t, runner, t.TempDir())

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got model.RunStatus
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Running || got.Current != 3 || got.Total != 10 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestEvents_StreamsSSE(t *testing.T) {
	runner := &stubRunner{events: make(chan model.Event, 1)}
	h := newTestHandler(t, runner, t.TempDir())

	ts := httptest.NewServer(h.SetupRouter())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/import/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q, want text/event-stream", got)
	}

	runner.events <- model.Event{Type: model.EventProgress, Current: 2, Total: 10}

	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}

	if len(lines) != 2 {
		t.Fatalf("sse frame = %v, want event and data lines", lines)
	}
	if lines[0] != "event: progress" {
		t.Fatalf("event line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "data: ") || !strings.Contains(lines[1], `"current":2`) {
		t.Fatalf("data line = %q", lines[1])
	}
}
