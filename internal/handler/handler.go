// Package handler содержит HTTP-обработчики API сервиса загрузки заказов.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/orderload-system/internal/model"
	"github.com/mmeshcher/orderload-system/internal/service"
)

// Лимит размера загружаемого исходного файла.
const maxUploadSize = 32 << 20

// Runner определяет контракт движка загрузки, используемый HTTP-обработчиками.
type Runner interface {
	Start(path, storeDomain, accessToken string) error
	Stop() error
	Status() model.RunStatus
	Events() <-chan model.Event
}

// Handler реализует HTTP-обработчики API сервиса загрузки заказов.
type Handler struct {
	runner    Runner
	logger    *zap.Logger
	uploadDir string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(runner Runner, logger *zap.Logger, uploadDir string) *Handler {
	return &Handler{
		runner:    runner,
		logger:    logger,
		uploadDir: uploadDir,
	}
}

// Upload принимает исходный файл и сохраняет его в каталоге загрузок под
// уникальным именем.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("create upload dir", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	storedName := fmt.Sprintf("%s_%s", uuid.NewString(), filepath.Base(header.Filename))

	dst, err := os.Create(filepath.Join(h.uploadDir, storedName))
	if err != nil {
		h.logger.Error("create uploaded file", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error("write uploaded file", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"filename": storedName}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type startRequest struct {
	Filename    string `json:"filename"`
	AccessToken string `json:"access_token"`
	StoreDomain string `json:"store_domain"`
}

// StartImport запускает прогон по ранее загруженному файлу.
func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Filename == "" || req.AccessToken == "" || req.StoreDomain == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// Имя файла не должно выводить за пределы каталога загрузок.
	if req.Filename != filepath.Base(req.Filename) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.uploadDir, req.Filename)

	err := h.runner.Start(path, req.StoreDomain, req.AccessToken)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("start import", zap.Error(err), zap.String("filename", req.Filename))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// StopImport запрашивает остановку текущего прогона.
func (h *Handler) StopImport(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Stop(); err != nil {
		if errors.Is(err, service.ErrNotRunning) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("stop import", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Status возвращает текущее состояние прогона.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.runner.Status()); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// Events транслирует события прогона клиенту в формате Server-Sent Events.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-h.runner.Events():
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("encode event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		}
	}
}
