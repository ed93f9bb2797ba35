// Package service реализует движок пакетной загрузки заказов.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/orderload-system/internal/mapper"
	"github.com/mmeshcher/orderload-system/internal/model"
	"github.com/mmeshcher/orderload-system/internal/platform"
	"github.com/mmeshcher/orderload-system/internal/records"
)

// Пауза между записями: грубое ограничение исходящей нагрузки на API платформы.
// Выдерживается после каждой записи независимо от исхода.
const defaultSubmitDelay = 500 * time.Millisecond

const eventBufferSize = 256

// ErrAlreadyRunning возвращается при попытке запустить прогон, пока другой не завершён.
var (
	ErrAlreadyRunning = errors.New("import is already running")
	// ErrNotRunning возвращается при попытке остановить прогон, когда он не идёт.
	ErrNotRunning = errors.New("no import is running")
)

// StateRepository описывает контракт хранилища контрольной точки, используемый движком.
type StateRepository interface {
	Close() error
	Load(ctx context.Context) (model.RunState, error)
	Save(ctx context.Context, index int) error
}

// Submitter описывает контракт клиента платформы, используемый движком.
type Submitter interface {
	CreateOrder(ctx context.Context, order *model.OrderPayload) (*platform.OrderResult, error)
}

// Runner последовательно отправляет записи исходного файла на платформу.
// Одновременно идёт не более одного прогона; повторный запуск отклоняется.
type Runner struct {
	baseCtx context.Context
	repo    StateRepository
	logger  *zap.Logger

	mu            sync.Mutex
	running       bool
	stopRequested bool
	current       int
	total         int

	events chan model.Event

	submitDelay  time.Duration
	loadRecords  func(path string) ([]model.Record, error)
	newSubmitter func(storeDomain, accessToken string) Submitter
}

// NewRunner создаёт движок загрузки. Контекст ограничивает время жизни всех
// прогонов: его отмена трактуется как запрос остановки.
func NewRunner(ctx context.Context, repo StateRepository, logger *zap.Logger) *Runner {
	return &Runner{
		baseCtx:     ctx,
		repo:        repo,
		logger:      logger,
		events:      make(chan model.Event, eventBufferSize),
		submitDelay: defaultSubmitDelay,
		loadRecords: records.Load,
		newSubmitter: func(storeDomain, accessToken string) Submitter {
			return platform.NewClient(storeDomain, accessToken)
		},
	}
}

// Close закрывает ресурсы движка.
func (r *Runner) Close() error {
	if r.repo != nil {
		return r.repo.Close()
	}
	return nil
}

// Events возвращает поток событий прогона. Поток рассчитан на одного
// потребителя; при отсутствии потребителя события отбрасываются, не
// задерживая обработку записей.
func (r *Runner) Events() <-chan model.Event {
	return r.events
}

// Status возвращает текущее состояние прогона.
func (r *Runner) Status() model.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return model.RunStatus{
		Running: r.running,
		Current: r.current,
		Total:   r.total,
	}
}

// Start запускает прогон по указанному файлу. Возвращает ErrAlreadyRunning,
// если прогон уже идёт. Прогон возобновляется со строки, следующей за
// сохранённой контрольной точкой.
func (r *Runner) Start(path, storeDomain, accessToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	r.running = true
	r.stopRequested = false
	r.current = 0
	r.total = 0

	go r.run(path, storeDomain, accessToken)

	return nil
}

// Stop запрашивает остановку текущего прогона. Остановка кооперативная:
// запись, отправка которой уже началась, дорабатывается до конца.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}

	r.stopRequested = true
	return nil
}

// finish переводит движок в простой и только затем публикует терминальное
// событие: получатель события может сразу запускать следующий прогон.
func (r *Runner) finish(e model.Event) {
	r.mu.Lock()
	r.running = false
	r.stopRequested = false
	r.mu.Unlock()

	r.emit(e)
}

func (r *Runner) run(path, storeDomain, accessToken string) {
	ctx := r.baseCtx

	recs, err := r.loadRecords(path)
	if err != nil {
		r.logger.Error("load source file", zap.String("path", path), zap.Error(err))
		r.emit(model.Event{Type: model.EventLog, Message: fmt.Sprintf("cannot read source file: %v", err)})
		r.finish(model.Event{Type: model.EventStopped, Summary: &model.Summary{}})
		return
	}

	state, err := r.repo.Load(ctx)
	if err != nil {
		r.logger.Error("load checkpoint", zap.Error(err))
		r.emit(model.Event{Type: model.EventLog, Message: fmt.Sprintf("cannot read checkpoint: %v", err)})
		r.finish(model.Event{Type: model.EventStopped, Summary: &model.Summary{}})
		return
	}

	total := len(recs)

	r.mu.Lock()
	r.current = state.LastProcessedIndex
	r.total = total
	r.mu.Unlock()

	if state.LastProcessedIndex > 0 {
		r.emit(model.Event{
			Type:    model.EventLog,
			Message: fmt.Sprintf("resuming after record %d of %d", state.LastProcessedIndex, total),
		})
	}

	client := r.newSubmitter(storeDomain, accessToken)

	var success, failed, skipped int
	stopped := false

	for i := state.LastProcessedIndex; i < total; i++ {
		if r.stopPending(ctx) {
			stopped = true
			break
		}

		idx := i + 1

		payload, err := mapper.BuildOrder(recs[i])
		switch {
		case errors.Is(err, mapper.ErrNoProducts):
			skipped++
			r.emit(model.Event{
				Type:    model.EventLog,
				Message: fmt.Sprintf("record %d skipped: no valid line items", idx),
			})
		case err != nil:
			failed++
			r.emit(model.Event{
				Type:    model.EventLog,
				Message: fmt.Sprintf("record %d failed: %v", idx, err),
			})
		default:
			res, err := client.CreateOrder(ctx, payload)
			if err != nil {
				failed++
				r.logger.Warn("submit order", zap.Int("record", idx), zap.Error(err))
				r.emit(model.Event{
					Type:    model.EventLog,
					Message: fmt.Sprintf("record %d failed: %v", idx, err),
				})
			} else {
				success++
				r.emit(model.Event{
					Type:    model.EventLog,
					Message: fmt.Sprintf("record %d: created order %s (#%d)", idx, res.ID, res.Number),
				})
			}
		}

		// Контрольная точка двигается после каждой записи независимо от исхода.
		// Отказ хранилища фатален: продолжение без точки сделало бы
		// возобновление некорректным.
		if err := r.repo.Save(ctx, idx); err != nil {
			r.logger.Error("save checkpoint", zap.Int("record", idx), zap.Error(err))
			r.emit(model.Event{Type: model.EventLog, Message: fmt.Sprintf("cannot save checkpoint: %v", err)})
			r.finish(model.Event{
				Type:    model.EventStopped,
				Summary: r.summary(total, success, failed, skipped),
			})
			return
		}

		r.mu.Lock()
		r.current = idx
		r.mu.Unlock()

		r.emit(model.Event{Type: model.EventProgress, Current: idx, Total: total})

		select {
		case <-time.After(r.submitDelay):
		case <-ctx.Done():
		}
	}

	summary := r.summary(total, success, failed, skipped)

	if stopped {
		r.logger.Info("import stopped",
			zap.Int("processed", r.Status().Current),
			zap.Int("total", total),
		)
		r.emit(model.Event{Type: model.EventLog, Message: "import stopped by request"})
		r.finish(model.Event{Type: model.EventStopped, Summary: summary})
		return
	}

	r.logger.Info("import completed",
		zap.Int("total", total),
		zap.Int("success", success),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
	)
	r.finish(model.Event{Type: model.EventDone, Summary: summary})
}

// stopPending сообщает, запрошена ли остановка. Проверяется только на границе
// записей: начатая отправка не прерывается.
func (r *Runner) stopPending(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRequested
}

func (r *Runner) summary(total, success, failed, skipped int) *model.Summary {
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(success)/float64(total)*1000) / 10
	}

	return &model.Summary{
		Total:   total,
		Success: success,
		Failed:  failed,
		Skipped: skipped,
		Rate:    rate,
	}
}

// emit отправляет событие потребителю, не блокируя цикл обработки.
func (r *Runner) emit(e model.Event) {
	select {
	case r.events <- e:
	default:
	}
}
