package audit

/*
Файл recorder.go реализует асинхронный журнал решений (Audit Trail).

Ключевые особенности архитектуры:
- Non-blocking Logging: неблокирующий канал между Hot Path движка решений
  и воркером записи. Задержки БД не влияют на Response Time авторизации.
- Batching: накопление записей в памяти и пакетная запись (Bulk Insert)
  в PostgreSQL по таймеру или при достижении лимита пачки.
- Drop-Oldest: при переполнении буфера вытесняется самая старая запись,
  а не отбрасывается новая — свежие решения ценнее для расследований.
- Drain Pattern & Graceful Shutdown: при остановке канал закрывается,
  воркер вычитывает остатки и делает финальный flush через sync.WaitGroup.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняются записи
type StorageInterface interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, entries []AuditEntry) error
}

const batchLimit = 100

type Recorder struct {
	ch            chan AuditEntry
	repo          StorageInterface
	logger        *zap.Logger
	flushInterval time.Duration
	wg            sync.WaitGroup
	// Отправка в канал идет под RLock, закрытие — под Lock:
	// Log, успевший пройти проверку closed, не упрется в закрытый канал
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewRecorder(repo StorageInterface, bufferSize int, flushInterval time.Duration, logger *zap.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Recorder{
		ch:            make(chan AuditEntry, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit")),
		flushInterval: flushInterval,
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
// Повторный вызов — no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.logger.Info("stopping audit recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("audit recorder stopped gracefully")
}

// Dropped возвращает число вытесненных записей с момента старта.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) Log(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("audit entry dropped: recorder is stopping", zap.String("id", entry.ID))
		return
	}

	select {
	case r.ch <- entry:
		return
	default:
	}

	// Буфер полон: вытесняем самую старую запись и пробуем ещё раз.
	select {
	case <-r.ch:
		r.dropped.Add(1)
	default:
	}
	select {
	case r.ch <- entry:
	default:
		r.dropped.Add(1)
		r.logger.Error("audit_buffer_overflow",
			zap.String("trace_id", entry.TraceID),
			zap.String("user_email", entry.UserEmail),
		)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]AuditEntry, 0, batchLimit)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст к моменту финального flush может быть закрыт
			if err := r.repo.WriteBatch(context.Background(), batch); err != nil {
				r.logger.Error("audit flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case entry, ok := <-r.ch:
			if !ok {
				// Канал закрыт в Stop(): воркер сначала вычитал остатки очереди,
				// только потом получил ok == false. Финальный сброс и выход.
				flush()
				r.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, entry)
			if len(batch) >= batchLimit {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
