package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type blockingStorage struct {
	memStorage
	release chan struct{}
}

func (b *blockingStorage) WriteBatch(ctx context.Context, entries []AuditEntry) error {
	<-b.release
	return b.memStorage.WriteBatch(ctx, entries)
}

func TestRecorderDrainsOnStop(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 1000, time.Hour, zap.NewNop())
	rec.Start()

	const n = 250
	for i := 0; i < n; i++ {
		rec.Log(AuditEntry{ID: fmt.Sprintf("e-%d", i)})
	}
	rec.Stop()

	if got := store.count(); got != n {
		t.Fatalf("graceful stop must flush everything, got %d of %d", got, n)
	}
}

func TestRecorderDropsOldestUnderPressure(t *testing.T) {
	store := &blockingStorage{release: make(chan struct{})}
	rec := NewRecorder(store, 4, time.Hour, zap.NewNop())

	// Воркер не запущен: канал заполняется и начинает вытеснять старые записи.
	for i := 0; i < 10; i++ {
		rec.Log(AuditEntry{ID: fmt.Sprintf("e-%d", i)})
	}
	if rec.Dropped() != 6 {
		t.Fatalf("expected 6 evictions, got %d", rec.Dropped())
	}

	close(store.release)
	rec.Start()
	rec.Stop()

	// В буфере должны выжить именно последние записи.
	if got := store.count(); got != 4 {
		t.Fatalf("expected 4 survivors, got %d", got)
	}
	for i, e := range store.entries {
		want := fmt.Sprintf("e-%d", 6+i)
		if e.ID != want {
			t.Fatalf("survivor %d: got %s, want %s (oldest must be evicted first)", i, e.ID, want)
		}
	}
}

func TestRecorderIgnoresLogAfterStop(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 10, time.Hour, zap.NewNop())
	rec.Start()
	rec.Stop()

	// Не должно паниковать записью в закрытый канал
	rec.Log(AuditEntry{ID: "late"})
	if got := store.count(); got != 0 {
		t.Fatalf("late entries must be dropped, got %d", got)
	}
}

func TestRecorderConcurrentLogAndStop(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 8, time.Hour, zap.NewNop())
	rec.Start()

	// Log наперегонки со Stop не должен паниковать отправкой в закрытый канал
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				rec.Log(AuditEntry{ID: fmt.Sprintf("g%d-%d", g, i)})
			}
		}(g)
	}

	rec.Stop()
	wg.Wait()
	rec.Stop() // повторный Stop — no-op, не падает на двойном close
}

type failingStorage struct {
	calls int
}

func (f *failingStorage) WriteBatch(_ context.Context, _ []AuditEntry) error {
	f.calls++
	return errors.New("db down")
}

func TestRecorderSwallowsStorageErrors(t *testing.T) {
	store := &failingStorage{}
	rec := NewRecorder(store, 10, time.Hour, zap.NewNop())
	rec.Start()

	rec.Log(AuditEntry{ID: "e-1"})
	rec.Stop() // не должен зависнуть или паниковать

	if store.calls == 0 {
		t.Fatal("storage was never attempted")
	}
}

func TestRecorderStampsMissingTimestamp(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 10, time.Hour, zap.NewNop())
	rec.Start()

	rec.Log(AuditEntry{ID: "e-1"})
	rec.Stop()

	if store.entries[0].Timestamp.IsZero() {
		t.Fatal("recorder must stamp entries without a timestamp")
	}
}
