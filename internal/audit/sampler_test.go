package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

type memStorage struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *memStorage) WriteBatch(_ context.Context, entries []AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func sampleRequest() (domain.DecisionRequest, domain.ScopeResult) {
	req := domain.DecisionRequest{
		UserEmail:   "buyer@example.com",
		EndpointKey: "/api/v1/shipments",
		Method:      "GET",
		Path:        "/api/v1/shipments",
		TraceID:     "trace-1",
	}
	res := domain.ScopeResult{
		Decision:      domain.DecisionScoped,
		Mode:          string(domain.ModeLegacy),
		ScopeByField:  map[string][]int64{domain.DimensionCustomer: {1, 2, 3}},
		MatchedRuleID: "R1",
		Reason:        domain.ReasonOK,
	}
	return req, res
}

func TestSamplerRateZeroNeverRecords(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 100, 10*time.Millisecond, zap.NewNop())
	rec.Start()

	s := NewSampler(rec, true, false, 0)
	req, res := sampleRequest()
	for i := 0; i < 10000; i++ {
		s.MaybeRecord(req, res, time.Millisecond)
	}
	rec.Stop()

	if got := store.count(); got != 0 {
		t.Fatalf("rate=0 must never record, got %d entries", got)
	}
}

func TestSamplerRateOneAlwaysRecords(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 10000, 10*time.Millisecond, zap.NewNop())
	rec.Start()

	s := NewSampler(rec, true, false, 1)
	req, res := sampleRequest()
	const n = 500
	for i := 0; i < n; i++ {
		s.MaybeRecord(req, res, time.Millisecond)
	}
	rec.Stop()

	if got := store.count(); got != n {
		t.Fatalf("rate=1 must record every decision, got %d of %d", got, n)
	}
}

func TestSamplerFractionalRateUsesDraw(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 100, 10*time.Millisecond, zap.NewNop())
	rec.Start()

	s := NewSampler(rec, true, false, 0.5)
	draws := []float64{0.1, 0.9, 0.49, 0.5, 0.51}
	i := 0
	s.randFn = func() float64 { v := draws[i]; i++; return v }

	req, res := sampleRequest()
	for range draws {
		s.MaybeRecord(req, res, time.Millisecond)
	}
	rec.Stop()

	// Записываются только draw < rate: 0.1 и 0.49
	if got := store.count(); got != 2 {
		t.Fatalf("expected 2 sampled entries, got %d", got)
	}
}

func TestSamplerDisabledRecordsNothing(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 100, 10*time.Millisecond, zap.NewNop())
	rec.Start()

	s := NewSampler(rec, false, false, 1)
	req, res := sampleRequest()
	s.MaybeRecord(req, res, time.Millisecond)
	rec.Stop()

	if got := store.count(); got != 0 {
		t.Fatalf("disabled sampler recorded %d entries", got)
	}
}

func TestSamplerVerboseIncludesScopeDetail(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 100, 10*time.Millisecond, zap.NewNop())
	rec.Start()

	s := NewSampler(rec, true, true, 1)
	req, res := sampleRequest()
	s.MaybeRecord(req, res, time.Millisecond)
	rec.Stop()

	if store.count() != 1 {
		t.Fatalf("expected one entry, got %d", store.count())
	}
	e := store.entries[0]
	if e.ScopeSizes[domain.DimensionCustomer] != 3 {
		t.Fatalf("scope sizes wrong: %+v", e.ScopeSizes)
	}
	if len(e.Scope[domain.DimensionCustomer]) != 3 {
		t.Fatalf("verbose entry must carry full scope detail: %+v", e.Scope)
	}
}

func TestSamplerCompactOmitsScopeDetail(t *testing.T) {
	store := &memStorage{}
	rec := NewRecorder(store, 100, 10*time.Millisecond, zap.NewNop())
	rec.Start()

	s := NewSampler(rec, true, false, 1)
	req, res := sampleRequest()
	s.MaybeRecord(req, res, time.Millisecond)
	rec.Stop()

	if store.entries[0].Scope != nil {
		t.Fatalf("compact entry must not carry id lists: %+v", store.entries[0].Scope)
	}
}
