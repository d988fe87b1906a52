package audit

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// Sampler решает, попадет ли конкретное решение в журнал.
// Никогда не блокирует и не возвращает ошибок: аудит — побочный эффект,
// сбой которого не имеет права влиять на авторизацию.
type Sampler struct {
	enabled bool
	verbose bool
	rate    float64
	rec     *Recorder
	randFn  func() float64 // подменяется в тестах
}

func NewSampler(rec *Recorder, enabled, verbose bool, rate float64) *Sampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &Sampler{
		enabled: enabled,
		verbose: verbose,
		rate:    rate,
		rec:     rec,
		randFn:  rand.Float64,
	}
}

// Dropped пробрасывает счетчик вытеснений рекордера наружу (для метрик)
func (s *Sampler) Dropped() int64 {
	if s.rec == nil {
		return 0
	}
	return s.rec.Dropped()
}

// MaybeRecord делает равномерную выборку: rate=0 — никогда, rate=1 — всегда.
func (s *Sampler) MaybeRecord(req domain.DecisionRequest, res domain.ScopeResult, elapsed time.Duration) {
	if !s.enabled || s.rec == nil || s.rate <= 0 {
		return
	}
	if s.rate < 1 && s.randFn() >= s.rate {
		return
	}

	entry := AuditEntry{
		ID:            uuid.NewString(),
		TraceID:       req.TraceID,
		UserEmail:     req.UserEmail,
		Endpoint:      req.EndpointKey,
		Path:          req.Path,
		Method:        req.Method,
		Mode:          res.Mode,
		Decision:      string(res.Decision),
		MatchedRuleID: res.MatchedRuleID,
		Reason:        res.Reason,
		ScopeSizes:    make(map[string]int, len(res.ScopeByField)),
		Timestamp:     time.Now(),
		DurationMs:    elapsed.Milliseconds(),
	}
	for field, ids := range res.ScopeByField {
		entry.ScopeSizes[field] = len(ids)
	}
	if s.verbose {
		entry.Scope = res.ScopeByField
	}
	s.rec.Log(entry)
}
