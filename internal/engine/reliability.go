package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/soubhik-sen/FLUXPORT/internal/metadata"
)

// ReliabilityWrapper оборачивает чтение опубликованного документа из БД.
// Порядок защит: Rate Limiter -> Circuit Breaker -> Retry -> Timeout.
// Любая ошибка отсюда гасится адаптером источника (откат на asset),
// поэтому задача обертки — быстро сдаться, а не геройствовать:
// выбитый предохранитель возвращает ошибку мгновенно, без похода в БД.
type ReliabilityWrapper struct {
	next    metadata.PublishedReader
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

func NewReliabilityWrapper(next metadata.PublishedReader, timeout time.Duration, metrics *Metrics) *ReliabilityWrapper {
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "policy-store-reader",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if metrics == nil {
				return
			}
			if to == gobreaker.StateOpen {
				metrics.BreakerState.Set(1)
			} else {
				metrics.BreakerState.Set(0)
			}
		},
	})

	// Кэш с TTL=60s означает ~1 чтение в минуту на инстанс; лимитер
	// страхует от шторма перечитываний после массовой инвалидации
	limiter := rate.NewLimiter(rate.Limit(10), 5)

	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	return &ReliabilityWrapper{
		next:    next,
		cb:      cb,
		limiter: limiter,
		timeout: timeout,
	}
}

func (w *ReliabilityWrapper) GetPublishedPayload(ctx context.Context, typeKey string) ([]byte, error) {
	// 1. Rate Limiter: не ждем слот, на горячем пути это сразу отказ
	if !w.limiter.Allow() {
		return nil, fmt.Errorf("policy store read rate exceeded")
	}

	var payload []byte

	// 2. Circuit Breaker
	result, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, w.timeout)
			defer cancel()

			var callErr error
			payload, callErr = w.next.GetPublishedPayload(tCtx, typeKey)
			return callErr
		})

		return payload, retryErr
	})

	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
