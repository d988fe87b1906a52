package engine

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/infra"
	"github.com/soubhik-sen/FLUXPORT/internal/metadata"
)

// StartInvalidationListener слушает сигналы публикации и сбрасывает
// TTL-кэш документа. Payload сигнала — type_key опубликованного типа;
// кэш сбрасывается целиком, перечитывание ленивое на следующем запросе.
func StartInvalidationListener(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	source *metadata.Source,
	metrics *Metrics,
) {
	ListenStateResilient(ctx, rdb, logger, infra.RedisChanPolicyUpdate,
		func() error {
			// За время обрыва подписки могла пройти публикация
			source.Invalidate()
			return nil
		},
		func(payload string) {
			logger.Info("policy update signal received", zap.String("type_key", payload))
			source.Invalidate()
			metrics.CacheInvalidations.Inc()
		},
	)
}
