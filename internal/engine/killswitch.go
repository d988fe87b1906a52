package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/infra"
)

// KillSwitchManager — runtime-рубильник движка политик. Пока рубильник
// включен, все инстансы ведут себя как при policy.enabled=false: решения
// считаются по статическому union-флагу, метаданные не читаются вообще.
// Состояние живет в Redis, локальная копия обновляется через Pub/Sub.
type KillSwitchManager struct {
	mu       sync.RWMutex
	disabled bool
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewKillSwitchManager(rdb *redis.Client, logger *zap.Logger) *KillSwitchManager {
	return &KillSwitchManager{rdb: rdb, logger: logger}
}

// Init загружает текущее состояние рубильника при старте сервиса.
// Недоступный Redis не ошибка запуска: считаем движок включенным.
func (m *KillSwitchManager) Init(ctx context.Context) error {
	val, err := m.rdb.Get(ctx, infra.RedisKeyPolicyDisabled).Result()
	if err != nil {
		if err == redis.Nil {
			m.set(false)
			return nil
		}
		m.logger.Warn("kill switch state unavailable, assuming engine enabled", zap.Error(err))
		return err
	}
	m.set(parseSwitchPayload(val))
	return nil
}

func (m *KillSwitchManager) IsDisabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disabled
}

func (m *KillSwitchManager) set(disabled bool) {
	m.mu.Lock()
	m.disabled = disabled
	m.mu.Unlock()
}

// StartListener подписывается на сигналы рубильника и держит подписку живой.
// При каждом переподключении состояние синхронизируется заново через Init:
// пропущенный за время обрыва сигнал не может оставить инстанс в старом режиме.
func (m *KillSwitchManager) StartListener(ctx context.Context) {
	ListenStateResilient(ctx, m.rdb, m.logger, infra.RedisChanKillSwitch,
		func() error { return m.Init(ctx) },
		func(payload string) {
			disabled := parseSwitchPayload(payload)
			m.logger.Warn("policy kill switch signal received", zap.Bool("disabled", disabled))
			m.set(disabled)
		},
	)
}

// Гибкий парсинг: сигнал шлют и люди через redis-cli, и Console API
func parseSwitchPayload(payload string) bool {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "1", "on", "true", "disabled":
		return true
	default:
		return false
	}
}
