package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
	"github.com/soubhik-sen/FLUXPORT/internal/infra"
	"github.com/soubhik-sen/FLUXPORT/internal/scope"
)

// PolicyStore описывает требования сервиса к версионированному хранилищу
type PolicyStore interface {
	GetOrCreateType(ctx context.Context, typeKey, displayName, description string) (*domain.PolicyType, error)
	GetType(ctx context.Context, typeKey string) (*domain.PolicyType, error)
	ListTypes(ctx context.Context) ([]domain.PolicyType, error)
	SaveDraft(ctx context.Context, typeKey string, payload json.RawMessage, author string) (*domain.PolicyVersion, error)
	GetDraft(ctx context.Context, typeKey string) (*domain.PolicyVersion, error)
	Publish(ctx context.Context, typeKey, author string) (*domain.PolicyVersion, error)
	GetPublished(ctx context.Context, typeKey string) (*domain.PolicyVersion, error)
	ListVersions(ctx context.Context, typeKey string, limit int) ([]domain.PolicyVersion, error)
	GetVersion(ctx context.Context, typeKey string, versionNo int64) (*domain.PolicyVersion, error)
}

// PolicyService — административный контур хранилища политик.
// Черновики валидируются на входе: в историю не может попасть payload,
// который движок не сумеет разобрать.
type PolicyService struct {
	store  PolicyStore
	rdb    *redis.Client
	logger *zap.Logger

	// Публикации одного типа сериализуются и в процессе тоже: блокировка
	// строки реестра в БД защищает между инстансами, мьютекс — внутри
	mu     sync.Mutex
	limits map[string]*sync.Mutex
}

func NewPolicyService(store PolicyStore, rdb *redis.Client, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		store:  store,
		rdb:    rdb,
		logger: logger.Named("policy-service"),
		limits: make(map[string]*sync.Mutex),
	}
}

func (s *PolicyService) RegisterType(ctx context.Context, typeKey, displayName, description string) (*domain.PolicyType, error) {
	return s.store.GetOrCreateType(ctx, typeKey, displayName, description)
}

func (s *PolicyService) ListTypes(ctx context.Context) ([]domain.PolicyType, error) {
	return s.store.ListTypes(ctx)
}

func (s *PolicyService) GetType(ctx context.Context, typeKey string) (*domain.PolicyType, error) {
	return s.store.GetType(ctx, typeKey)
}

// SaveDraft проверяет payload и перезаписывает черновик.
// Ошибка валидации возвращается целиком (*domain.ValidationError).
func (s *PolicyService) SaveDraft(ctx context.Context, typeKey string, payload json.RawMessage, author string) (*domain.PolicyVersion, error) {
	if _, err := scope.ValidateDocument(payload); err != nil {
		return nil, err
	}
	return s.store.SaveDraft(ctx, typeKey, payload, author)
}

func (s *PolicyService) GetDraft(ctx context.Context, typeKey string) (*domain.PolicyVersion, error) {
	return s.store.GetDraft(ctx, typeKey)
}

// Publish превращает черновик в активную версию и уведомляет движки.
// Сбой уведомления не откатывает публикацию: БД уже является истиной,
// инстансы дочитают новую версию по TTL кэша.
func (s *PolicyService) Publish(ctx context.Context, typeKey, author string) (*domain.PolicyVersion, error) {
	lock := s.typeLock(typeKey)
	lock.Lock()
	defer lock.Unlock()

	v, err := s.store.Publish(ctx, typeKey, author)
	if err != nil {
		return nil, err
	}

	s.notifyUpdate(ctx, typeKey)
	return v, nil
}

func (s *PolicyService) GetPublished(ctx context.Context, typeKey string) (*domain.PolicyVersion, error) {
	return s.store.GetPublished(ctx, typeKey)
}

func (s *PolicyService) ListVersions(ctx context.Context, typeKey string, limit int) ([]domain.PolicyVersion, error) {
	return s.store.ListVersions(ctx, typeKey, limit)
}

func (s *PolicyService) GetVersion(ctx context.Context, typeKey string, versionNo int64) (*domain.PolicyVersion, error) {
	return s.store.GetVersion(ctx, typeKey, versionNo)
}

// SetEngineDisabled — runtime kill switch движка. Состояние пишется в Redis
// (его увидят и новые инстансы), сигнал транслируется уже работающим.
func (s *PolicyService) SetEngineDisabled(ctx context.Context, disabled bool) error {
	if s.rdb == nil {
		return domain.ErrSourceUnavailable
	}
	var err error
	signal := "off"
	if disabled {
		signal = "on"
		err = s.rdb.Set(ctx, infra.RedisKeyPolicyDisabled, "1", 0).Err()
	} else {
		err = s.rdb.Del(ctx, infra.RedisKeyPolicyDisabled).Err()
	}
	if err != nil {
		return err
	}
	if pubErr := s.rdb.Publish(ctx, infra.RedisChanKillSwitch, signal).Err(); pubErr != nil {
		s.logger.Warn("kill switch signal delivery failed", zap.Error(pubErr))
	}
	s.logger.Warn("policy engine kill switch toggled", zap.Bool("disabled", disabled))
	return nil
}

// notifyUpdate отправляет широковещательный сигнал в Redis.
// Все инстансы движка, подписанные на канал, сбросят кэш документа.
func (s *PolicyService) notifyUpdate(ctx context.Context, typeKey string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, infra.RedisChanPolicyUpdate, typeKey).Err(); err != nil {
		s.logger.Warn("policy update signal delivery failed",
			zap.String("type_key", typeKey), zap.Error(err))
	}
}

func (s *PolicyService) typeLock(typeKey string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.limits[typeKey]
	if !ok {
		lock = &sync.Mutex{}
		s.limits[typeKey] = lock
	}
	return lock
}
