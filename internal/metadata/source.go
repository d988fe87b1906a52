package metadata

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
	"github.com/soubhik-sen/FLUXPORT/internal/infra"
)

// PublishedReader отдает payload опубликованной версии документа по типу.
// Реализуется postgres-репозиторием, в тестах — фейком.
type PublishedReader interface {
	GetPublishedPayload(ctx context.Context, typeKey string) ([]byte, error)
}

const (
	ReadModeAsset = "asset"
	ReadModeDB    = "db"
)

// Source — адаптер источника документа политик для горячего пути.
// Инвариант: Resolve никогда не возвращает ошибку и никогда nil —
// при любом сбое БД или файла молча деградирует до следующего уровня
// (db -> file -> вшитый default). Решение о доступе важнее свежести.
type Source struct {
	readMode    string
	assetPath   string
	readTimeout time.Duration
	store       PublishedReader
	cache       *documentCache
	logger      *zap.Logger
}

func NewSource(cfg *infra.Config, store PublishedReader, logger *zap.Logger) *Source {
	readMode := ReadModeAsset
	if cfg.Framework.Enabled && cfg.Framework.ReadMode == ReadModeDB {
		readMode = ReadModeDB
	}
	return &Source{
		readMode:    readMode,
		assetPath:   cfg.Policy.MetadataPath,
		readTimeout: cfg.Framework.ReadTimeout,
		store:       store,
		cache:       newDocumentCache(cfg.Framework.CacheTTL),
		logger:      logger,
	}
}

// Resolve возвращает действующий документ для типа политики.
func (s *Source) Resolve(ctx context.Context, typeKey string) *domain.PolicyDocument {
	if s.readMode == ReadModeDB && s.store != nil {
		if doc := s.resolveDB(ctx, typeKey); doc != nil {
			return doc
		}
		// Сбой БД не должен ронять авторизацию: уходим на asset-путь.
	}
	return s.resolveAsset()
}

// Invalidate сбрасывает кэш; дергается слушателем канала публикаций.
func (s *Source) Invalidate() {
	s.cache.Invalidate()
}

func (s *Source) resolveDB(ctx context.Context, typeKey string) *domain.PolicyDocument {
	key := "db:" + typeKey
	if doc, ok := s.cache.Get(key); ok {
		return doc
	}

	readCtx := ctx
	if s.readTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.readTimeout)
		defer cancel()
	}

	payload, err := s.store.GetPublishedPayload(readCtx, typeKey)
	if err != nil {
		s.logger.Warn("metadata: db read failed, falling back",
			zap.String("type_key", typeKey), zap.Error(err))
		return nil
	}
	doc, err := parseDocument(payload)
	if err != nil {
		s.logger.Warn("metadata: published payload unreadable, falling back",
			zap.String("type_key", typeKey), zap.Error(err))
		return nil
	}
	s.cache.Put(key, doc)
	return doc
}

func (s *Source) resolveAsset() *domain.PolicyDocument {
	if s.assetPath == "" {
		return DefaultDocument()
	}
	key := "file:" + s.assetPath
	if doc, ok := s.cache.Get(key); ok {
		return doc
	}
	raw, err := os.ReadFile(s.assetPath)
	if err != nil {
		s.logger.Warn("metadata: asset file unreadable, using built-in defaults",
			zap.String("path", s.assetPath), zap.Error(err))
		return DefaultDocument()
	}
	doc, err := parseDocument(raw)
	if err != nil {
		s.logger.Warn("metadata: asset file malformed, using built-in defaults",
			zap.String("path", s.assetPath), zap.Error(err))
		return DefaultDocument()
	}
	s.cache.Put(key, doc)
	return doc
}

func parseDocument(payload []byte) (*domain.PolicyDocument, error) {
	var doc domain.PolicyDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
