package postgres

/*
Файл metadata_repo.go отвечает за версионированное хранилище документов политик.
Реестр policy_types владеет историей policy_versions; инварианты уровня БД:
- не более одного черновика на тип (частичный уникальный индекс по status='draft');
- не более одной опубликованной версии на тип (частичный индекс по status='published');
- номера версий уникальны в рамках типа и никогда не переиспользуются.
Сериализация публикаций обеспечивается блокировкой строки реестра (FOR UPDATE).
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

const versionColumns = `id, type_key, version_no, status, payload, author, created_at, published_at`

// GetOrCreateType регистрирует тип при первом обращении.
// Идемпотентно: повторная регистрация возвращает существующую запись.
func (s *Store) GetOrCreateType(ctx context.Context, typeKey, displayName, description string) (*domain.PolicyType, error) {
	query := `
		INSERT INTO policy_types (type_key, display_name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (type_key) DO UPDATE SET type_key = EXCLUDED.type_key
		RETURNING type_key, display_name, description, created_at`

	t := &domain.PolicyType{}
	err := s.pool.QueryRow(ctx, query, typeKey, displayName, description).Scan(
		&t.TypeKey, &t.DisplayName, &t.Description, &t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to register policy type: %w", err)
	}
	return t, nil
}

func (s *Store) GetType(ctx context.Context, typeKey string) (*domain.PolicyType, error) {
	query := `SELECT type_key, display_name, description, created_at FROM policy_types WHERE type_key = $1`

	t := &domain.PolicyType{}
	err := s.pool.QueryRow(ctx, query, typeKey).Scan(&t.TypeKey, &t.DisplayName, &t.Description, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTypeNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *Store) ListTypes(ctx context.Context) ([]domain.PolicyType, error) {
	rows, err := s.pool.Query(ctx, `SELECT type_key, display_name, description, created_at FROM policy_types ORDER BY type_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.PolicyType, 0)
	for rows.Next() {
		var t domain.PolicyType
		if err := rows.Scan(&t.TypeKey, &t.DisplayName, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// SaveDraft перезаписывает черновик типа или создает его, если черновика нет.
// Номер версии черновику не назначается: он будет выдан только при публикации.
func (s *Store) SaveDraft(ctx context.Context, typeKey string, payload json.RawMessage, author string) (*domain.PolicyVersion, error) {
	if _, err := s.GetType(ctx, typeKey); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO policy_versions (type_key, version_no, status, payload, author)
		VALUES ($1, 0, 'draft', $2, $3)
		ON CONFLICT (type_key) WHERE status = 'draft'
		DO UPDATE SET payload = EXCLUDED.payload, author = EXCLUDED.author, created_at = NOW()
		RETURNING ` + versionColumns

	v := &domain.PolicyVersion{}
	err := s.pool.QueryRow(ctx, query, typeKey, payload, author).Scan(
		&v.ID, &v.TypeKey, &v.VersionNo, &v.Status, &v.Payload, &v.Author, &v.CreatedAt, &v.PublishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to save draft: %w", err)
	}
	return v, nil
}

func (s *Store) GetDraft(ctx context.Context, typeKey string) (*domain.PolicyVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM policy_versions WHERE type_key = $1 AND status = 'draft'`
	return s.scanVersion(s.pool.QueryRow(ctx, query, typeKey), domain.ErrNoDraft)
}

// Publish превращает черновик в единственную опубликованную версию типа.
// Блокировка строки реестра (FOR UPDATE) сериализует конкурентные публикации:
// два одновременных Publish не могут получить один номер версии.
func (s *Store) Publish(ctx context.Context, typeKey, author string) (*domain.PolicyVersion, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to begin publish: %w", err)
	}
	defer tx.Rollback(ctx)

	var lockedKey string
	err = tx.QueryRow(ctx, `SELECT type_key FROM policy_types WHERE type_key = $1 FOR UPDATE`, typeKey).Scan(&lockedKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTypeNotFound
		}
		return nil, err
	}

	var draftID int64
	err = tx.QueryRow(ctx, `SELECT id FROM policy_versions WHERE type_key = $1 AND status = 'draft'`, typeKey).Scan(&draftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoDraft
		}
		return nil, err
	}

	// Следующий номер строго больше любого когда-либо выданного,
	// включая номера superseded-версий: переиспользования не бывает.
	var nextNo int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_no), 0) + 1 FROM policy_versions WHERE type_key = $1`, typeKey,
	).Scan(&nextNo)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE policy_versions SET status = 'superseded' WHERE type_key = $1 AND status = 'published'`, typeKey)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to supersede current version: %w", err)
	}

	query := `
		UPDATE policy_versions
		SET status = 'published', version_no = $1, author = $2, published_at = NOW()
		WHERE id = $3
		RETURNING ` + versionColumns

	v := &domain.PolicyVersion{}
	err = tx.QueryRow(ctx, query, nextNo, author, draftID).Scan(
		&v.ID, &v.TypeKey, &v.VersionNo, &v.Status, &v.Payload, &v.Author, &v.CreatedAt, &v.PublishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to publish draft: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: failed to commit publish: %w", err)
	}
	return v, nil
}

func (s *Store) GetPublished(ctx context.Context, typeKey string) (*domain.PolicyVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM policy_versions WHERE type_key = $1 AND status = 'published'`
	return s.scanVersion(s.pool.QueryRow(ctx, query, typeKey), domain.ErrNoPublished)
}

// GetPublishedPayload — узкая выборка для горячего пути (metadata.PublishedReader)
func (s *Store) GetPublishedPayload(ctx context.Context, typeKey string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM policy_versions WHERE type_key = $1 AND status = 'published'`, typeKey,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoPublished
		}
		return nil, err
	}
	return payload, nil
}

// ListVersions возвращает историю типа: свежие публикации первыми, черновик в начале.
func (s *Store) ListVersions(ctx context.Context, typeKey string, limit int) ([]domain.PolicyVersion, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT ` + versionColumns + `
		FROM policy_versions
		WHERE type_key = $1
		ORDER BY (status = 'draft') DESC, version_no DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, typeKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.PolicyVersion, 0)
	for rows.Next() {
		var v domain.PolicyVersion
		if err := rows.Scan(&v.ID, &v.TypeKey, &v.VersionNo, &v.Status, &v.Payload, &v.Author, &v.CreatedAt, &v.PublishedAt); err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

func (s *Store) GetVersion(ctx context.Context, typeKey string, versionNo int64) (*domain.PolicyVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM policy_versions WHERE type_key = $1 AND version_no = $2`
	return s.scanVersion(s.pool.QueryRow(ctx, query, typeKey, versionNo), domain.ErrNoPublished)
}

func (s *Store) scanVersion(row pgx.Row, notFound error) (*domain.PolicyVersion, error) {
	v := &domain.PolicyVersion{}
	err := row.Scan(&v.ID, &v.TypeKey, &v.VersionNo, &v.Status, &v.Payload, &v.Author, &v.CreatedAt, &v.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return v, nil
}
