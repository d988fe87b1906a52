package postgres

import (
	"context"
	"fmt"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// dimensionQueries — откуда берутся разрешенные ID по каждому измерению.
// Связующие таблицы справочников партнеров; пустой результат — валидное
// состояние (пользователю просто ничего не назначено по измерению).
var dimensionQueries = map[string]string{
	domain.DimensionForwarder: `SELECT forwarder_id FROM user_forwarders WHERE user_id = $1`,
	domain.DimensionVendor:    `SELECT vendor_id FROM user_vendors WHERE user_id = $1`,
	domain.DimensionCustomer:  `SELECT customer_id FROM user_customers WHERE user_id = $1`,
}

// ResolveUserScope собирает роли и назначения пользователя по email.
// Неизвестный email не ошибка: возвращается пустой скоуп, и движок
// откажет по своим правилам (deny-by-absence), а не по сбою хранилища.
func (s *Store) ResolveUserScope(ctx context.Context, email string) (*domain.UserScope, error) {
	scope := &domain.UserScope{
		Roles:        make(map[string]struct{}),
		DimensionIDs: make(map[string]map[int64]struct{}),
	}

	var userID int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM users WHERE lower(email) = lower($1)`, email).Scan(&userID)
	if err != nil {
		if isNoRows(err) {
			return scope, nil
		}
		return nil, fmt.Errorf("postgres: failed to look up user %s: %w", email, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		scope.Roles[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for dim, query := range dimensionQueries {
		ids, err := s.queryIDs(ctx, query, userID)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to load %s assignments: %w", dim, err)
		}
		if len(ids) > 0 {
			scope.DimensionIDs[dim] = ids
		}
	}

	return scope, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, userID int64) (map[int64]struct{}, error) {
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
