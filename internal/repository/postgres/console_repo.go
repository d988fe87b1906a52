package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soubhik-sen/FLUXPORT/internal/audit"
	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// GetDecisionDashboard собирает сводку для главного экрана консоли.
func (s *Store) GetDecisionDashboard(ctx context.Context) (*domain.DecisionDashboard, error) {
	d := &domain.DecisionDashboard{DenyReasons: make(map[string]int64)}

	// 1. Исходы решений и P95 latency за последние 60 минут.
	// PERCENTILE_CONT дает честный перцентиль вместо среднего.
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE decision = 'scoped'),
			COUNT(*) FILTER (WHERE decision = 'unrestricted'),
			COUNT(*) FILTER (WHERE decision = 'denied'),
			COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY duration_ms), 0)
		FROM decision_audit
		WHERE timestamp > NOW() - INTERVAL '60 minutes'`).Scan(
		&d.Activity.TotalDecisions,
		&d.Outcomes.Scoped,
		&d.Outcomes.Unrestricted,
		&d.Outcomes.Denied,
		&d.Quality.P95LatencyMs,
	)
	if err != nil {
		return nil, err
	}

	// RPS = всего решений за час / 3600
	d.Activity.RPS = float64(d.Activity.TotalDecisions) / 3600

	// 2. Разбивка отказов по причинам
	rows, err := s.pool.Query(ctx, `
		SELECT reason, COUNT(*)
		FROM decision_audit
		WHERE decision = 'denied' AND timestamp > NOW() - INTERVAL '60 minutes'
		GROUP BY reason`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var count int64
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		d.DenyReasons[reason] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 3. Сколько типов сейчас имеют опубликованную версию
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM policy_versions WHERE status = 'published'`,
	).Scan(&d.PublishedVersions)

	return d, err
}

// FindAuditEntries — выборка журнала решений для расследований в консоли.
func (s *Store) FindAuditEntries(ctx context.Context, filter domain.AuditFilter) ([]audit.AuditEntry, error) {
	query := `
		SELECT id, trace_id, user_email, endpoint, path, method,
		       mode, decision, matched_rule_id, reason,
		       scope_sizes, scope_detail, duration_ms, timestamp
		FROM decision_audit`

	var args []interface{}
	var conds []string
	if filter.UserEmail != "" {
		args = append(args, filter.UserEmail)
		conds = append(conds, fmt.Sprintf("user_email = $%d", len(args)))
	}
	if filter.Decision != "" {
		args = append(args, filter.Decision)
		conds = append(conds, fmt.Sprintf("decision = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit entries: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	results := make([]audit.AuditEntry, 0)
	for rows.Next() {
		var e audit.AuditEntry
		var sizes, detail []byte
		err := rows.Scan(
			&e.ID, &e.TraceID, &e.UserEmail, &e.Endpoint, &e.Path, &e.Method,
			&e.Mode, &e.Decision, &e.MatchedRuleID, &e.Reason,
			&sizes, &detail, &e.DurationMs, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit entry: %w", err)
		}
		if len(sizes) > 0 {
			_ = json.Unmarshal(sizes, &e.ScopeSizes)
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Scope)
		}
		results = append(results, e)
	}

	return results, rows.Err()
}
