package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/soubhik-sen/FLUXPORT/internal/audit"
)

// AuditRepo пишет журнал решений. Держит собственный database/sql пул:
// пакетная вставка воркера не должна конкурировать за соединения
// с горячим путем чтения политик.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) *AuditRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		// В main мы проверим соединение через Ping
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *AuditRepo) WriteBatch(ctx context.Context, entries []audit.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// Количество колонок в таблице decision_audit
	numFields := 14
	placeholderStr := ""
	vals := make([]interface{}, 0, len(entries)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range entries {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9, p+10, p+11, p+12, p+13, p+14)

		sizes, _ := json.Marshal(e.ScopeSizes)
		var detail []byte
		if e.Scope != nil {
			detail, _ = json.Marshal(e.Scope)
		}

		vals = append(vals,
			e.ID, e.TraceID, e.UserEmail, e.Endpoint, e.Path, e.Method,
			e.Mode, e.Decision, e.MatchedRuleID, e.Reason,
			sizes, detail, e.DurationMs, e.Timestamp,
		)
	}

	// Убираем лишнюю запятую в конце
	query := fmt.Sprintf(
		"INSERT INTO decision_audit (id, trace_id, user_email, endpoint, path, method, mode, decision, matched_rule_id, reason, scope_sizes, scope_detail, duration_ms, timestamp) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}
