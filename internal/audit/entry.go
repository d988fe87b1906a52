package audit

import "time"

// AuditEntry — одна запись о принятом решении по областям доступа.
type AuditEntry struct {
	ID        string `json:"id"`         // UUID записи
	TraceID   string `json:"trace_id"`   // Сквозной ID запроса
	UserEmail string `json:"user_email"` // Для кого считали решение

	// Контекст запроса
	Endpoint string `json:"endpoint"` // Нормализованный ключ эндпойнта
	Path     string `json:"path"`
	Method   string `json:"method"`

	// Результат
	Mode          string `json:"mode"`     // Эффективный режим (legacy/union/union_metadata)
	Decision      string `json:"decision"` // scoped | unrestricted | denied
	MatchedRuleID string `json:"matched_rule_id"`
	Reason        string `json:"reason"`

	// Размеры областей пишутся всегда, полные списки ID — только в verbose
	ScopeSizes map[string]int     `json:"scope_sizes"`
	Scope      map[string][]int64 `json:"scope,omitempty"`

	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}
