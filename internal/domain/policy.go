package domain

import "time"

// PolicyMode определяет стратегию вычисления скоупа видимости данных
type PolicyMode string

const (
	ModeAuto          PolicyMode = "auto"           // Выбор union/legacy по статическому флагу
	ModeLegacy        PolicyMode = "legacy"         // Одна роль по фиксированному старшинству
	ModeUnion         PolicyMode = "union"          // Объединение всех измерений пользователя
	ModeUnionMetadata PolicyMode = "union_metadata" // Решение по опубликованному документу политик
)

// ParsePolicyMode нормализует значение из конфига. Неизвестный режим — не ошибка,
// а откат к auto: так вели себя предыдущие релизы, и ломать это нельзя.
func ParsePolicyMode(raw string) PolicyMode {
	switch PolicyMode(raw) {
	case ModeLegacy, ModeUnion, ModeUnionMetadata, ModeAuto:
		return PolicyMode(raw)
	default:
		return ModeAuto
	}
}

// SchemaVersionCurrent помечает формат payload'а документа политик.
// Принимаем только известные версии на этапе сохранения черновика.
const SchemaVersionCurrent = "2.0"

// PolicyRule — одно правило документа. Path обязателен, Method опционален
// (пустой = любой HTTP-метод). Scope перечисляет измерения видимости,
// которые правило накладывает на запрос.
type PolicyRule struct {
	ID          string   `json:"id,omitempty"`
	Path        string   `json:"path"`
	Method      string   `json:"method,omitempty"`
	Scope       []string `json:"scope"`
	Allow       *bool    `json:"allow,omitempty"` // nil трактуется как allow
	Enabled     *bool    `json:"enabled,omitempty"`
	AllowedAny  []string `json:"allowed_any,omitempty"`  // хотя бы одна роль из списка
	RequiredAll []string `json:"required_all,omitempty"` // все роли из списка
	BypassRoles []string `json:"bypass_roles,omitempty"` // административный обход скоупа
}

// IsEnabled — правило активно, если флаг не выставлен явно в false
func (r *PolicyRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// IsAllow — отсутствие allow означает «применить скоуп», явный false — запрет
func (r *PolicyRule) IsAllow() bool {
	return r.Allow == nil || *r.Allow
}

// PolicyDocument — упорядоченный набор правил + маркер версии схемы.
// Документ неизменяем после загрузки: движок и кэш только читают его.
type PolicyDocument struct {
	SchemaVersion string       `json:"schema_version"`
	Description   string       `json:"description,omitempty"`
	Rules         []PolicyRule `json:"rules"`
}

// DecisionKind — итог вычисления скоупа
type DecisionKind string

const (
	DecisionScoped       DecisionKind = "scoped"       // Применен фильтр по измерениям
	DecisionUnrestricted DecisionKind = "unrestricted" // Полная видимость (bypass)
	DecisionDenied       DecisionKind = "denied"       // Явный отказ
)

// Коды причин решения. Хранятся в аудите и отдаются вызывающему слою,
// чтобы фильтрующий коллаборатор мог отличить «пустой скоуп» от сбоя.
const (
	ReasonBlocked            = "blocked"
	ReasonNoMatch            = "no_match"
	ReasonEmptyResolvedScope = "empty_resolved_scope_for_scoped_endpoint"
	ReasonBypassRole         = "bypass_role"
	ReasonFallbackUnion      = "fallback_union"
	ReasonOK                 = "ok"
)

// ScopeResult — дескриптор скоупа, который потребляет построитель запросов.
// ScopeByField: имя поля фильтрации -> множество разрешенных ID.
type ScopeResult struct {
	Decision      DecisionKind       `json:"decision"`
	Mode          string             `json:"mode"`
	ScopeByField  map[string][]int64 `json:"scope_by_field,omitempty"`
	MatchedRuleID string             `json:"matched_rule_id,omitempty"`
	Reason        string             `json:"reason,omitempty"`
}

// IsDenied — удобный предикат для вызывающего слоя
func (r ScopeResult) IsDenied() bool {
	return r.Decision == DecisionDenied
}

// DecisionRequest — атрибуты входящего запроса, по которым вычисляется скоуп.
// EndpointKey — логическое имя операции (например "purchase_orders.create"),
// Path/Method — фактический HTTP-маршрут для сопоставления с правилами.
type DecisionRequest struct {
	UserEmail   string `json:"user_email"`
	EndpointKey string `json:"endpoint"`
	Method      string `json:"method"`
	Path        string `json:"path"`

	TraceID    string    `json:"-"`
	ReceivedAt time.Time `json:"-"`
}
