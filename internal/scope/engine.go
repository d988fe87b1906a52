package scope

/*
Файл engine.go — движок решений о скоупе видимости данных.

Движок — чистая функция над входами: (атрибуты запроса, скоуп пользователя,
документ политик, флаги). Никакого состояния, времени или случайности —
при одинаковой версии документа и одинаковых атрибутах результат всегда
идентичен. Выборочный аудит — побочный канал вызывающего слоя, не вход.
*/

import (
	"strings"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

type Engine struct {
	precedence []string // старшинство измерений для legacy-режима
}

// NewEngine: пустой порядок старшинства заменяется дефолтным
// (forwarder > vendor > customer).
func NewEngine(precedence []string) *Engine {
	if len(precedence) == 0 {
		precedence = domain.DefaultPrecedence
	}
	return &Engine{precedence: precedence}
}

// Legacy выбирает единственное старшее непустое измерение пользователя.
func (e *Engine) Legacy(user domain.UserScope) domain.ScopeResult {
	for _, dim := range e.precedence {
		if ids := user.IDs(dim); len(ids) > 0 {
			return domain.ScopeResult{
				Decision:     domain.DecisionScoped,
				Mode:         string(domain.ModeLegacy),
				ScopeByField: map[string][]int64{dim: ids},
				Reason:       domain.ReasonOK,
			}
		}
	}
	return domain.ScopeResult{
		Decision:     domain.DecisionScoped,
		Mode:         string(domain.ModeLegacy),
		ScopeByField: map[string][]int64{},
		Reason:       domain.ReasonOK,
	}
}

// Union объединяет все непустые измерения пользователя.
func (e *Engine) Union(user domain.UserScope) domain.ScopeResult {
	out := make(map[string][]int64)
	for dim := range user.DimensionIDs {
		if ids := user.IDs(dim); len(ids) > 0 {
			out[dim] = ids
		}
	}
	return domain.ScopeResult{
		Decision:     domain.DecisionScoped,
		Mode:         string(domain.ModeUnion),
		ScopeByField: out,
		Reason:       domain.ReasonOK,
	}
}

// Evaluate вычисляет скоуп по документу политик (режим union_metadata).
// doc == nil трактуется как документ без правил: срабатывает ветка «нет решения».
//
// fallbackToUnion управляет строгостью при отсутствии подошедшего правила:
// true — откат к union, false — явный пустой скоуп (deny-by-absence).
// Второе — осознанный контракт строгости, а не ошибка.
func (e *Engine) Evaluate(req domain.DecisionRequest, user domain.UserScope, doc *domain.PolicyDocument, fallbackToUnion bool) domain.ScopeResult {
	var rule *domain.PolicyRule
	if doc != nil {
		rule = BestMatch(doc.Rules, req.Path, req.Method)
	}

	if rule == nil {
		if fallbackToUnion {
			res := e.Union(user)
			res.Mode = string(domain.ModeUnionMetadata)
			res.Reason = domain.ReasonFallbackUnion
			return res
		}
		return domain.ScopeResult{
			Decision:     domain.DecisionDenied,
			Mode:         string(domain.ModeUnionMetadata),
			ScopeByField: map[string][]int64{},
			Reason:       domain.ReasonNoMatch,
		}
	}

	// Административный обход: скоуп снимается целиком, независимо от
	// union/legacy вычислений.
	if hasAnyNormalized(user, rule.BypassRoles) {
		return domain.ScopeResult{
			Decision:      domain.DecisionUnrestricted,
			Mode:          string(domain.ModeUnionMetadata),
			MatchedRuleID: rule.ID,
			Reason:        domain.ReasonBypassRole,
		}
	}

	if !rule.IsAllow() {
		return deniedByRule(rule, domain.ReasonBlocked)
	}
	if len(rule.AllowedAny) > 0 && !hasAnyNormalized(user, rule.AllowedAny) {
		return deniedByRule(rule, domain.ReasonBlocked)
	}
	if len(rule.RequiredAll) > 0 && !hasAllNormalized(user, rule.RequiredAll) {
		return deniedByRule(rule, domain.ReasonBlocked)
	}

	// Правило без измерений — эндпоинт разрешен без фильтра по скоупу
	if len(rule.Scope) == 0 {
		return domain.ScopeResult{
			Decision:      domain.DecisionScoped,
			Mode:          string(domain.ModeUnionMetadata),
			ScopeByField:  map[string][]int64{},
			MatchedRuleID: rule.ID,
			Reason:        domain.ReasonOK,
		}
	}

	out := make(map[string][]int64)
	for _, dim := range rule.Scope {
		if ids := user.IDs(dim); len(ids) > 0 {
			out[dim] = ids
		}
	}
	// Скоупированный эндпоинт с пустым разрешенным множеством — отказ,
	// иначе фильтрующий слой показал бы всё вместо ничего
	if len(out) == 0 {
		return deniedByRule(rule, domain.ReasonEmptyResolvedScope)
	}

	return domain.ScopeResult{
		Decision:      domain.DecisionScoped,
		Mode:          string(domain.ModeUnionMetadata),
		ScopeByField:  out,
		MatchedRuleID: rule.ID,
		Reason:        domain.ReasonOK,
	}
}

func deniedByRule(rule *domain.PolicyRule, reason string) domain.ScopeResult {
	return domain.ScopeResult{
		Decision:      domain.DecisionDenied,
		Mode:          string(domain.ModeUnionMetadata),
		ScopeByField:  map[string][]int64{},
		MatchedRuleID: rule.ID,
		Reason:        reason,
	}
}

// Списки ролей в правилах пишут люди: нормализуем регистр перед проверкой.
// Роли в UserScope уже в верхнем регистре (нормализуются при загрузке).
func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, strings.ToUpper(strings.TrimSpace(r)))
	}
	return out
}

func hasAnyNormalized(user domain.UserScope, roles []string) bool {
	return user.HasAnyRole(normalizeRoles(roles))
}

func hasAllNormalized(user domain.UserScope, roles []string) bool {
	return user.HasAllRoles(normalizeRoles(roles))
}
