package scope

import "strings"

// Rollout ограничивает метаданные-режим подмножеством операций на время
// поэтапной раскатки. Сам скоуп он никогда не вычисляет: только отвечает,
// применим ли union_metadata к данной операции.
type Rollout struct {
	patterns []string
}

// NewRollout принимает уже разобранный список glob-шаблонов имен операций.
// Пустой список означает «раскатка на всё».
func NewRollout(patterns []string) *Rollout {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Rollout{patterns: normalized}
}

// Applies — true, если операция попадает под раскатку.
// Операция без имени при непустом списке шаблонов не попадает никогда.
func (r *Rollout) Applies(endpointKey string) bool {
	if len(r.patterns) == 0 {
		return true
	}
	candidate := strings.ToLower(strings.TrimSpace(endpointKey))
	if candidate == "" {
		return false
	}
	for _, p := range r.patterns {
		if Match(p, candidate) {
			return true
		}
	}
	return false
}
