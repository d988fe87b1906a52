package scope

/*
Файл match.go реализует сопоставление запроса с правилами документа политик.

Семантика шаблонов — fnmatch-стиль: '*' покрывает любую последовательность
символов, включая '/'. Стандартный path.Match здесь не подходит: ему '*'
не пересекает разделитель сегментов, а правила вида "/user-partners*"
обязаны матчить и "/user-partners/15/links".

Разрешение конфликтов между несколькими подошедшими правилами:
 1. Правило с явным методом старше правила без метода.
 2. Далее — больше литеральных (не-wildcard) символов в шаблоне.
 3. Далее — меньше wildcard-символов.
 4. Последняя ничья — порядок объявления, первое выигрывает.
*/

import (
	"regexp"
	"strings"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

var multiSlash = regexp.MustCompile(`/+`)

// NormalizePath приводит путь к канонической форме до сопоставления:
// нижний регистр, без query-части, '_' -> '-', схлопнутые '//',
// без хвостового '/' (кроме корня).
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.ToLower(p)
	p = strings.ReplaceAll(p, "_", "-")
	p = multiSlash.ReplaceAllString(p, "/")
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// Match проверяет строку против glob-шаблона ('*' и '?').
// Итеративный алгоритм с откатом к последней '*' — без рекурсии и аллокаций.
func Match(pattern, s string) bool {
	var pi, si int
	star, mark := -1, 0

	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			// Откат: отдаем '*' еще один символ
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// literalLen считает не-wildcard символы шаблона (мера специфичности)
func literalLen(pattern string) int {
	n := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '*' && pattern[i] != '?' {
			n++
		}
	}
	return n
}

func wildcardCount(pattern string) int {
	n := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' || pattern[i] == '?' {
			n++
		}
	}
	return n
}

// pathMatches — шаблон без wildcard-символов сравнивается на точное равенство
func pathMatches(rulePath, actual string) bool {
	pattern := NormalizePath(rulePath)
	if pattern == "" || actual == "" {
		return false
	}
	if !strings.ContainsAny(pattern, "*?") {
		return pattern == actual
	}
	return Match(pattern, actual)
}

// methodMatches: пустой метод правила покрывает любой, иначе точное равенство
func methodMatches(ruleMethod, actual string) bool {
	if ruleMethod == "" {
		return true
	}
	if actual == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(ruleMethod), strings.TrimSpace(actual))
}

// BestMatch выбирает правило с максимальной специфичностью для (path, method).
// Возвращает nil, если ни одно правило не подошло — «нет решения».
func BestMatch(rules []domain.PolicyRule, path, method string) *domain.PolicyRule {
	actual := NormalizePath(path)

	var best *domain.PolicyRule
	var bestExplicit bool
	var bestLiteral, bestWildcards int

	for i := range rules {
		rule := &rules[i]
		if !rule.IsEnabled() {
			continue
		}
		if !pathMatches(rule.Path, actual) {
			continue
		}
		if !methodMatches(rule.Method, method) {
			continue
		}

		explicit := rule.Method != ""
		pattern := NormalizePath(rule.Path)
		lit := literalLen(pattern)
		wild := wildcardCount(pattern)

		if best == nil {
			best, bestExplicit, bestLiteral, bestWildcards = rule, explicit, lit, wild
			continue
		}
		// Явный метод всегда старше
		if explicit != bestExplicit {
			if explicit {
				best, bestExplicit, bestLiteral, bestWildcards = rule, explicit, lit, wild
			}
			continue
		}
		if lit != bestLiteral {
			if lit > bestLiteral {
				best, bestExplicit, bestLiteral, bestWildcards = rule, explicit, lit, wild
			}
			continue
		}
		if wild < bestWildcards {
			best, bestExplicit, bestLiteral, bestWildcards = rule, explicit, lit, wild
		}
		// Полная ничья — первое объявленное уже в best
	}
	return best
}
