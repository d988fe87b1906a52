package domain

import "sort"

// Имена полей фильтрации (измерений скоупа). Для движка это непрозрачные
// идентификаторы: бизнес-смысл (экспедитор/поставщик/клиент) живет в схеме БД.
const (
	DimensionForwarder = "forwarder_id"
	DimensionVendor    = "vendor_id"
	DimensionCustomer  = "customer_id"
)

// DefaultPrecedence — фиксированное старшинство измерений для legacy-режима:
// экспедитор перекрывает поставщика, поставщик — клиента.
var DefaultPrecedence = []string{DimensionForwarder, DimensionVendor, DimensionCustomer}

// KnownDimensions перечисляет допустимые измерения для валидации черновиков
var KnownDimensions = map[string]struct{}{
	DimensionForwarder: {},
	DimensionVendor:    {},
	DimensionCustomer:  {},
}

// UserScope — разрешенные пользователю роли и ID по каждому измерению,
// поднятые из таблиц связей. Движок решений получает его уже готовым
// и не ходит в БД сам.
type UserScope struct {
	Roles        map[string]struct{}
	DimensionIDs map[string]map[int64]struct{}
}

// HasRole проверяет роль без учета регистра не требуется:
// роли нормализуются в верхний регистр при загрузке.
func (s UserScope) HasRole(role string) bool {
	_, ok := s.Roles[role]
	return ok
}

// HasAnyRole — true, если у пользователя есть хотя бы одна роль из списка
func (s UserScope) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if s.HasRole(r) {
			return true
		}
	}
	return false
}

// HasAllRoles — true, если у пользователя есть все роли из списка
func (s UserScope) HasAllRoles(roles []string) bool {
	for _, r := range roles {
		if !s.HasRole(r) {
			return false
		}
	}
	return true
}

// IDs возвращает отсортированный срез ID измерения (детерминированный вывод)
func (s UserScope) IDs(dimension string) []int64 {
	set := s.DimensionIDs[dimension]
	if len(set) == 0 {
		return nil
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
