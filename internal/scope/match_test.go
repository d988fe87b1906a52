package scope

import (
	"testing"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/Purchase_Orders/15", "/purchase-orders/15"},
		{"/shipments//1/?page=2", "/shipments/1"},
		{"/shipments/", "/shipments"},
		{"/", "/"},
		{"", ""},
		{"  /a_b/  ", "/a-b"},
	}
	for _, c := range cases {
		if got := NormalizePath(c.in); got != c.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMatchGlobSemantics(t *testing.T) {
	cases := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"/shipments*", "/shipments", true},
		{"/shipments*", "/shipments/1", true},
		// '*' обязан пересекать '/' — в отличие от path.Match
		{"/user-partners*", "/user-partners/15/links", true},
		{"/shipments*", "/purchase-orders", false},
		{"reports.*", "reports.visibility", true},
		{"reports.*", "shipments.list", false},
		{"/a/?/c", "/a/b/c", true},
		{"/a/?/c", "/a/bb/c", false},
		{"*", "anything/at/all", true},
		{"", "", true},
	}
	for _, c := range cases {
		if got := Match(c.pattern, c.s); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}

func rules(rs ...domain.PolicyRule) []domain.PolicyRule { return rs }

func TestBestMatchMethodPrecision(t *testing.T) {
	withMethod := domain.PolicyRule{ID: "get-only", Path: "/shipments*", Method: "GET"}
	anyMethod := domain.PolicyRule{ID: "any", Path: "/shipments*"}

	// Явный метод матчит только свой verb
	if got := BestMatch(rules(withMethod), "/shipments/1", "GET"); got == nil || got.ID != "get-only" {
		t.Fatalf("expected get-only to match GET /shipments/1, got %+v", got)
	}
	if got := BestMatch(rules(withMethod), "/shipments", "POST"); got != nil {
		t.Fatalf("method-restricted rule must not match POST, got %+v", got)
	}
	// Правило без метода покрывает оба
	if got := BestMatch(rules(anyMethod), "/shipments/1", "GET"); got == nil {
		t.Fatal("method-less rule must match GET")
	}
	if got := BestMatch(rules(anyMethod), "/shipments", "POST"); got == nil {
		t.Fatal("method-less rule must match POST")
	}
	// При обоих подошедших — явный метод старше, независимо от порядка
	if got := BestMatch(rules(anyMethod, withMethod), "/shipments/1", "GET"); got == nil || got.ID != "get-only" {
		t.Fatalf("explicit method must outrank method-less, got %+v", got)
	}
}

func TestBestMatchSpecificityTieBreak(t *testing.T) {
	broad := domain.PolicyRule{ID: "broad", Path: "/a*"}
	narrow := domain.PolicyRule{ID: "narrow", Path: "/ab*"}

	got := BestMatch(rules(broad, narrow), "/abc", "GET")
	if got == nil || got.ID != "narrow" {
		t.Fatalf("longer literal pattern must win, got %+v", got)
	}
	// Порядок объявления не должен влиять на исход специфичности
	got = BestMatch(rules(narrow, broad), "/abc", "GET")
	if got == nil || got.ID != "narrow" {
		t.Fatalf("longer literal pattern must win regardless of order, got %+v", got)
	}
}

func TestBestMatchFewerWildcardsWins(t *testing.T) {
	// Одинаковая литеральная длина (4), разное число wildcard-символов
	noisy := domain.PolicyRule{ID: "noisy", Path: "/a*/c*"}
	clean := domain.PolicyRule{ID: "clean", Path: "/ab/c*"}

	got := BestMatch(rules(noisy, clean), "/ab/cd", "GET")
	if got == nil || got.ID != "clean" {
		t.Fatalf("fewer wildcards must win the tie, got %+v", got)
	}
}

func TestBestMatchDeclarationOrder(t *testing.T) {
	first := domain.PolicyRule{ID: "first", Path: "/x*"}
	second := domain.PolicyRule{ID: "second", Path: "/y*"}
	// Полная ничья невозможна для разных путей; проверяем равные шаблоны
	dup1 := domain.PolicyRule{ID: "dup1", Path: "/same*"}
	dup2 := domain.PolicyRule{ID: "dup2", Path: "/same*"}

	if got := BestMatch(rules(first, second), "/x1", "GET"); got == nil || got.ID != "first" {
		t.Fatalf("unexpected match: %+v", got)
	}
	if got := BestMatch(rules(dup1, dup2), "/same-path", "GET"); got == nil || got.ID != "dup1" {
		t.Fatalf("declaration order must break full ties, got %+v", got)
	}
}

func TestBestMatchSkipsDisabled(t *testing.T) {
	off := false
	disabled := domain.PolicyRule{ID: "disabled", Path: "/shipments*", Enabled: &off}
	fallback := domain.PolicyRule{ID: "fallback", Path: "/ship*"}

	got := BestMatch(rules(disabled, fallback), "/shipments/9", "GET")
	if got == nil || got.ID != "fallback" {
		t.Fatalf("disabled rule must be skipped, got %+v", got)
	}
}
