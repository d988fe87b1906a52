package scope

import (
	"testing"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

func TestResolveMode(t *testing.T) {
	cases := []struct {
		name           string
		enabled        bool
		mode           domain.PolicyMode
		unionEnabled   bool
		rolloutApplies bool
		want           domain.PolicyMode
	}{
		// Выключенный движок: только статический флаг, режим игнорируется
		{"disabled union flag on", false, domain.ModeUnionMetadata, true, true, domain.ModeUnion},
		{"disabled union flag off", false, domain.ModeUnion, false, true, domain.ModeLegacy},

		// auto — сахар поверх того же флага
		{"auto resolves union", true, domain.ModeAuto, true, true, domain.ModeUnion},
		{"auto resolves legacy", true, domain.ModeAuto, false, true, domain.ModeLegacy},

		// Явные режимы форсируются независимо от флага
		{"forced legacy", true, domain.ModeLegacy, true, true, domain.ModeLegacy},
		{"forced union", true, domain.ModeUnion, false, true, domain.ModeUnion},

		// union_metadata требует раскатки, иначе деградация до auto
		{"metadata in rollout", true, domain.ModeUnionMetadata, false, true, domain.ModeUnionMetadata},
		{"metadata outside rollout degrades to union", true, domain.ModeUnionMetadata, true, false, domain.ModeUnion},
		{"metadata outside rollout degrades to legacy", true, domain.ModeUnionMetadata, false, false, domain.ModeLegacy},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ResolveMode(c.enabled, c.mode, c.unionEnabled, c.rolloutApplies)
			if got != c.want {
				t.Fatalf("ResolveMode(%v, %s, %v, %v) = %s, want %s",
					c.enabled, c.mode, c.unionEnabled, c.rolloutApplies, got, c.want)
			}
		})
	}
}

func TestParsePolicyModeFallsBackToAuto(t *testing.T) {
	if got := domain.ParsePolicyMode("experimental"); got != domain.ModeAuto {
		t.Fatalf("unknown mode must fall back to auto, got %s", got)
	}
	if got := domain.ParsePolicyMode("union_metadata"); got != domain.ModeUnionMetadata {
		t.Fatalf("valid mode must be preserved, got %s", got)
	}
}
