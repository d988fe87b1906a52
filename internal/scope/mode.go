package scope

import "github.com/soubhik-sen/FLUXPORT/internal/domain"

// ResolveMode вычисляет эффективный режим для одного запроса.
//
// Контракт dark launch: при выключенном движке (конфигом или runtime
// kill switch) поведение определяется только статическим union-флагом —
// ровно как до появления движка. Метаданные при этом не трогаются вообще.
//
// auto — сахар поверх того же флага, не третье поведение. Явные
// legacy/union форсируются независимо от флага. union_metadata требует
// попадания операции в раскатку, иначе деградирует до auto-разрешения.
func ResolveMode(enabled bool, mode domain.PolicyMode, unionEnabled bool, rolloutApplies bool) domain.PolicyMode {
	autoResolved := domain.ModeLegacy
	if unionEnabled {
		autoResolved = domain.ModeUnion
	}

	if !enabled {
		return autoResolved
	}

	switch mode {
	case domain.ModeLegacy:
		return domain.ModeLegacy
	case domain.ModeUnion:
		return domain.ModeUnion
	case domain.ModeUnionMetadata:
		if rolloutApplies {
			return domain.ModeUnionMetadata
		}
		return autoResolved
	default: // auto и всё неопознанное
		return autoResolved
	}
}
