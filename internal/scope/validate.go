package scope

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

var allowedMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {},
}

var knownSchemaVersions = map[string]struct{}{
	domain.SchemaVersionCurrent: {},
}

// ValidateDocument разбирает и проверяет payload черновика.
// Все дефекты формы ловим здесь, на сохранении: до вычисления скоупа
// невалидный документ дойти не должен. Возвращает полный список проблем
// одним *domain.ValidationError, чтобы админ чинил документ за один заход.
func ValidateDocument(payload []byte) (*domain.PolicyDocument, error) {
	var doc domain.PolicyDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, &domain.ValidationError{Issues: []string{fmt.Sprintf("payload is not a valid policy document: %v", err)}}
	}

	var issues []string

	if _, ok := knownSchemaVersions[strings.TrimSpace(doc.SchemaVersion)]; !ok {
		issues = append(issues, fmt.Sprintf("unknown schema_version %q (expected %s)", doc.SchemaVersion, domain.SchemaVersionCurrent))
	}
	if len(doc.Rules) == 0 {
		issues = append(issues, "rules must be a non-empty list")
	}

	seenIDs := make(map[string]struct{})
	for i := range doc.Rules {
		rule := &doc.Rules[i]
		label := rule.ID
		if label == "" {
			label = fmt.Sprintf("index:%d", i)
		}

		if strings.TrimSpace(rule.Path) == "" {
			issues = append(issues, fmt.Sprintf("rule %s: path is required", label))
		}
		if m := strings.ToUpper(strings.TrimSpace(rule.Method)); m != "" {
			if _, ok := allowedMethods[m]; !ok {
				issues = append(issues, fmt.Sprintf("rule %s: unknown method %q", label, rule.Method))
			}
		}
		for _, dim := range rule.Scope {
			if _, ok := domain.KnownDimensions[strings.TrimSpace(dim)]; !ok {
				issues = append(issues, fmt.Sprintf("rule %s: unknown scope dimension %q", label, dim))
			}
		}
		if rule.ID != "" {
			if _, dup := seenIDs[rule.ID]; dup {
				issues = append(issues, fmt.Sprintf("rule %s: duplicate rule id", label))
			}
			seenIDs[rule.ID] = struct{}{}
		}
	}

	if len(issues) > 0 {
		return nil, &domain.ValidationError{Issues: issues}
	}
	return &doc, nil
}
