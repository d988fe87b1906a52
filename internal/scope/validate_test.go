package scope

import (
	"errors"
	"strings"
	"testing"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

func TestValidateDocumentAcceptsWellFormedPayload(t *testing.T) {
	payload := []byte(`{
		"schema_version": "2.0",
		"rules": [
			{"id": "po", "path": "/purchase-orders*", "method": "GET", "scope": ["customer_id", "vendor_id"]},
			{"id": "admin", "path": "/user-partners*", "scope": [], "bypass_roles": ["ADMIN_ORG"]}
		]
	}`)

	doc, err := ValidateDocument(payload)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if len(doc.Rules) != 2 || doc.Rules[0].ID != "po" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestValidateDocumentCollectsAllIssues(t *testing.T) {
	payload := []byte(`{
		"schema_version": "9.9",
		"rules": [
			{"id": "a", "method": "FETCH", "scope": ["galaxy_id"]},
			{"id": "a", "path": "/x"}
		]
	}`)

	_, err := ValidateDocument(payload)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	wantFragments := []string{
		"unknown schema_version",
		"path is required",
		"unknown method",
		"unknown scope dimension",
		"duplicate rule id",
	}
	joined := strings.Join(verr.Issues, "\n")
	for _, frag := range wantFragments {
		if !strings.Contains(joined, frag) {
			t.Errorf("issues must mention %q, got:\n%s", frag, joined)
		}
	}
}

func TestValidateDocumentRejectsEmptyRules(t *testing.T) {
	_, err := ValidateDocument([]byte(`{"schema_version": "2.0", "rules": []}`))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateDocumentRejectsGarbage(t *testing.T) {
	_, err := ValidateDocument([]byte(`["not", "an", "object"]`))
	if err == nil {
		t.Fatal("non-object payload must be rejected")
	}
}
