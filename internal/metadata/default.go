package metadata

import "github.com/soubhik-sen/FLUXPORT/internal/domain"

// DefaultDocument — вшитый документ политик «последней надежды».
// Используется, когда не настроен файл и недоступна БД: сервис обязан
// отдавать осмысленное решение даже при полностью деградированном окружении.
func DefaultDocument() *domain.PolicyDocument {
	allDims := []string{domain.DimensionCustomer, domain.DimensionVendor, domain.DimensionForwarder}
	business := []string{"USER_PURCH_BUYER", "SUPPLIER", "FORWARDER"}
	admin := []string{"ADMIN_ORG"}

	return &domain.PolicyDocument{
		SchemaVersion: domain.SchemaVersionCurrent,
		Description:   "Built-in role scope policy defaults.",
		Rules: []domain.PolicyRule{
			{
				ID:          "POL-PO-LIST",
				Path:        "/api/v1/purchase-orders*",
				Method:      "GET",
				Scope:       allDims,
				AllowedAny:  business,
				BypassRoles: admin,
			},
			{
				ID:          "POL-PO-CREATE",
				Path:        "/api/v1/purchase-orders",
				Method:      "POST",
				Scope:       []string{domain.DimensionCustomer, domain.DimensionForwarder},
				AllowedAny:  []string{"USER_PURCH_BUYER"},
				BypassRoles: admin,
			},
			{
				ID:          "POL-SHIP-CREATE",
				Path:        "/api/v1/shipments/from-schedule-lines",
				Method:      "POST",
				Scope:       []string{domain.DimensionCustomer, domain.DimensionForwarder},
				AllowedAny:  []string{"USER_PURCH_BUYER", "FORWARDER"},
				BypassRoles: admin,
			},
			{
				ID:          "POL-SHIP",
				Path:        "/api/v1/shipments*",
				Scope:       allDims,
				AllowedAny:  business,
				BypassRoles: admin,
			},
			{
				ID:          "POL-REPORTS",
				Path:        "/api/v1/reports*",
				Method:      "GET",
				Scope:       allDims,
				AllowedAny:  business,
				BypassRoles: admin,
			},
			{
				ID:          "POL-USER-PARTNERS",
				Path:        "/user-partners*",
				Scope:       []string{},
				AllowedAny:  admin,
				BypassRoles: admin,
			},
			{
				ID:          "POL-USER-CUSTOMERS",
				Path:        "/user-customers*",
				Scope:       []string{},
				AllowedAny:  admin,
				BypassRoles: admin,
			},
			{
				ID:          "POL-CUSTOMER-FORWARDERS",
				Path:        "/customer-forwarders*",
				Scope:       []string{domain.DimensionForwarder},
				AllowedAny:  []string{"ADMIN_ORG", "FORWARDER"},
				BypassRoles: admin,
			},
		},
	}
}
