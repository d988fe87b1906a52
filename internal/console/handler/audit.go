package handler

import (
	"net/http"
	"strconv"

	"github.com/soubhik-sen/FLUXPORT/internal/console/service"
	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(s *service.AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetEntries возвращает журнал решений с поддержкой фильтрации
// GET /v1/audit?user_email=...&decision=...&limit=100
func (h *AuditHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filter := domain.AuditFilter{
		UserEmail: r.URL.Query().Get("user_email"),
		Decision:  r.URL.Query().Get("decision"),
		Limit:     limit,
	}

	entries, err := h.service.FetchEntries(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to fetch audit entries", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
