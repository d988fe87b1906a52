package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/soubhik-sen/FLUXPORT/internal/console/service"
	"github.com/soubhik-sen/FLUXPORT/internal/domain"
	"github.com/soubhik-sen/FLUXPORT/internal/infra/auth"
)

type PolicyHandler struct {
	service *service.PolicyService
}

func NewPolicyHandler(s *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: s}
}

// ListTypes возвращает реестр типов политик
// GET /v1/policy-types
func (h *PolicyHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListTypes(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch policy types", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// RegisterType создает тип (идемпотентно)
// POST /v1/policy-types
func (h *PolicyHandler) RegisterType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TypeKey     string `json:"type_key"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TypeKey == "" {
		http.Error(w, "type_key is required", http.StatusBadRequest)
		return
	}

	t, err := h.service.RegisterType(r.Context(), req.TypeKey, req.DisplayName, req.Description)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetType возвращает запись реестра
// GET /v1/policy-types/{key}
func (h *PolicyHandler) GetType(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetType(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// SaveDraft перезаписывает черновик документа.
// PUT /v1/policy-types/{key}/draft — тело запроса и есть payload документа.
func (h *PolicyHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	v, err := h.service.SaveDraft(r.Context(), chi.URLParam(r, "key"), payload, auth.OperatorEmail(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetDraft возвращает текущий черновик
// GET /v1/policy-types/{key}/draft
func (h *PolicyHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetDraft(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Publish делает черновик активной версией
// POST /v1/policy-types/{key}/publish
func (h *PolicyHandler) Publish(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Publish(r.Context(), chi.URLParam(r, "key"), auth.OperatorEmail(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetPublished возвращает действующую версию
// GET /v1/policy-types/{key}/published
func (h *PolicyHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetPublished(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListVersions возвращает историю типа, свежие первыми
// GET /v1/policy-types/{key}/versions?limit=50
func (h *PolicyHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	versions, err := h.service.ListVersions(r.Context(), chi.URLParam(r, "key"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

// GetVersion возвращает конкретную версию истории
// GET /v1/policy-types/{key}/versions/{no}
func (h *PolicyHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	no, err := strconv.ParseInt(chi.URLParam(r, "no"), 10, 64)
	if err != nil || no <= 0 {
		http.Error(w, "version number must be a positive integer", http.StatusBadRequest)
		return
	}
	v, err := h.service.GetVersion(r.Context(), chi.URLParam(r, "key"), no)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DisableEngine — runtime-рубильник: все инстансы падают в legacy/union поведение
// POST /v1/engine/disable
func (h *PolicyHandler) DisableEngine(w http.ResponseWriter, r *http.Request) {
	h.toggleEngine(w, r, true)
}

// EnableEngine снимает рубильник
// POST /v1/engine/enable
func (h *PolicyHandler) EnableEngine(w http.ResponseWriter, r *http.Request) {
	h.toggleEngine(w, r, false)
}

func (h *PolicyHandler) toggleEngine(w http.ResponseWriter, r *http.Request, disabled bool) {
	if err := h.service.SetEngineDisabled(r.Context(), disabled); err != nil {
		http.Error(w, "Failed to toggle engine state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"disabled": disabled})
}

// writeError маппит доменные ошибки в HTTP-статусы
func (h *PolicyHandler) writeError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation_failed",
			"issues": vErr.Issues,
		})
	case errors.Is(err, domain.ErrTypeNotFound),
		errors.Is(err, domain.ErrNoDraft),
		errors.Is(err, domain.ErrNoPublished):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Encoding error", http.StatusInternalServerError)
	}
}
