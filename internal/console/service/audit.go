package service

import (
	"context"
	"fmt"

	"github.com/soubhik-sen/FLUXPORT/internal/audit"
	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// AuditLogProvider описывает контракт для чтения журнала решений.
// Используем структуру AuditEntry из пакета audit, чтобы сохранить единую модель данных.
type AuditLogProvider interface {
	FindAuditEntries(ctx context.Context, filter domain.AuditFilter) ([]audit.AuditEntry, error)
}

type AuditService struct {
	repo AuditLogProvider
}

func NewAuditService(repo AuditLogProvider) *AuditService {
	return &AuditService{repo: repo}
}

// FetchEntries запрашивает журнал с фильтрацией.
// Логика фильтрации (пустые строки или конкретные значения) инкапсулирована в репозитории.
func (s *AuditService) FetchEntries(ctx context.Context, filter domain.AuditFilter) ([]audit.AuditEntry, error) {
	entries, err := s.repo.FindAuditEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch entries: %w", err)
	}
	return entries, nil
}
