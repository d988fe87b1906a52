package service

import (
	"context"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

type DashboardProvider interface {
	GetDecisionDashboard(ctx context.Context) (*domain.DecisionDashboard, error)
}

type DashboardService struct {
	repo DashboardProvider
}

func NewDashboardService(repo DashboardProvider) *DashboardService {
	return &DashboardService{repo: repo}
}

func (s *DashboardService) GetStats(ctx context.Context) (*domain.DecisionDashboard, error) {
	return s.repo.GetDecisionDashboard(ctx)
}
