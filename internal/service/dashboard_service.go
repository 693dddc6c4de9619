package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// DashboardService computes ticket rollups fresh on every call.
type DashboardService struct {
	stats repository.DashboardRepository
}

// NewDashboardService constructs the service.
func NewDashboardService(stats repository.DashboardRepository) *DashboardService {
	return &DashboardService{stats: stats}
}

// Stats returns totals per status and the per-admin workload, including an
// unassigned group.
func (s *DashboardService) Stats(ctx context.Context, actor *domain.Principal) (*domain.TicketStats, error) {
	if err := anyAdmin(actor); err != nil {
		return nil, err
	}
	stats, err := s.stats.TicketStats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}
