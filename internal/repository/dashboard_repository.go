package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// DashboardRepository computes read-only ticket rollups.
type DashboardRepository interface {
	TicketStats(ctx context.Context) (*domain.TicketStats, error)
}

type dashboardRepository struct {
	db DBTX
}

// NewDashboardRepository builds repository.
func NewDashboardRepository(db DBTX) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) TicketStats(ctx context.Context) (*domain.TicketStats, error) {
	const countsQuery = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status=$1),
               COUNT(*) FILTER (WHERE status=$2),
               COUNT(*) FILTER (WHERE status=$3),
               COUNT(*) FILTER (WHERE status=$4)
        FROM tickets`
	const workloadQuery = `
        SELECT assigned_admin_id, COUNT(*)
        FROM tickets GROUP BY assigned_admin_id
        ORDER BY assigned_admin_id NULLS LAST`

	db := conn(ctx, r.db)
	stats := &domain.TicketStats{Workload: []domain.AdminWorkload{}}
	if err := db.QueryRow(ctx, countsQuery,
		string(domain.TicketStatusPending),
		string(domain.TicketStatusInProgress),
		string(domain.TicketStatusOnHold),
		string(domain.TicketStatusResolved),
	).Scan(&stats.Total, &stats.Pending, &stats.InProgress, &stats.OnHold, &stats.Resolved); err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, workloadQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var w domain.AdminWorkload
		if err := rows.Scan(&w.AdminID, &w.Count); err != nil {
			return nil, err
		}
		stats.Workload = append(stats.Workload, w)
	}
	return stats, rows.Err()
}
