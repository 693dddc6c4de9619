package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestUserRepositoryCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice@example.com", "digest", "Alice", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	user := &domain.User{Email: "alice@example.com", PasswordHash: "digest", FullName: "Alice", Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, now, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice@example.com", "digest", "", true).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &domain.User{Email: "alice@example.com", PasswordHash: "digest", Active: true})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRepositoryGetByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewAdminRepository(mock)
	now := time.Now()
	name := "Root"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + adminColumns + ` FROM admins WHERE email=$1`)).
		WithArgs("root@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "hashed_password", "full_name", "role", "is_active", "created_at"}).
			AddRow(int64(1), "root@example.com", "digest", &name, "senior_admin", true, now))

	admin, err := repo.GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.AdminRoleSenior, admin.Role)
	assert.Equal(t, "Root", admin.FullName)
	assert.True(t, admin.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRepositorySetActiveMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewAdminRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admins SET is_active=$1 WHERE id=$2`)).
		WithArgs(true, int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetActive(context.Background(), 99, true)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepositoryTransitionStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewTicketRepository(mock)
	query := regexp.QuoteMeta(`UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`)

	mock.ExpectExec(query).
		WithArgs("In Progress", int64(3), "Pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(query).
		WithArgs("In Progress", int64(3), "Pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	moved, err := repo.TransitionStatus(context.Background(), 3, domain.TicketStatusPending, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.TransitionStatus(context.Background(), 3, domain.TicketStatusPending, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepositoryListScopedToUser(t *testing.T) {
	mock := newMock(t)
	repo := NewTicketRepository(mock)
	now := time.Now()
	userID := int64(5)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets WHERE user_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`)).
		WithArgs(userID, 100, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "description", "status", "assigned_admin_id", "hold_reason", "created_at", "updated_at"}).
			AddRow(int64(2), userID, "printer jam", "Pending", (*int64)(nil), (*string)(nil), now, (*time.Time)(nil)))

	tickets, err := repo.List(context.Background(), TicketFilter{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketStatusPending, tickets[0].Status)
	assert.Nil(t, tickets[0].AssignedAdminID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentRepositoryListByTicketsEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewAttachmentRepository(mock)

	groups, err := repo.ListByTickets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepositoryTicketStats(t *testing.T) {
	mock := newMock(t)
	repo := NewDashboardRepository(mock)
	adminID := int64(1)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*),`)).
		WithArgs("Pending", "In Progress", "On Hold", "Resolved").
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "in_progress", "on_hold", "resolved"}).
			AddRow(int64(4), int64(1), int64(1), int64(1), int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT assigned_admin_id, COUNT(*)`)).
		WillReturnRows(pgxmock.NewRows([]string{"assigned_admin_id", "count"}).
			AddRow(&adminID, int64(3)).
			AddRow((*int64)(nil), int64(1)))

	stats, err := repo.TicketStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.OnHold)
	require.Len(t, stats.Workload, 2)
	assert.Equal(t, int64(1), *stats.Workload[0].AdminID)
	assert.Nil(t, stats.Workload[1].AdminID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorRollsBackOnError(t *testing.T) {
	mock := newMock(t)
	tx := NewTransactor(mock)
	repo := NewStatusLogRepository(mock)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ticket_status_logs`)).
		WithArgs(int64(1), (*string)(nil), "Pending", (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "timestamp"}).AddRow(int64(1), time.Now()))
	mock.ExpectRollback()

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		entry := &domain.StatusLogEntry{TicketID: 1, NewStatus: domain.TicketStatusPending}
		if err := repo.Create(ctx, entry); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactorCommitsAndJoinsNested(t *testing.T) {
	mock := newMock(t)
	tx := NewTransactor(mock)

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		calls++
		return tx.WithinTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizePage(t *testing.T) {
	limit, offset := normalizePage(0, -3, 100, 500)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, offset)

	limit, _ = normalizePage(10_000, 0, 100, 500)
	assert.Equal(t, 500, limit)
}

func TestTicketRepositoryUpdateWorkflowUnknownAdmin(t *testing.T) {
	mock := newMock(t)
	repo := NewTicketRepository(mock)
	adminID := int64(404)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE tickets SET status=$1, assigned_admin_id=$2, hold_reason=$3, updated_at=NOW()`)).
		WithArgs("In Progress", &adminID, (*string)(nil), int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.UpdateWorkflow(context.Background(), &domain.Ticket{ID: 1, Status: domain.TicketStatusInProgress, AssignedAdminID: &adminID})
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}
