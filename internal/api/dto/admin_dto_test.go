package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestPasswordLimitCountsBytes(t *testing.T) {
	ok := CreateUserRequest{Email: "erin@example.com", Password: strings.Repeat("a", 72)}
	assert.NoError(t, Check(ok))

	multibyte := CreateUserRequest{Email: "erin@example.com", Password: strings.Repeat("é", 72)}
	err := Check(multibyte)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	assert.Equal(t, "password", apperrors.ToDomainError(err).Details["field"])

	admin := CreateAdminRequest{Email: "root@example.com", Password: strings.Repeat("a", 73), Role: domain.AdminRoleSub}
	err = Check(admin)
	require.Error(t, err)
	assert.Equal(t, "password", apperrors.ToDomainError(err).Details["field"])
}

func TestDashboardResponseKeys(t *testing.T) {
	adminID := int64(3)
	resp := NewDashboardResponse(&domain.TicketStats{
		Total:    3,
		Pending:  1,
		Resolved: 2,
		Workload: []domain.AdminWorkload{{AdminID: &adminID, Count: 2}, {Count: 1}},
	})
	assert.Equal(t, int64(3), resp.Total)
	require.Len(t, resp.Workload, 2)
	assert.Equal(t, WorkloadResponse{AdminID: &adminID, Count: 2}, resp.Workload[0])
	assert.Nil(t, resp.Workload[1].AdminID)
}
