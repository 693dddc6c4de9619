package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type fixture struct {
	store      *memory.Store
	files      storage.Store
	dir        string
	hasher     *auth.Hasher
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	tickets    *TicketService
	admins     *AdminService
	auth       *AuthService
	dashboard  *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	return newFixtureWithStore(t, files, dir)
}

func newFixtureWithStore(t *testing.T, files storage.Store, dir string) *fixture {
	t.Helper()
	store := memory.NewStore()
	hasher := auth.NewHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	dispatcher := events.NewInMemoryDispatcher()
	return &fixture{
		store:      store,
		files:      files,
		dir:        dir,
		hasher:     hasher,
		tokens:     tokens,
		dispatcher: dispatcher,
		tickets: NewTicketService(TicketDependencies{
			Transactor:     store,
			TicketRepo:     store.Tickets(),
			AttachmentRepo: store.Attachments(),
			StatusLogRepo:  store.StatusLogs(),
			Store:          files,
			Dispatcher:     dispatcher,
			Logger:         zap.NewNop(),
		}),
		admins: NewAdminService(AdminDependencies{
			UserRepo:  store.Users(),
			AdminRepo: store.Admins(),
			Hasher:    hasher,
		}),
		auth: NewAuthService(AuthDependencies{
			UserRepo:  store.Users(),
			AdminRepo: store.Admins(),
			Hasher:    hasher,
			Tokens:    tokens,
		}),
		dashboard: NewDashboardService(store.Dashboard()),
	}
}

func (f *fixture) user(t *testing.T, email string) *domain.Principal {
	t.Helper()
	hash, err := f.hasher.Hash("pw")
	require.NoError(t, err)
	user := &domain.User{Email: email, PasswordHash: hash, Active: true}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return domain.UserPrincipal(user)
}

func (f *fixture) admin(t *testing.T, email string, role domain.AdminRole) *domain.Principal {
	t.Helper()
	hash, err := f.hasher.Hash("pw")
	require.NoError(t, err)
	admin := &domain.Admin{Email: email, PasswordHash: hash, Role: role, Active: true}
	require.NoError(t, f.store.Admins().Create(context.Background(), admin))
	return domain.AdminPrincipal(admin)
}

func (f *fixture) ticket(t *testing.T, owner *domain.Principal, description string) *domain.TicketDetail {
	t.Helper()
	detail, err := f.tickets.CreateTicket(context.Background(), owner, CreateTicketInput{Description: description})
	require.NoError(t, err)
	return detail
}

func upload(name, body string) AttachmentUpload {
	return AttachmentUpload{
		Filename:    name,
		ContentType: "text/plain",
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }
func strPtr(s string) *string                                { return &s }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, code), "want %s, got %v", code, err)
}

func TestCreateTicketStartsPendingWithAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")

	var created []events.Event
	f.dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		created = append(created, e)
		return nil
	})

	detail, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Description: "printer broken",
		Files:       []AttachmentUpload{upload("log.txt", "paper jam"), upload("log.txt", "again")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, detail.Status)
	assert.Equal(t, alice.ID(), detail.UserID)
	assert.Nil(t, detail.AssignedAdminID)
	require.Len(t, detail.Attachments, 2)
	assert.Equal(t, "log.txt", detail.Attachments[0].Filename)
	assert.NotEqual(t, detail.Attachments[0].FilePath, detail.Attachments[1].FilePath)
	require.Len(t, created, 1)

	_, rc, err := f.tickets.OpenAttachment(ctx, alice, detail.ID, detail.Attachments[0].ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "paper jam", string(body))
}

func TestCreateTicketRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)

	_, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{Description: "   "})
	assertCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.tickets.CreateTicket(ctx, senior, CreateTicketInput{Description: "admins do not file"})
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.CreateTicket(ctx, nil, CreateTicketInput{Description: "anon"})
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

type brokenStore struct {
	storage.Store
	mu    sync.Mutex
	calls int
}

func (b *brokenStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()
	if first {
		return b.Store.Save(ctx, name, r, size, contentType)
	}
	return "", errors.New("bucket unavailable")
}

func TestCreateTicketStorageFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	broken := &brokenStore{Store: local}
	f := newFixtureWithStore(t, broken, dir)
	alice := f.user(t, "alice@example.com")

	_, err = f.tickets.CreateTicket(context.Background(), alice, CreateTicketInput{
		Description: "printer broken",
		Files:       []AttachmentUpload{upload("a.txt", "a"), upload("b.txt", "b")},
	})
	assertCode(t, err, apperrors.CodeStorageFailure)

	list, err := f.tickets.ListTickets(context.Background(), alice, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdminReadMovesPendingOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	junior := f.admin(t, "junior@example.com", domain.AdminRoleJunior)
	ticket := f.ticket(t, alice, "printer broken")

	// owner reads never move the ticket
	got, err := f.tickets.GetTicket(ctx, alice, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, got.Status)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			detail, err := f.tickets.GetTicket(ctx, junior, ticket.ID)
			assert.NoError(t, err)
			if detail != nil {
				assert.Equal(t, domain.TicketStatusInProgress, detail.Status)
			}
		}()
	}
	wg.Wait()

	history, err := f.tickets.History(ctx, junior, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.TicketStatusPending, *history[0].OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, history[0].NewStatus)
	assert.Equal(t, junior.ID(), *history[0].ChangedByAdminID)
}

func TestUserCannotReadOthersTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	ticket := f.ticket(t, alice, "vpn down")

	_, err := f.tickets.GetTicket(ctx, bob, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.GetTicket(ctx, bob, 9999)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.tickets.History(ctx, alice, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	mine, err := f.tickets.ListTickets(ctx, bob, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestUpdateTicketHoldRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	sub := f.admin(t, "sub@example.com", domain.AdminRoleSub)
	ticket := f.ticket(t, alice, "laptop fan")

	_, err := f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusOnHold)})
	assertCode(t, err, apperrors.CodeValidationFailed)
	assert.Equal(t, "hold_reason", apperrors.ToDomainError(err).Details["field"])

	_, err = f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{
		Status:     statusPtr(domain.TicketStatusOnHold),
		HoldReason: strPtr("  "),
	})
	assertCode(t, err, apperrors.CodeValidationFailed)

	held, err := f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{
		Status:     statusPtr(domain.TicketStatusOnHold),
		HoldReason: strPtr("waiting for parts"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOnHold, held.Status)
	assert.Equal(t, "waiting for parts", *held.HoldReason)

	// the stored reason satisfies a later On Hold update and survives leaving On Hold
	resumed, err := f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	require.NotNil(t, resumed.HoldReason)
	_, err = f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusOnHold)})
	require.NoError(t, err)

	history, err := f.tickets.History(ctx, sub, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.TicketStatusPending, *history[0].OldStatus)
	assert.Equal(t, domain.TicketStatusOnHold, history[2].NewStatus)
}

func TestUpdateTicketAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	junior := f.admin(t, "junior@example.com", domain.AdminRoleJunior)
	ticket := f.ticket(t, alice, "monitor flicker")

	_, err := f.tickets.UpdateTicket(ctx, junior, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusResolved)})
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.UpdateTicket(ctx, alice, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusResolved)})
	assertCode(t, err, apperrors.CodeForbidden)

	got, err := f.tickets.GetTicket(ctx, alice, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, got.Status)
}

func TestUpdateTicketSameStatusWritesNoLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)
	ticket := f.ticket(t, alice, "keyboard")

	updated, err := f.tickets.UpdateTicket(ctx, senior, ticket.ID, UpdateTicketInput{
		Status:          statusPtr(domain.TicketStatusPending),
		AssignedAdminID: int64Ptr(senior.ID()),
	})
	require.NoError(t, err)
	assert.Equal(t, senior.ID(), *updated.AssignedAdminID)
	assert.NotNil(t, updated.UpdatedAt)

	history, err := f.tickets.History(ctx, senior, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)
	ticket := f.ticket(t, alice, "mouse")

	_, err := f.tickets.UpdateTicket(ctx, senior, ticket.ID, UpdateTicketInput{Status: statusPtr("Closed")})
	assertCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.tickets.UpdateTicket(ctx, senior, ticket.ID, UpdateTicketInput{AssignedAdminID: int64Ptr(404)})
	assertCode(t, err, apperrors.CodeValidationFailed)
	assert.Equal(t, "assigned_admin_id", apperrors.ToDomainError(err).Details["field"])

	_, err = f.tickets.UpdateTicket(ctx, senior, 9999, UpdateTicketInput{Status: statusPtr(domain.TicketStatusResolved)})
	assertCode(t, err, apperrors.CodeNotFound)
}

func int64Ptr(v int64) *int64 { return &v }

func TestUpdateTicketRejectsWholeRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)
	sub := f.admin(t, "sub@example.com", domain.AdminRoleSub)
	ticket := f.ticket(t, alice, "docking station")

	_, err := f.tickets.UpdateTicket(ctx, senior, ticket.ID, UpdateTicketInput{
		Status:          statusPtr(domain.TicketStatusResolved),
		HoldReason:      strPtr("parts ordered"),
		AssignedAdminID: int64Ptr(404),
	})
	assertCode(t, err, apperrors.CodeValidationFailed)
	assert.Equal(t, "assigned_admin_id", apperrors.ToDomainError(err).Details["field"])

	_, err = f.tickets.UpdateTicket(ctx, senior, ticket.ID, UpdateTicketInput{
		Status:          statusPtr(domain.TicketStatusOnHold),
		AssignedAdminID: int64Ptr(sub.ID()),
	})
	assertCode(t, err, apperrors.CodeValidationFailed)
	assert.Equal(t, "hold_reason", apperrors.ToDomainError(err).Details["field"])

	// the owner's read leaves the status alone
	got, err := f.tickets.GetTicket(ctx, alice, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, got.Status)
	assert.Nil(t, got.HoldReason)
	assert.Nil(t, got.AssignedAdminID)

	history, err := f.tickets.History(ctx, senior, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestResolvedTicketCanBeReopened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	sub := f.admin(t, "sub@example.com", domain.AdminRoleSub)
	ticket := f.ticket(t, alice, "monitor flicker")

	resolved, err := f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)

	reopened, err := f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, reopened.Status)

	held, err := f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, held.Status)
	held, err = f.tickets.UpdateTicket(ctx, sub, ticket.ID, UpdateTicketInput{
		Status:     statusPtr(domain.TicketStatusOnHold),
		HoldReason: strPtr("user on leave"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOnHold, held.Status)

	history, err := f.tickets.History(ctx, sub, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.TicketStatusPending, *history[0].OldStatus)
	assert.Equal(t, domain.TicketStatusResolved, history[0].NewStatus)
	assert.Equal(t, domain.TicketStatusResolved, *history[1].OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, history[1].NewStatus)
	assert.Equal(t, domain.TicketStatusResolved, *history[3].OldStatus)
	assert.Equal(t, domain.TicketStatusOnHold, history[3].NewStatus)
}

func TestDashboardScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, f.ticket(t, alice, "ticket").ID)
	}
	for _, id := range ids[3:] {
		_, err := f.tickets.UpdateTicket(ctx, senior, id, UpdateTicketInput{Status: statusPtr(domain.TicketStatusResolved)})
		require.NoError(t, err)
	}
	_, err := f.tickets.UpdateTicket(ctx, senior, ids[0], UpdateTicketInput{
		Status:          statusPtr(domain.TicketStatusPending),
		AssignedAdminID: int64Ptr(senior.ID()),
	})
	require.NoError(t, err)

	stats, err := f.dashboard.Stats(ctx, senior)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(2), stats.Resolved)
	require.Len(t, stats.Workload, 2)
	assert.Equal(t, senior.ID(), *stats.Workload[0].AdminID)
	assert.Equal(t, int64(1), stats.Workload[0].Count)
	assert.Nil(t, stats.Workload[1].AdminID)
	assert.Equal(t, int64(4), stats.Workload[1].Count)

	_, err = f.dashboard.Stats(ctx, alice)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestAdminApprovalFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)
	sub := f.admin(t, "sub@example.com", domain.AdminRoleSub)

	_, err := f.admins.CreateAdmin(ctx, sub, CreateAdminInput{Email: "new@example.com", Password: "pw", Role: domain.AdminRoleJunior})
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.admins.CreateAdmin(ctx, senior, CreateAdminInput{Email: "new@example.com", Password: "pw", Role: "owner"})
	assertCode(t, err, apperrors.CodeValidationFailed)

	created, err := f.admins.CreateAdmin(ctx, senior, CreateAdminInput{Email: "new@example.com", Password: "s3cret", Role: domain.AdminRoleJunior})
	require.NoError(t, err)
	assert.False(t, created.Active)

	_, err = f.admins.CreateAdmin(ctx, senior, CreateAdminInput{Email: "new@example.com", Password: "other", Role: domain.AdminRoleJunior})
	assertCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.auth.LoginAdmin(ctx, "new@example.com", "s3cret")
	assertCode(t, err, apperrors.CodeAccountInactive)

	_, err = f.admins.SetAdminActive(ctx, senior, created.ID, true)
	require.NoError(t, err)

	result, err := f.auth.LoginAdmin(ctx, "new@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, domain.PrincipalKindAdmin, result.Kind)
	identity, err := f.tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", identity.Subject)

	_, err = f.admins.SetAdminActive(ctx, senior, 9999, true)
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.admins.SetAdminActive(ctx, senior, senior.ID(), false)
	assertCode(t, err, apperrors.CodeValidationFailed)
}

func TestLoginSeparatesIdentityStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice@example.com")
	f.admin(t, "root@example.com", domain.AdminRoleSenior)

	_, err := f.auth.LoginUser(ctx, "root@example.com", "pw")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.auth.LoginAdmin(ctx, "alice@example.com", "pw")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.auth.LoginUser(ctx, "alice@example.com", "wrong")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.auth.LoginUser(ctx, "Alice@example.com", "pw")
	assertCode(t, err, apperrors.CodeUnauthenticated)

	result, err := f.auth.LoginUser(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.PrincipalKindUser, result.Kind)
}

func TestBlockedUserCannotLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)
	alice := f.user(t, "alice@example.com")

	_, err := f.admins.SetUserActive(ctx, senior, alice.ID(), false)
	require.NoError(t, err)

	_, err = f.auth.LoginUser(ctx, "alice@example.com", "pw")
	assertCode(t, err, apperrors.CodeAccountInactive)
	assert.Equal(t, "user account is blocked", apperrors.ToDomainError(err).Message)
}

type countingLimiter struct {
	mu       sync.Mutex
	failures int
	resets   int
	blocked  bool
}

func (l *countingLimiter) Allow(context.Context, domain.PrincipalKind, string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.blocked, nil
}

func (l *countingLimiter) Fail(context.Context, domain.PrincipalKind, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	return nil
}

func (l *countingLimiter) Reset(context.Context, domain.PrincipalKind, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets++
	return nil
}

func TestLoginUsesLimiter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice@example.com")
	limiter := &countingLimiter{}
	svc := NewAuthService(AuthDependencies{
		UserRepo:  f.store.Users(),
		AdminRepo: f.store.Admins(),
		Hasher:    f.hasher,
		Tokens:    f.tokens,
		Limiter:   limiter,
	})

	_, err := svc.LoginUser(ctx, "alice@example.com", "wrong")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = svc.LoginUser(ctx, "ghost@example.com", "pw")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	assert.Equal(t, 2, limiter.failures)

	_, err = svc.LoginUser(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, limiter.resets)

	limiter.blocked = true
	_, err = svc.LoginUser(ctx, "alice@example.com", "pw")
	assertCode(t, err, apperrors.CodeTooManyAttempts)
}

func TestCreateUserByAnyAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	junior := f.admin(t, "junior@example.com", domain.AdminRoleJunior)
	alice := f.user(t, "alice@example.com")

	user, err := f.admins.CreateUser(ctx, junior, CreateUserInput{Email: "carol@example.com", Password: "pw", FullName: " Carol "})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.Equal(t, "Carol", user.FullName)

	_, err = f.admins.CreateUser(ctx, alice, CreateUserInput{Email: "dave@example.com", Password: "pw"})
	assertCode(t, err, apperrors.CodeForbidden)

	users, err := f.admins.ListUsers(ctx, junior, 10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCreateUserRejectsOverlongPassword(t *testing.T) {
	f := newFixture(t)
	junior := f.admin(t, "junior@example.com", domain.AdminRoleJunior)

	// 72 characters, 144 bytes
	_, err := f.admins.CreateUser(context.Background(), junior, CreateUserInput{
		Email:    "erin@example.com",
		Password: strings.Repeat("é", 72),
	})
	assertCode(t, err, apperrors.CodeValidationFailed)
	assert.Equal(t, "password", apperrors.ToDomainError(err).Details["field"])
}

func TestBootstrapIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := NewBootstrapper(f.store.Users(), f.store.Admins(), f.hasher, zap.NewNop())

	first, err := b.EnsureAdmin(ctx, "root@example.com", "first", "Root", domain.AdminRoleSenior)
	require.NoError(t, err)
	assert.True(t, first.Active)
	require.NoError(t, f.store.Admins().SetActive(ctx, first.ID, false))

	second, err := b.EnsureAdmin(ctx, "root@example.com", "second", "Root", domain.AdminRoleJunior)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Active)
	assert.Equal(t, domain.AdminRoleSenior, second.Role)
	assert.True(t, f.hasher.Verify("first", second.PasswordHash))

	admins, err := f.store.Admins().List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestActivityServiceRecordsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	metrics := observability.NewMetrics()
	activity := NewActivityService(f.dispatcher, zap.NewNop(), metrics)
	activity.RegisterHandlers()

	alice := f.user(t, "alice@example.com")
	senior := f.admin(t, "root@example.com", domain.AdminRoleSenior)
	ticket := f.ticket(t, alice, "printer broken")
	_, err := f.tickets.GetTicket(ctx, senior, ticket.ID)
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Events[string(events.EventTicketCreated)])
	assert.Equal(t, int64(1), snap.Events[string(events.EventTicketStatusChanged)])
}
