// Package memory keeps every repository in process memory. It backs the API
// when no Postgres DSN is configured and drives the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type state struct {
	users       map[int64]domain.User
	admins      map[int64]domain.Admin
	tickets     map[int64]domain.Ticket
	attachments map[int64]domain.Attachment
	logs        []domain.StatusLogEntry
	seq         map[string]int64
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[int64]domain.User, len(s.users)),
		admins:      make(map[int64]domain.Admin, len(s.admins)),
		tickets:     make(map[int64]domain.Ticket, len(s.tickets)),
		attachments: make(map[int64]domain.Attachment, len(s.attachments)),
		logs:        append([]domain.StatusLogEntry(nil), s.logs...),
		seq:         make(map[string]int64, len(s.seq)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.admins {
		c.admins[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = cloneTicket(v)
	}
	for k, v := range s.attachments {
		c.attachments[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (s *state) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Store is a single in-memory database. A transaction works on a private
// copy that replaces the committed state only on success. Writes outside a
// transaction wait for any open transaction, so a commit never discards them.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *state
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		data: &state{
			users:       map[int64]domain.User{},
			admins:      map[int64]domain.Admin{},
			tickets:     map[int64]domain.Ticket{},
			attachments: map[int64]domain.Attachment{},
			seq:         map[string]int64{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

type txState struct {
	mu   sync.Mutex
	data *state
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// WithinTx implements repository.Transactor. Nested calls join the outer
// transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tx := &txState{data: s.data.clone()}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// read runs fn against the state visible to ctx.
func (s *Store) read(ctx context.Context, fn func(*state)) {
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		fn(tx.data)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// write runs fn against the transaction copy, or against the committed
// state once no transaction is open.
func (s *Store) write(ctx context.Context, fn func(*state) error) error {
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		return fn(tx.data)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Admins returns the admin repository view.
func (s *Store) Admins() repository.AdminRepository { return adminRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Attachments returns the attachment repository view.
func (s *Store) Attachments() repository.AttachmentRepository { return attachmentRepo{s} }

// StatusLogs returns the audit log repository view.
func (s *Store) StatusLogs() repository.StatusLogRepository { return statusLogRepo{s} }

// Dashboard returns the statistics view.
func (s *Store) Dashboard() repository.DashboardRepository { return dashboardRepo{s} }

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T{}, items[offset:end]...)
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.AssignedAdminID != nil {
		v := *t.AssignedAdminID
		t.AssignedAdminID = &v
	}
	if t.HoldReason != nil {
		v := *t.HoldReason
		t.HoldReason = &v
	}
	if t.UpdatedAt != nil {
		v := *t.UpdatedAt
		t.UpdatedAt = &v
	}
	return t
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return repository.ErrDuplicateEmail
			}
		}
		user.ID = st.nextID("users")
		user.CreatedAt = r.s.now()
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	r.s.read(ctx, func(st *state) { user, ok = st.users[id] })
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var found *domain.User
	r.s.read(ctx, func(st *state) {
		for _, user := range st.users {
			if user.Email == email {
				found = &user
				return
			}
		}
	})
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return found, nil
}

func (r userRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	var users []domain.User
	r.s.read(ctx, func(st *state) {
		users = make([]domain.User, 0, len(st.users))
		for _, user := range st.users {
			users = append(users, user)
		}
	})
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return page(users, limit, offset), nil
}

func (r userRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.write(ctx, func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		user.Active = active
		st.users[id] = user
		return nil
	})
}

type adminRepo struct{ s *Store }

func (r adminRepo) Create(ctx context.Context, admin *domain.Admin) error {
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.admins {
			if existing.Email == admin.Email {
				return repository.ErrDuplicateEmail
			}
		}
		admin.ID = st.nextID("admins")
		admin.CreatedAt = r.s.now()
		st.admins[admin.ID] = *admin
		return nil
	})
}

func (r adminRepo) GetByID(ctx context.Context, id int64) (*domain.Admin, error) {
	var (
		admin domain.Admin
		ok    bool
	)
	r.s.read(ctx, func(st *state) { admin, ok = st.admins[id] })
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &admin, nil
}

func (r adminRepo) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var found *domain.Admin
	r.s.read(ctx, func(st *state) {
		for _, admin := range st.admins {
			if admin.Email == email {
				found = &admin
				return
			}
		}
	})
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	return found, nil
}

func (r adminRepo) List(ctx context.Context, limit, offset int) ([]domain.Admin, error) {
	var admins []domain.Admin
	r.s.read(ctx, func(st *state) {
		admins = make([]domain.Admin, 0, len(st.admins))
		for _, admin := range st.admins {
			admins = append(admins, admin)
		}
	})
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return page(admins, limit, offset), nil
}

func (r adminRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.write(ctx, func(st *state) error {
		admin, ok := st.admins[id]
		if !ok {
			return pgx.ErrNoRows
		}
		admin.Active = active
		st.admins[id] = admin
		return nil
	})
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.users[ticket.UserID]; !ok {
			return pgx.ErrNoRows
		}
		ticket.ID = st.nextID("tickets")
		ticket.CreatedAt = r.s.now()
		st.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r ticketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		ok     bool
	)
	r.s.read(ctx, func(st *state) {
		if ticket, ok = st.tickets[id]; ok {
			ticket = cloneTicket(ticket)
		}
	})
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

// GetByIDForUpdate relies on WithinTx serializing transactions.
func (r ticketRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	r.s.read(ctx, func(st *state) {
		tickets = make([]domain.Ticket, 0, len(st.tickets))
		for _, ticket := range st.tickets {
			if filter.UserID != nil && ticket.UserID != *filter.UserID {
				continue
			}
			tickets = append(tickets, cloneTicket(ticket))
		}
	})
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID > tickets[j].ID })
	return page(tickets, filter.Limit, filter.Offset), nil
}

func (r ticketRepo) UpdateWorkflow(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.tickets[ticket.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		if ticket.AssignedAdminID != nil {
			if _, ok := st.admins[*ticket.AssignedAdminID]; !ok {
				return repository.ErrInvalidReference
			}
		}
		now := r.s.now()
		current.Status = ticket.Status
		current.AssignedAdminID = ticket.AssignedAdminID
		current.HoldReason = ticket.HoldReason
		current.UpdatedAt = &now
		st.tickets[ticket.ID] = cloneTicket(current)
		ticket.UpdatedAt = &now
		return nil
	})
}

func (r ticketRepo) TransitionStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (bool, error) {
	moved := false
	err := r.s.write(ctx, func(st *state) error {
		current, ok := st.tickets[id]
		if !ok || current.Status != from {
			return nil
		}
		now := r.s.now()
		current.Status = to
		current.UpdatedAt = &now
		st.tickets[id] = current
		moved = true
		return nil
	})
	return moved, err
}

type attachmentRepo struct{ s *Store }

func (r attachmentRepo) Create(ctx context.Context, attachment *domain.Attachment) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.tickets[attachment.TicketID]; !ok {
			return pgx.ErrNoRows
		}
		attachment.ID = st.nextID("attachments")
		attachment.CreatedAt = r.s.now()
		st.attachments[attachment.ID] = *attachment
		return nil
	})
}

func (r attachmentRepo) GetByID(ctx context.Context, ticketID, id int64) (*domain.Attachment, error) {
	var (
		attachment domain.Attachment
		ok         bool
	)
	r.s.read(ctx, func(st *state) { attachment, ok = st.attachments[id] })
	if !ok || attachment.TicketID != ticketID {
		return nil, pgx.ErrNoRows
	}
	return &attachment, nil
}

func (r attachmentRepo) ListByTickets(ctx context.Context, ticketIDs []int64) (map[int64][]domain.Attachment, error) {
	wanted := make(map[int64]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		wanted[id] = struct{}{}
	}
	all := make([]domain.Attachment, 0)
	r.s.read(ctx, func(st *state) {
		for _, attachment := range st.attachments {
			if _, ok := wanted[attachment.TicketID]; ok {
				all = append(all, attachment)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	result := make(map[int64][]domain.Attachment, len(ticketIDs))
	for _, attachment := range all {
		result[attachment.TicketID] = append(result[attachment.TicketID], attachment)
	}
	return result, nil
}

type statusLogRepo struct{ s *Store }

func (r statusLogRepo) Create(ctx context.Context, entry *domain.StatusLogEntry) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.tickets[entry.TicketID]; !ok {
			return pgx.ErrNoRows
		}
		entry.ID = st.nextID("ticket_status_logs")
		entry.Timestamp = r.s.now()
		st.logs = append(st.logs, *entry)
		return nil
	})
}

func (r statusLogRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusLogEntry, error) {
	result := []domain.StatusLogEntry{}
	r.s.read(ctx, func(st *state) {
		for _, entry := range st.logs {
			if entry.TicketID == ticketID {
				result = append(result, entry)
			}
		}
	})
	return result, nil
}

type dashboardRepo struct{ s *Store }

func (r dashboardRepo) TicketStats(ctx context.Context) (*domain.TicketStats, error) {
	stats := &domain.TicketStats{Workload: []domain.AdminWorkload{}}
	counts := map[int64]int64{}
	var unassigned int64
	r.s.read(ctx, func(st *state) {
		for _, ticket := range st.tickets {
			stats.Total++
			switch ticket.Status {
			case domain.TicketStatusPending:
				stats.Pending++
			case domain.TicketStatusInProgress:
				stats.InProgress++
			case domain.TicketStatusOnHold:
				stats.OnHold++
			case domain.TicketStatusResolved:
				stats.Resolved++
			}
			if ticket.AssignedAdminID == nil {
				unassigned++
				continue
			}
			counts[*ticket.AssignedAdminID]++
		}
	})

	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		adminID := id
		stats.Workload = append(stats.Workload, domain.AdminWorkload{AdminID: &adminID, Count: counts[id]})
	}
	if unassigned > 0 {
		stats.Workload = append(stats.Workload, domain.AdminWorkload{Count: unassigned})
	}
	return stats, nil
}
