package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService is the workflow engine. It is the only writer of ticket
// status, assignment and hold reason, and the only producer of status log
// entries.
type TicketService struct {
	tx          repository.Transactor
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	logs        repository.StatusLogRepository
	store       storage.Store
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	Transactor     repository.Transactor
	TicketRepo     repository.TicketRepository
	AttachmentRepo repository.AttachmentRepository
	StatusLogRepo  repository.StatusLogRepository
	Store          storage.Store
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tx:          deps.Transactor,
		tickets:     deps.TicketRepo,
		attachments: deps.AttachmentRepo,
		logs:        deps.StatusLogRepo,
		store:       deps.Store,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// AttachmentUpload is one file submitted with a new ticket.
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// CreateTicketInput describes ticket creation payload. There is no status
// field: new tickets always start Pending.
type CreateTicketInput struct {
	Description string
	Files       []AttachmentUpload
}

// UpdateTicketInput carries the optional workflow fields. Nil means unchanged.
type UpdateTicketInput struct {
	Status          *domain.TicketStatus
	HoldReason      *string
	AssignedAdminID *int64
}

var (
	canCreate = auth.Chain(auth.Authenticated, auth.Active, auth.UserOnly)
	canRead   = auth.Chain(auth.Authenticated, auth.Active)
	canUpdate = auth.Chain(auth.Authenticated, auth.Active, auth.RoleIn(auth.SeniorOrSub...))
	canAudit  = auth.Chain(auth.Authenticated, auth.Active, auth.AdminOnly)
)

// CreateTicket files a ticket owned by actor. Attachment bytes are written
// before the transaction commits; any storage error aborts the whole
// creation and removes whatever was already written.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Principal, input CreateTicketInput) (*domain.TicketDetail, error) {
	if err := canCreate(actor); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description", "description is required")
	}

	var (
		detail domain.TicketDetail
		saved  []string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket := domain.Ticket{
			UserID:      actor.ID(),
			Description: description,
			Status:      domain.TicketStatusPending,
		}
		if err := s.tickets.Create(ctx, &ticket); err != nil {
			return apperrors.MapError(err)
		}

		paths, err := s.saveFiles(ctx, ticket.ID, input.Files)
		saved = paths
		if err != nil {
			return apperrors.NewStorageFailure(err)
		}

		detail = domain.TicketDetail{Ticket: ticket, Attachments: []domain.Attachment{}}
		for i, file := range input.Files {
			attachment := domain.Attachment{
				TicketID: ticket.ID,
				Filename: file.Filename,
				FilePath: paths[i],
			}
			if file.ContentType != "" {
				contentType := file.ContentType
				attachment.FileType = &contentType
			}
			if err := s.attachments.Create(ctx, &attachment); err != nil {
				return apperrors.MapError(err)
			}
			detail.Attachments = append(detail.Attachments, attachment)
		}
		return nil
	})
	if err != nil {
		s.discard(saved)
		return nil, err
	}

	s.publish(ctx, events.New(events.EventTicketCreated, detail.ID, events.ActorOf(actor),
		events.TicketCreatedPayload{UserID: detail.UserID, Attachments: len(detail.Attachments)}))
	return &detail, nil
}

// saveFiles writes every upload concurrently. The returned slice lines up
// with files; entries for writes that never happened are empty.
func (s *TicketService) saveFiles(ctx context.Context, ticketID int64, files []AttachmentUpload) ([]string, error) {
	paths := make([]string, len(files))
	if len(files) == 0 {
		return paths, nil
	}
	if s.store == nil {
		return paths, errors.New("attachment storage not configured")
	}

	names := storedNames(ticketID, files)
	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		i := i
		g.Go(func() error {
			file := files[i]
			if file.Open == nil {
				return fmt.Errorf("attachment %q has no content", file.Filename)
			}
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("open %q: %w", file.Filename, err)
			}
			defer rc.Close()

			path, err := s.store.Save(gctx, names[i], rc, file.Size, file.ContentType)
			if err != nil {
				return fmt.Errorf("save %q: %w", file.Filename, err)
			}
			paths[i] = path
			return nil
		})
	}
	return paths, g.Wait()
}

func (s *TicketService) discard(paths []string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		// the request context may already be cancelled
		if err := s.store.Remove(context.Background(), path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("remove orphaned attachment", zap.String("path", path), zap.Error(err))
		}
	}
}

// ListTickets returns the actor's own tickets, or every ticket for admins,
// newest first.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.Principal, limit, offset int) ([]domain.TicketDetail, error) {
	if err := canRead(actor); err != nil {
		return nil, err
	}
	filter := repository.TicketFilter{Limit: limit, Offset: offset}
	if !actor.IsAdmin() {
		userID := actor.ID()
		filter.UserID = &userID
	}

	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ids := make([]int64, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	grouped, err := s.attachments.ListByTickets(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := make([]domain.TicketDetail, 0, len(tickets))
	for _, ticket := range tickets {
		attachments := grouped[ticket.ID]
		if attachments == nil {
			attachments = []domain.Attachment{}
		}
		result = append(result, domain.TicketDetail{Ticket: ticket, Attachments: attachments})
	}
	return result, nil
}

// GetTicket returns one ticket. When an admin reads a Pending ticket the read
// moves it to In Progress and logs the move with the admin as author. The move
// is a conditional update, so concurrent readers produce exactly one log entry.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Principal, ticketID int64) (*domain.TicketDetail, error) {
	if err := canRead(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() && ticket.Status == domain.TicketStatusPending {
		moved := false
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			ok, err := s.tickets.TransitionStatus(ctx, ticketID, domain.TicketStatusPending, domain.TicketStatusInProgress)
			if err != nil || !ok {
				return err
			}
			moved = true
			from := domain.TicketStatusPending
			adminID := actor.ID()
			return s.logs.Create(ctx, &domain.StatusLogEntry{
				TicketID:         ticketID,
				OldStatus:        &from,
				NewStatus:        domain.TicketStatusInProgress,
				ChangedByAdminID: &adminID,
			})
		})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if ticket, err = s.tickets.GetByID(ctx, ticketID); err != nil {
			return nil, apperrors.MapError(err)
		}
		if moved {
			s.publish(ctx, events.New(events.EventTicketStatusChanged, ticketID, events.ActorOf(actor),
				events.TicketStatusChangedPayload{
					OldStatus: domain.TicketStatusPending,
					NewStatus: domain.TicketStatusInProgress,
					Implicit:  true,
				}))
		}
	}

	return s.withAttachments(ctx, ticket)
}

// UpdateTicket applies status, hold reason and assignment changes as one
// atomic unit. Junior admins are always rejected.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.Principal, ticketID int64, input UpdateTicketInput) (*domain.TicketDetail, error) {
	if err := canUpdate(actor); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", *input.Status))
	}

	var (
		before, after domain.Ticket
		reasonSet     bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketLookupError(err, ticketID)
		}
		before = cloneTicket(*current)
		ticket := current

		var suppliedReason string
		if input.HoldReason != nil {
			suppliedReason = strings.TrimSpace(*input.HoldReason)
		}
		if input.Status != nil && *input.Status == domain.TicketStatusOnHold &&
			suppliedReason == "" && !hasText(ticket.HoldReason) {
			return apperrors.NewValidationError("hold_reason", "hold_reason is required when putting a ticket on hold")
		}

		if input.Status != nil {
			ticket.Status = *input.Status
		}
		if suppliedReason != "" {
			ticket.HoldReason = &suppliedReason
			reasonSet = true
		}
		if input.AssignedAdminID != nil {
			adminID := *input.AssignedAdminID
			ticket.AssignedAdminID = &adminID
		}

		if err := s.tickets.UpdateWorkflow(ctx, ticket); err != nil {
			if errors.Is(err, repository.ErrInvalidReference) {
				return apperrors.NewValidationError("assigned_admin_id", "assigned admin does not exist")
			}
			return apperrors.MapError(err)
		}

		if before.Status != ticket.Status {
			from := before.Status
			adminID := actor.ID()
			if err := s.logs.Create(ctx, &domain.StatusLogEntry{
				TicketID:         ticketID,
				OldStatus:        &from,
				NewStatus:        ticket.Status,
				ChangedByAdminID: &adminID,
			}); err != nil {
				return apperrors.MapError(err)
			}
		}
		after = *ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	actorRef := events.ActorOf(actor)
	if before.Status != after.Status {
		s.publish(ctx, events.New(events.EventTicketStatusChanged, ticketID, actorRef,
			events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status}))
	}
	if !sameRef(before.AssignedAdminID, after.AssignedAdminID) {
		s.publish(ctx, events.New(events.EventTicketAssigned, ticketID, actorRef,
			events.TicketAssignedPayload{PreviousAdminID: before.AssignedAdminID, AdminID: after.AssignedAdminID}))
	}
	if reasonSet {
		s.publish(ctx, events.New(events.EventTicketHoldReasonSet, ticketID, actorRef,
			events.TicketHoldReasonSetPayload{Reason: *after.HoldReason}))
	}

	return s.withAttachments(ctx, &after)
}

// History returns the ticket's status log, oldest first.
func (s *TicketService) History(ctx context.Context, actor *domain.Principal, ticketID int64) ([]domain.StatusLogEntry, error) {
	if err := canAudit(actor); err != nil {
		return nil, err
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, ticketLookupError(err, ticketID)
	}
	entries, err := s.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// OpenAttachment streams a stored attachment. Users may only read from their
// own tickets. Reading an attachment never moves the ticket.
func (s *TicketService) OpenAttachment(ctx context.Context, actor *domain.Principal, ticketID, attachmentID int64) (*domain.Attachment, io.ReadCloser, error) {
	if err := canRead(actor); err != nil {
		return nil, nil, err
	}
	if _, err := s.loadVisible(ctx, actor, ticketID); err != nil {
		return nil, nil, err
	}
	attachment, err := s.attachments.GetByID(ctx, ticketID, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if s.store == nil {
		return nil, nil, apperrors.NewStorageFailure(errors.New("attachment storage not configured"))
	}
	rc, err := s.store.Open(ctx, attachment.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
		}
		return nil, nil, apperrors.NewStorageFailure(err)
	}
	return attachment, rc, nil
}

func (s *TicketService) loadVisible(ctx context.Context, actor *domain.Principal, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketLookupError(err, ticketID)
	}
	if !actor.IsAdmin() && ticket.UserID != actor.ID() {
		return nil, apperrors.NewForbidden("ticket belongs to another user",
			map[string]any{"required_kind": string(domain.PrincipalKindAdmin)})
	}
	return ticket, nil
}

func (s *TicketService) withAttachments(ctx context.Context, ticket *domain.Ticket) (*domain.TicketDetail, error) {
	grouped, err := s.attachments.ListByTickets(ctx, []int64{ticket.ID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments := grouped[ticket.ID]
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return &domain.TicketDetail{Ticket: *ticket, Attachments: attachments}, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func ticketLookupError(err error, ticketID int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

// storedNames derives flat object names of the form ticket_<id>_<filename>.
// A name that is already taken gets the smallest free numeric suffix.
func storedNames(ticketID int64, files []AttachmentUpload) []string {
	names := make([]string, len(files))
	used := make(map[string]struct{}, len(files))
	for i, file := range files {
		base := sanitizeFilename(file.Filename)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		name := fmt.Sprintf("ticket_%d_%s", ticketID, base)
		for n := 1; ; n++ {
			if _, taken := used[name]; !taken {
				break
			}
			name = fmt.Sprintf("ticket_%d_%s_%d%s", ticketID, stem, n, ext)
		}
		used[name] = struct{}{}
		names[i] = name
	}
	return names
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return "file"
	}
	return cleaned
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
	return t
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func sameRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
