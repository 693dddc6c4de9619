package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	args := m.Called(ctx, name, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockStore) Remove(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func TestStoredNamesDeduplicate(t *testing.T) {
	names := storedNames(7, []AttachmentUpload{
		{Filename: "report.pdf"},
		{Filename: "../../etc/report.pdf"},
		{Filename: "report.pdf"},
		{Filename: "скан 1.png"},
		{Filename: ".."},
	})
	assert.Equal(t, []string{
		"ticket_7_report.pdf",
		"ticket_7_report_1.pdf",
		"ticket_7_report_2.pdf",
		"ticket_7______1.png",
		"ticket_7_file",
	}, names)
}

func TestStoredNamesAvoidGeneratedSuffixClash(t *testing.T) {
	names := storedNames(1, []AttachmentUpload{
		{Filename: "a.txt"},
		{Filename: "a.txt"},
		{Filename: "a_1.txt"},
		{Filename: "a_1.txt"},
	})
	assert.Equal(t, []string{
		"ticket_1_a.txt",
		"ticket_1_a_1.txt",
		"ticket_1_a_1_1.txt",
		"ticket_1_a_1_2.txt",
	}, names)
}

func TestCreateTicketKeepsEveryUploadedFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")

	detail, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Description: "printer logs",
		Files: []AttachmentUpload{
			upload("a.txt", "first"),
			upload("a.txt", "second"),
			upload("a_1.txt", "third"),
		},
	})
	require.NoError(t, err)
	require.Len(t, detail.Attachments, 3)

	paths := map[string]bool{}
	var bodies []string
	for _, attachment := range detail.Attachments {
		paths[attachment.FilePath] = true
		_, rc, err := f.tickets.OpenAttachment(ctx, alice, detail.ID, attachment.ID)
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		bodies = append(bodies, string(body))
	}
	assert.Len(t, paths, 3)
	assert.ElementsMatch(t, []string{"first", "second", "third"}, bodies)
}

func TestCreateTicketPassesUploadsToStore(t *testing.T) {
	files := &mockStore{}
	f := newFixtureWithStore(t, files, "")
	alice := f.user(t, "alice@example.com")

	files.On("Save", mock.Anything, "ticket_1_a.txt", int64(1), "text/plain").Return("mem://ticket_1_a.txt", nil).Once()

	detail, err := f.tickets.CreateTicket(context.Background(), alice, CreateTicketInput{
		Description: "printer broken",
		Files:       []AttachmentUpload{upload("a.txt", "a")},
	})
	require.NoError(t, err)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, "mem://ticket_1_a.txt", detail.Attachments[0].FilePath)
	files.AssertExpectations(t)
}

func TestOpenAttachmentMapsStorageErrors(t *testing.T) {
	files := &mockStore{}
	f := newFixtureWithStore(t, files, "")
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")

	files.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("mem://x", nil)
	detail, err := f.tickets.CreateTicket(ctx, alice, CreateTicketInput{
		Description: "vpn down",
		Files:       []AttachmentUpload{upload("x.txt", "x")},
	})
	require.NoError(t, err)
	attachmentID := detail.Attachments[0].ID

	files.On("Open", mock.Anything, "mem://x").Return(nil, storage.ErrNotFound).Once()
	_, _, err = f.tickets.OpenAttachment(ctx, alice, detail.ID, attachmentID)
	assertCode(t, err, apperrors.CodeNotFound)

	files.On("Open", mock.Anything, "mem://x").Return(nil, errors.New("bucket offline")).Once()
	_, _, err = f.tickets.OpenAttachment(ctx, alice, detail.ID, attachmentID)
	assertCode(t, err, apperrors.CodeStorageFailure)

	_, _, err = f.tickets.OpenAttachment(ctx, bob, detail.ID, attachmentID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, _, err = f.tickets.OpenAttachment(ctx, alice, detail.ID, attachmentID+100)
	assertCode(t, err, apperrors.CodeNotFound)

	// downloads never move the ticket
	admin := f.admin(t, "root@example.com", domain.AdminRoleSenior)
	files.On("Open", mock.Anything, "mem://x").Return(io.NopCloser(nil), nil).Once()
	_, _, err = f.tickets.OpenAttachment(ctx, admin, detail.ID, attachmentID)
	require.NoError(t, err)
	got, err := f.store.Tickets().GetByID(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, got.Status)
	files.AssertExpectations(t)
}
