package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/repositories"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/email"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

type fakeMessageStore struct {
	mu        sync.Mutex
	messages  map[int64]*models.Message
	nextID    int64
	markReads int
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: map[int64]*models.Message{}}
}

func (s *fakeMessageStore) WithTx(ctx context.Context, fn db.TransactionFn) error {
	return fn(ctx, nil)
}

func (s *fakeMessageStore) Create(_ context.Context, _ db.Querier, m *models.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	m.SentAt = time.Date(2025, time.October, 1, 9, 0, int(s.nextID), 0, time.UTC)
	stored := *m
	s.messages[m.ID] = &stored
	return m.ID, nil
}

func (s *fakeMessageStore) GetByID(_ context.Context, id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("message not found")
	}
	copied := *m
	return &copied, nil
}

func (s *fakeMessageStore) inScope(m *models.Message, scope repositories.MessageScope) bool {
	switch scope.Box {
	case repositories.BoxInbox:
		return m.Receiver() == scope.Participant
	case repositories.BoxSent:
		return m.Sender() == scope.Participant
	}
	return true
}

func (s *fakeMessageStore) ListAll(_ context.Context, scope repositories.MessageScope, _ listing.Query) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for id := int64(1); id <= s.nextID; id++ {
		if m, ok := s.messages[id]; ok && s.inScope(m, scope) {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) List(ctx context.Context, scope repositories.MessageScope, q listing.Query) ([]*models.Message, int64, error) {
	all, _ := s.ListAll(ctx, scope, q)
	page := listing.Paginate(all, q)
	return page.Items, int64(len(all)), nil
}

func (s *fakeMessageStore) MarkRead(_ context.Context, id int64, receiver models.Participant) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.Receiver() != receiver || m.IsRead {
		return time.Time{}, false, nil
	}
	s.markReads++
	now := time.Now()
	m.IsRead, m.ReadAt = true, &now
	return now, true, nil
}

func (s *fakeMessageStore) Ancestors(_ context.Context, id int64) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chain []*models.Message
	for m := s.messages[id]; m != nil && m.ParentMessageID != nil; {
		m = s.messages[*m.ParentMessageID]
		if m != nil {
			chain = append([]*models.Message{m}, chain...)
		}
	}
	return chain, nil
}

func (s *fakeMessageStore) Replies(_ context.Context, id int64) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for i := int64(1); i <= s.nextID; i++ {
		if m, ok := s.messages[i]; ok && m.ParentMessageID != nil && *m.ParentMessageID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) UnreadCount(_ context.Context, p models.Participant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.Receiver() == p && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *fakeMessageStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return apperrors.NewResourceNotFoundError("message not found")
	}
	delete(s.messages, id)
	return nil
}

type fakeDirectory map[models.Participant]models.DirectoryEntry

func (d fakeDirectory) Lookup(_ context.Context, p models.Participant) (*models.DirectoryEntry, error) {
	e, ok := d[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownRecipient, p)
	}
	return &e, nil
}

func (d fakeDirectory) Entries(context.Context) ([]models.DirectoryEntry, error) {
	out := make([]models.DirectoryEntry, 0, len(d))
	for _, e := range d {
		out = append(out, e)
	}
	return out, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []int64
	read    []int64
}

func (n *recordingNotifier) MessageCreated(msg *models.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, msg.ID)
}

func (n *recordingNotifier) MessageRead(msg *models.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.read = append(n.read, msg.ID)
}

type recordingMailer struct {
	sent chan email.MessageNotification
}

func (m *recordingMailer) Enabled() bool { return true }

func (m *recordingMailer) SendMessageNotification(n email.MessageNotification) error {
	m.sent <- n
	return nil
}

func (m *recordingMailer) SendAccountNotice(string, string, string) error { return nil }

var (
	teacherP   = models.Participant{ID: 3, Role: models.RoleTeacher}
	guardianP  = models.Participant{ID: 7, Role: models.RoleGuardian}
	studentP   = models.Participant{ID: 3, Role: models.RoleStudent}
	secretaryP = models.Participant{ID: 1, Role: models.RoleSecretariat}
)

func testDirectory() fakeDirectory {
	return fakeDirectory{
		teacherP:   {ID: 3, Role: models.RoleTeacher, Name: "Ahmed Bakker", Email: "a.bakker@example.nl"},
		guardianP:  {ID: 7, Role: models.RoleGuardian, Name: "Fatima de Vries", Email: "fatima@example.nl"},
		studentP:   {ID: 3, Role: models.RoleStudent, Name: "Yusuf El Amrani"},
		secretaryP: {ID: 1, Role: models.RoleSecretariat, Name: "office@example.nl", Email: "office@example.nl"},
	}
}

type messageFixture struct {
	svc      MessageService
	store    *fakeMessageStore
	notifier *recordingNotifier
	mailer   *recordingMailer
}

func newMessageFixture() messageFixture {
	f := messageFixture{
		store:    newFakeMessageStore(),
		notifier: &recordingNotifier{},
		mailer:   &recordingMailer{sent: make(chan email.MessageNotification, 8)},
	}
	f.svc = NewMessageService(MessageServiceDeps{
		Messages:  f.store,
		Directory: testDirectory(),
		Notifier:  f.notifier,
		Mailer:    f.mailer,
		LinkBase:  "https://dashboard.example.nl/",
	}, zerolog.Nop())
	return f
}

func (f messageFixture) send(t *testing.T, from, to models.Participant, title string) *models.Message {
	t.Helper()
	msg, err := f.svc.Send(context.Background(), Sender{Participant: from}, dto.SendMessageRequest{
		ReceiverID: to.ID, ReceiverRole: to.Role, Title: title, Content: "inhoud",
	}, nil)
	require.NoError(t, err)
	return msg
}

func TestSend_StoresNamesAndPushes(t *testing.T) {
	f := newMessageFixture()

	msg := f.send(t, teacherP, guardianP, "Ouderavond")

	assert.Equal(t, "Ahmed Bakker", msg.SenderName)
	assert.Equal(t, "Fatima de Vries", msg.ReceiverName)
	assert.Equal(t, models.MessageGeneral, msg.Type)
	assert.Equal(t, models.PriorityNormal, msg.Priority)
	assert.False(t, msg.IsRead)
	assert.Equal(t, []int64{msg.ID}, f.notifier.created)
	assert.Empty(t, f.mailer.sent, "normal priority sends no email")
}

func TestSend_Validation(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.SendMessageRequest
		err  error
	}{
		{"blank title", dto.SendMessageRequest{ReceiverID: 7, ReceiverRole: models.RoleGuardian, Title: "  ", Content: "x"}, apperrors.ErrValidationFailed},
		{"unknown receiver", dto.SendMessageRequest{ReceiverID: 99, ReceiverRole: models.RoleGuardian, Title: "t", Content: "x"}, apperrors.ErrUnknownRecipient},
		{"same id other role", dto.SendMessageRequest{ReceiverID: 3, ReceiverRole: models.RoleGuardian, Title: "t", Content: "x"}, apperrors.ErrUnknownRecipient},
		{"to self", dto.SendMessageRequest{ReceiverID: 3, ReceiverRole: models.RoleTeacher, Title: "t", Content: "x"}, apperrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, Sender{Participant: teacherP}, tt.req, nil)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Empty(t, f.store.messages)
}

func TestSend_HighPriorityEmailsWithoutContent(t *testing.T) {
	f := newMessageFixture()
	msg, err := f.svc.Send(context.Background(), Sender{Participant: secretaryP}, dto.SendMessageRequest{
		ReceiverID: guardianP.ID, ReceiverRole: guardianP.Role,
		Title: "Schoolreis", Content: "geheime inhoud", Priority: models.PriorityHigh,
	}, nil)
	require.NoError(t, err)

	select {
	case n := <-f.mailer.sent:
		assert.Equal(t, "fatima@example.nl", n.ToEmail)
		assert.Equal(t, "Schoolreis", n.Title)
		assert.Equal(t, fmt.Sprintf("https://dashboard.example.nl/messages/%d", msg.ID), n.LinkURL)
		assert.NotContains(t, fmt.Sprintf("%+v", n), "geheime inhoud")
	case <-time.After(time.Second):
		t.Fatal("no notification email sent")
	}
}

func TestOpen_InboxMarksReadExactlyOnce(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	msg := f.send(t, teacherP, guardianP, "Rapport")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opened, err := f.svc.Open(ctx, guardianP, msg.ID, repositories.BoxInbox)
			assert.NoError(t, err)
			assert.True(t, opened.IsRead)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.store.markReads)
	assert.Equal(t, []int64{msg.ID}, f.notifier.read)

	stored, err := f.store.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
	assert.NotNil(t, stored.ReadAt)
}

func TestOpen_SentNeverMutates(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	msg := f.send(t, teacherP, guardianP, "Huiswerk")

	tests := []struct {
		name   string
		caller models.Participant
		box    repositories.Box
	}{
		{"sender from sent", teacherP, repositories.BoxSent},
		{"sender claiming inbox", teacherP, repositories.BoxInbox},
		{"receiver from sent", guardianP, repositories.BoxSent},
		{"office from inbox", secretaryP, repositories.BoxInbox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened, err := f.svc.Open(ctx, tt.caller, msg.ID, tt.box)
			require.NoError(t, err)
			assert.False(t, opened.IsRead)
		})
	}
	assert.Zero(t, f.store.markReads)
	assert.Empty(t, f.notifier.read)
}

func TestOpen_StrangerIsForbidden(t *testing.T) {
	f := newMessageFixture()
	msg := f.send(t, teacherP, guardianP, "Privé")

	_, err := f.svc.Open(context.Background(), studentP, msg.ID, repositories.BoxInbox)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestMarkRead_OnlyReceiver(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	msg := f.send(t, teacherP, guardianP, "Les")

	_, err := f.svc.MarkRead(ctx, teacherP, msg.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	read, err := f.svc.MarkRead(ctx, guardianP, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	again, err := f.svc.MarkRead(ctx, guardianP, msg.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead, "read never goes back to unread")
	assert.Equal(t, 1, f.store.markReads)
}

// failingReadStore cannot store the read flag.
type failingReadStore struct {
	*fakeMessageStore
}

func (s failingReadStore) MarkRead(context.Context, int64, models.Participant) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("connection reset")
}

// lostRaceStore lets another request mark the message read first.
type lostRaceStore struct {
	*fakeMessageStore
	winnerAt time.Time
}

func (s lostRaceStore) MarkRead(_ context.Context, id int64, _ models.Participant) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.winnerAt
	s.messages[id].IsRead, s.messages[id].ReadAt = true, &at
	return time.Time{}, false, nil
}

func newMessageFixtureWith(store MessageStore, base *fakeMessageStore) messageFixture {
	f := messageFixture{store: base, notifier: &recordingNotifier{}, mailer: &recordingMailer{sent: make(chan email.MessageNotification, 8)}}
	f.svc = NewMessageService(MessageServiceDeps{
		Messages:  store,
		Directory: testDirectory(),
		Notifier:  f.notifier,
		Mailer:    f.mailer,
	}, zerolog.Nop())
	return f
}

func TestMarkRead_StoreFailureIsReturned(t *testing.T) {
	base := newFakeMessageStore()
	f := newMessageFixtureWith(failingReadStore{base}, base)
	ctx := context.Background()
	msg := f.send(t, teacherP, guardianP, "Les")

	_, err := f.svc.MarkRead(ctx, guardianP, msg.ID)
	require.Error(t, err)
	assert.Empty(t, f.notifier.read)

	stored, err := base.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRead)

	opened, err := f.svc.Open(ctx, guardianP, msg.ID, repositories.BoxInbox)
	require.NoError(t, err, "opening stays possible when the flag cannot be stored")
	assert.False(t, opened.IsRead)
}

func TestMarkRead_LostRaceReturnsStoredReadTime(t *testing.T) {
	base := newFakeMessageStore()
	winnerAt := time.Date(2025, time.October, 2, 8, 30, 0, 0, time.UTC)
	f := newMessageFixtureWith(lostRaceStore{fakeMessageStore: base, winnerAt: winnerAt}, base)
	msg := f.send(t, teacherP, guardianP, "Les")

	read, err := f.svc.MarkRead(context.Background(), guardianP, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	assert.True(t, winnerAt.Equal(*read.ReadAt))
	assert.Empty(t, f.notifier.read, "only the winning request pushes the event")
}

func TestReplyAndThread(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	root := f.send(t, teacherP, guardianP, "Vraag")

	reply, err := f.svc.Send(ctx, Sender{Participant: guardianP}, dto.SendMessageRequest{
		ReceiverID: teacherP.ID, ReceiverRole: teacherP.Role, Title: "Re: Vraag", Content: "antwoord",
		ParentMessageID: &root.ID,
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, Sender{Participant: studentP}, dto.SendMessageRequest{
		ReceiverID: teacherP.ID, ReceiverRole: teacherP.Role, Title: "Re", Content: "x",
		ParentMessageID: &root.ID,
	}, nil)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "only participants of the parent can reply")

	thread, err := f.svc.Thread(ctx, teacherP, reply.ID)
	require.NoError(t, err)
	require.Len(t, thread.Ancestors, 1)
	assert.Equal(t, root.ID, thread.Ancestors[0].ID)
	assert.Equal(t, reply.ID, thread.Message.ID)

	thread, err = f.svc.Thread(ctx, teacherP, root.ID)
	require.NoError(t, err)
	assert.Empty(t, thread.Ancestors)
	require.Len(t, thread.Replies, 1)
	assert.Equal(t, reply.ID, thread.Replies[0].ID)
}

func TestSendCommunication_ReportsPerReceiver(t *testing.T) {
	f := newMessageFixture()
	unknown := models.Participant{ID: 404, Role: models.RoleGuardian}

	resp, err := f.svc.SendCommunication(context.Background(), Sender{Participant: secretaryP}, dto.CommunicationRequest{
		Receivers: []models.Participant{guardianP, unknown, teacherP, guardianP},
		Title:     "Studiedag",
		Content:   "Vrijdag geen les.",
		Type:      models.MessageAnnouncement,
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 4)
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, 2, resp.Failed)

	assert.Equal(t, dto.DeliverySent, resp.Results[0].Status)
	assert.NotZero(t, resp.Results[0].MessageID)
	assert.Equal(t, dto.DeliveryFailed, resp.Results[1].Status)
	assert.Equal(t, "receiver not found", resp.Results[1].Error)
	assert.Equal(t, dto.DeliverySent, resp.Results[2].Status)
	assert.Equal(t, dto.DeliveryFailed, resp.Results[3].Status, "duplicate receiver")
	assert.Len(t, f.store.messages, 2)
}

func TestSendCommunication_OfficeOnly(t *testing.T) {
	f := newMessageFixture()
	_, err := f.svc.SendCommunication(context.Background(), Sender{Participant: teacherP}, dto.CommunicationRequest{
		Receivers: []models.Participant{guardianP}, Title: "t", Content: "c",
	})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestBox_AccessAndContents(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	f.send(t, teacherP, guardianP, "Een")
	f.send(t, secretaryP, guardianP, "Twee")
	f.send(t, guardianP, teacherP, "Drie")

	inbox, err := f.svc.Box(ctx, guardianP, repositories.MessageScope{Box: repositories.BoxInbox, Participant: guardianP}, listing.NewQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(2), inbox.Pagination.TotalItems)

	sent, err := f.svc.Box(ctx, guardianP, repositories.MessageScope{Box: repositories.BoxSent, Participant: guardianP}, listing.NewQuery())
	require.NoError(t, err)
	require.Len(t, sent.Items, 1)
	assert.Equal(t, "Drie", sent.Items[0].Title)

	_, err = f.svc.Box(ctx, guardianP, repositories.MessageScope{Box: repositories.BoxInbox, Participant: teacherP}, listing.NewQuery())
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.svc.Box(ctx, teacherP, repositories.MessageScope{Box: repositories.BoxAll}, listing.NewQuery())
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	all, err := f.svc.Box(ctx, secretaryP, repositories.MessageScope{Box: repositories.BoxAll}, listing.NewQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.TotalItems)

	unread, err := f.svc.UnreadCount(ctx, guardianP)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)
}

func TestDelete_SenderOrAdmin(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	msg := f.send(t, teacherP, guardianP, "Weg")

	assert.ErrorIs(t, f.svc.Delete(ctx, guardianP, msg.ID), apperrors.ErrPermissionDenied)
	require.NoError(t, f.svc.Delete(ctx, teacherP, msg.ID))

	_, err := f.svc.Open(ctx, teacherP, msg.ID, repositories.BoxSent)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestAttachment_MissingAndForbidden(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	msg := f.send(t, teacherP, guardianP, "Geen bijlage")

	_, _, err := f.svc.Attachment(ctx, guardianP, msg.ID)
	assert.ErrorIs(t, err, apperrors.ErrNoAttachment)

	_, _, err = f.svc.Attachment(ctx, secretaryP, msg.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestExport_Table(t *testing.T) {
	f := newMessageFixture()
	f.send(t, teacherP, guardianP, "=SUM(A1)")

	table, err := f.svc.Export(context.Background(), teacherP,
		repositories.MessageScope{Box: repositories.BoxSent, Participant: teacherP}, listing.NewQuery())
	require.NoError(t, err)

	assert.Equal(t, MessageExportHeaders, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Len(t, table.Rows[0], len(MessageExportHeaders))
	assert.Equal(t, "Ahmed Bakker", table.Rows[0][2])
	assert.Equal(t, "=SUM(A1)", table.Rows[0][6], "formula neutralising is the writer's job")
}
