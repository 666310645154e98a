package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vadim/impulsa-inbox/internal/apperror"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
	"github.com/vadim/impulsa-inbox/internal/events"
)

// memoryStore is an in-memory ConversationRepository and MessageRepository
type memoryStore struct {
	mu            sync.Mutex
	conversations []entity.Conversation
	messages      []entity.Message
	failWith      error
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func (m *memoryStore) lastMessage(convID int64) *entity.Message {
	var last *entity.Message
	for i := range m.messages {
		msg := m.messages[i]
		if msg.ConversationID != convID {
			continue
		}
		if last == nil || msg.SentAt.After(last.SentAt) || (msg.SentAt.Equal(last.SentAt) && msg.ID > last.ID) {
			last = &msg
		}
	}
	return last
}

func (m *memoryStore) Create(_ context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, c := range m.conversations {
		if pairKey(c.User1ID, c.User2ID) == pairKey(conv.User1ID, conv.User2ID) {
			return &c, nil
		}
	}
	c := *conv
	c.ID = int64(len(m.conversations) + 1)
	m.conversations = append(m.conversations, c)
	return &c, nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, c := range m.conversations {
		if c.ID == id {
			c.LastMessage = m.lastMessage(c.ID)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) GetBetweenUsers(_ context.Context, a, b int64) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, c := range m.conversations {
		if pairKey(c.User1ID, c.User2ID) == pairKey(a, b) {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) GetByUserID(_ context.Context, userID int64) ([]entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []entity.Conversation
	for _, c := range m.conversations {
		if c.HasParticipant(userID) {
			c.LastMessage = m.lastMessage(c.ID)
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryStore) IsParticipant(_ context.Context, convID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	for _, c := range m.conversations {
		if c.ID == convID {
			return c.HasParticipant(userID), nil
		}
	}
	return false, nil
}

// messageStore wraps memoryStore to satisfy MessageRepository, whose Create differs
type messageStore struct {
	*memoryStore
}

func (s messageStore) Create(_ context.Context, msg *entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	msg.ID = int64(len(s.messages) + 1)
	s.messages = append(s.messages, *msg)
	return nil
}

func (s messageStore) GetByConversationID(_ context.Context, convID int64, limit, offset int) ([]entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []entity.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ConversationID == convID {
			all = append(all, s.messages[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s messageStore) Count(_ context.Context, convID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, msg := range s.messages {
		if msg.ConversationID == convID {
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) {
	p.events = append(p.events, ev)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService() (*Service, *memoryStore, *recordingPublisher) {
	store := &memoryStore{}
	pub := &recordingPublisher{}
	svc := New(store, messageStore{store}, pub, nil)
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc.now = clock.now
	return svc, store, pub
}

func TestCreateOrGetConversation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})
	if err != nil {
		t.Fatalf("CreateOrGetConversation() error = %v", err)
	}

	again, err := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 2, UserBID: 1})
	if err != nil {
		t.Fatalf("CreateOrGetConversation() error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("expected same conversation, got %d and %d", first.ID, again.ID)
	}
}

func TestCreateOrGetConversation_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	badProject := int64(0)

	tests := []struct {
		name string
		in   CreateOrGetInput
		want error
	}{
		{"self", CreateOrGetInput{UserAID: 3, UserBID: 3}, entity.ErrSelfConversation},
		{"zero user", CreateOrGetInput{UserAID: 0, UserBID: 3}, entity.ErrInvalidUserID},
		{"negative user", CreateOrGetInput{UserAID: 3, UserBID: -1}, entity.ErrInvalidUserID},
		{"bad project", CreateOrGetInput{UserAID: 1, UserBID: 2, ProjectID: &badProject}, entity.ErrInvalidProjectID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrGetConversation(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestCreateOrGetConversation_ConcurrentCallsConverge(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	if len(store.conversations) != 1 {
		t.Fatalf("expected exactly 1 conversation, got %d", len(store.conversations))
	}
	for i, id := range ids {
		if id != store.conversations[0].ID {
			t.Errorf("call %d returned %d", i, id)
		}
	}
}

func TestCreateOrGetConversation_StoreFailure(t *testing.T) {
	svc, store, _ := newTestService()
	store.failWith = errors.New("disk full")

	_, err := svc.CreateOrGetConversation(context.Background(), CreateOrGetInput{UserAID: 1, UserBID: 2})
	if !errors.Is(err, apperror.ErrPersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	conv, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})

	msg, err := svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: 1, Content: "  Hola  "})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if msg.Content != "Hola" {
		t.Errorf("content = %q, want trimmed", msg.Content)
	}
	if msg.ID == 0 || msg.SentAt.IsZero() {
		t.Errorf("message not stored: %+v", msg)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	ev, ok := pub.events[0].(events.MessageSent)
	if !ok {
		t.Fatalf("unexpected event %T", pub.events[0])
	}
	if ev.RecipientID != 2 || ev.SenderID != 1 || ev.ConversationID != conv.ID || ev.MessageID != msg.ID {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestSendMessage_Errors(t *testing.T) {
	svc, store, pub := newTestService()
	ctx := context.Background()

	conv, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})

	tests := []struct {
		name     string
		in       SendMessageInput
		want     error
		wantKind error
	}{
		{"empty", SendMessageInput{ConversationID: conv.ID, SenderID: 1, Content: "   "}, entity.ErrEmptyMessage, apperror.ErrValidation},
		{"too long", SendMessageInput{ConversationID: conv.ID, SenderID: 1, Content: strings.Repeat("x", 1001)}, entity.ErrMessageTooLong, apperror.ErrValidation},
		{"outsider", SendMessageInput{ConversationID: conv.ID, SenderID: 3, Content: "hi"}, entity.ErrNotParticipant, apperror.ErrForbidden},
		{"missing conversation", SendMessageInput{ConversationID: 999, SenderID: 1, Content: "hi"}, entity.ErrConversationNotFound, apperror.ErrNotFound},
		{"invalid conversation", SendMessageInput{ConversationID: 0, SenderID: 1, Content: "hi"}, entity.ErrInvalidConversationID, apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("error kind = %v, want %v", apperror.KindOf(err), tt.wantKind)
			}
		})
	}

	if len(pub.events) != 0 {
		t.Errorf("failed sends must not publish, got %d events", len(pub.events))
	}
	if len(store.messages) != 0 {
		t.Errorf("failed sends must not persist, got %d messages", len(store.messages))
	}
}

func TestSendMessage_WithoutPublisher(t *testing.T) {
	store := &memoryStore{}
	svc := New(store, messageStore{store}, nil, nil)
	ctx := context.Background()

	conv, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})
	if _, err := svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: 2, Content: "ok"}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
}

func TestGetMessages(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})
	for _, content := range []string{"uno", "dos", "tres"} {
		if _, err := svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: 1, Content: content}); err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
	}

	out, err := svc.GetMessages(ctx, GetMessagesInput{ConversationID: conv.ID, UserID: 2, Limit: 2})
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(out.Messages) != 2 || out.Messages[0].Content != "tres" || out.Messages[1].Content != "dos" {
		t.Errorf("unexpected page %+v", out.Messages)
	}
	if out.Total != 3 || !out.HasMore {
		t.Errorf("total = %d, has_more = %v", out.Total, out.HasMore)
	}

	out, err = svc.GetMessages(ctx, GetMessagesInput{ConversationID: conv.ID, UserID: 2, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(out.Messages) != 1 || out.HasMore {
		t.Errorf("unexpected last page %+v", out)
	}
}

func TestGetMessages_Defaults(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})

	out, err := svc.GetMessages(ctx, GetMessagesInput{ConversationID: conv.ID, UserID: 1, Limit: 500, Offset: -4})
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if out.Limit != 100 || out.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want 100/0", out.Limit, out.Offset)
	}
	if out.Messages == nil {
		t.Error("expected empty slice, got nil")
	}

	out, err = svc.GetMessages(ctx, GetMessagesInput{ConversationID: conv.ID, UserID: 1})
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if out.Limit != 50 {
		t.Errorf("default limit = %d, want 50", out.Limit)
	}
}

func TestGetMessages_Access(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})

	if _, err := svc.GetMessages(ctx, GetMessagesInput{ConversationID: conv.ID, UserID: 3}); !errors.Is(err, entity.ErrNotParticipant) {
		t.Errorf("outsider error = %v", err)
	}
	if _, err := svc.GetMessages(ctx, GetMessagesInput{ConversationID: 404, UserID: 1}); !errors.Is(err, entity.ErrConversationNotFound) {
		t.Errorf("missing conversation error = %v", err)
	}
}

func TestGetConversation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	conv, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})

	got, err := svc.GetConversation(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.ID != conv.ID {
		t.Errorf("got conversation %d, want %d", got.ID, conv.ID)
	}

	if _, err := svc.GetConversation(ctx, conv.ID, 5); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("outsider error = %v", err)
	}
	if _, err := svc.GetConversation(ctx, 77, 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing error = %v", err)
	}
}

func TestListUserConversations(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 2})
	b, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 3, UserBID: 1})
	c, _ := svc.CreateOrGetConversation(ctx, CreateOrGetInput{UserAID: 1, UserBID: 4})

	// Activity in the oldest conversation moves it to the top
	if _, err := svc.SendMessage(ctx, SendMessageInput{ConversationID: a.ID, SenderID: 2, Content: "hola"}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	summaries, err := svc.ListUserConversations(ctx, 1)
	if err != nil {
		t.Fatalf("ListUserConversations() error = %v", err)
	}

	want := []int64{a.ID, c.ID, b.ID}
	if len(summaries) != len(want) {
		t.Fatalf("expected %d summaries, got %d", len(want), len(summaries))
	}
	for i, id := range want {
		if summaries[i].ID != id {
			t.Errorf("position %d: got %d, want %d", i, summaries[i].ID, id)
		}
		if summaries[i].UnreadCount != 0 {
			t.Errorf("unread count should be 0")
		}
	}
	if summaries[0].OtherParticipant.ID != 2 || summaries[1].OtherParticipant.ID != 4 || summaries[2].OtherParticipant.ID != 3 {
		t.Errorf("unexpected other participants: %+v", summaries)
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.Content != "hola" {
		t.Errorf("expected last message on first summary")
	}
}
