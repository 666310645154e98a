package dao

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/vadim/impulsa-inbox/internal/database"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.MigrateSQLite(ctx, db, nil); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

var baseTime = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func createConversation(t *testing.T, repo *ConversationSQLite, a, b int64, at time.Time) *entity.Conversation {
	t.Helper()

	conv, err := repo.Create(context.Background(), &entity.Conversation{User1ID: a, User2ID: b, CreatedAt: at})
	if err != nil {
		t.Fatalf("Create(%d, %d) error = %v", a, b, err)
	}
	return conv
}

func createMessage(t *testing.T, repo *MessageSQLite, convID, sender int64, content string, at time.Time) *entity.Message {
	t.Helper()

	msg := &entity.Message{ConversationID: convID, SenderID: sender, Content: content, SentAt: at}
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("Create message error = %v", err)
	}
	return msg
}

func TestConversationSQLite_CreateIsIdempotentPerPair(t *testing.T) {
	repo := NewConversationSQLite(setupTestDB(t))
	ctx := context.Background()

	projectID := int64(77)
	first, err := repo.Create(ctx, &entity.Conversation{User1ID: 1, User2ID: 2, ProjectID: &projectID, CreatedAt: baseTime})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected an id")
	}

	second := createConversation(t, repo, 2, 1, baseTime.Add(time.Minute))
	if second.ID != first.ID {
		t.Errorf("reversed pair created a new conversation: %d != %d", second.ID, first.ID)
	}
	if second.ProjectID == nil || *second.ProjectID != 77 {
		t.Errorf("expected stored project id, got %v", second.ProjectID)
	}
	if !second.CreatedAt.Equal(baseTime) {
		t.Errorf("expected original creation time, got %v", second.CreatedAt)
	}
}

func TestConversationSQLite_ConcurrentCreate(t *testing.T) {
	repo := NewConversationSQLite(setupTestDB(t))
	ctx := context.Background()

	const n = 10
	ids := make([]int64, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := int64(5), int64(6)
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := repo.Create(ctx, &entity.Conversation{User1ID: a, User2ID: b, CreatedAt: baseTime})
			errs[i] = err
			if conv != nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("call %d got conversation %d, want %d", i, ids[i], ids[0])
		}
	}
}

func TestConversationSQLite_GetByID(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationSQLite(db)
	msgRepo := NewMessageSQLite(db)
	ctx := context.Background()

	conv := createConversation(t, convRepo, 1, 2, baseTime)

	got, err := convRepo.GetByID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil || got.LastMessage != nil {
		t.Fatalf("expected conversation without last message, got %+v", got)
	}

	createMessage(t, msgRepo, conv.ID, 1, "first", baseTime.Add(time.Minute))
	createMessage(t, msgRepo, conv.ID, 2, "second", baseTime.Add(2*time.Minute))

	got, err = convRepo.GetByID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastMessage == nil || got.LastMessage.Content != "second" || got.LastMessage.SenderID != 2 {
		t.Errorf("unexpected last message %+v", got.LastMessage)
	}

	missing, err := convRepo.GetByID(ctx, 9999)
	if err != nil {
		t.Fatalf("GetByID(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing conversation, got %+v", missing)
	}
}

func TestConversationSQLite_GetByUserID(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationSQLite(db)
	msgRepo := NewMessageSQLite(db)
	ctx := context.Background()

	older := createConversation(t, convRepo, 1, 2, baseTime)
	newer := createConversation(t, convRepo, 3, 1, baseTime.Add(time.Hour))
	createConversation(t, convRepo, 2, 3, baseTime.Add(2*time.Hour))

	// A message in the older conversation makes it the most recent
	createMessage(t, msgRepo, older.ID, 2, "hola", baseTime.Add(3*time.Hour))

	convs, err := convRepo.GetByUserID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != older.ID || convs[1].ID != newer.ID {
		t.Errorf("unexpected order: %d, %d", convs[0].ID, convs[1].ID)
	}
	if convs[0].LastMessage == nil || convs[0].LastMessage.Content != "hola" {
		t.Errorf("expected last message on first conversation, got %+v", convs[0].LastMessage)
	}

	none, err := convRepo.GetByUserID(ctx, 42)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no conversations, got %d", len(none))
	}
}

func TestConversationSQLite_IsParticipant(t *testing.T) {
	repo := NewConversationSQLite(setupTestDB(t))
	ctx := context.Background()

	conv := createConversation(t, repo, 1, 2, baseTime)

	tests := []struct {
		name   string
		convID int64
		userID int64
		want   bool
	}{
		{"first user", conv.ID, 1, true},
		{"second user", conv.ID, 2, true},
		{"outsider", conv.ID, 3, false},
		{"missing conversation", 9999, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.IsParticipant(ctx, tt.convID, tt.userID)
			if err != nil {
				t.Fatalf("IsParticipant() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsParticipant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageSQLite_Pagination(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationSQLite(db)
	msgRepo := NewMessageSQLite(db)
	ctx := context.Background()

	conv := createConversation(t, convRepo, 1, 2, baseTime)
	other := createConversation(t, convRepo, 1, 3, baseTime)

	for i := 0; i < 5; i++ {
		createMessage(t, msgRepo, conv.ID, 1, "m", baseTime.Add(time.Duration(i)*time.Second))
	}
	createMessage(t, msgRepo, other.ID, 1, "elsewhere", baseTime)

	count, err := msgRepo.Count(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 5 {
		t.Errorf("Count() = %d, want 5", count)
	}

	page, err := msgRepo.GetByConversationID(ctx, conv.ID, 2, 1)
	if err != nil {
		t.Fatalf("GetByConversationID() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(page))
	}
	// Newest first, skipping the newest one
	if !page[0].SentAt.Equal(baseTime.Add(3*time.Second)) || !page[1].SentAt.Equal(baseTime.Add(2*time.Second)) {
		t.Errorf("unexpected page order: %v, %v", page[0].SentAt, page[1].SentAt)
	}

	empty, err := msgRepo.GetByConversationID(ctx, conv.ID, 10, 50)
	if err != nil {
		t.Fatalf("GetByConversationID() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d", len(empty))
	}
}

func TestMessageSQLite_SameTimestampOrdersByID(t *testing.T) {
	db := setupTestDB(t)
	convRepo := NewConversationSQLite(db)
	msgRepo := NewMessageSQLite(db)

	conv := createConversation(t, convRepo, 1, 2, baseTime)
	first := createMessage(t, msgRepo, conv.ID, 1, "a", baseTime)
	second := createMessage(t, msgRepo, conv.ID, 2, "b", baseTime)

	msgs, err := msgRepo.GetByConversationID(context.Background(), conv.ID, 10, 0)
	if err != nil {
		t.Fatalf("GetByConversationID() error = %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != second.ID || msgs[1].ID != first.ID {
		t.Errorf("unexpected order %+v", msgs)
	}
}
