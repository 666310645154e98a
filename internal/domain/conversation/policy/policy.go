package policy

import (
	"context"

	"github.com/vadim/impulsa-inbox/internal/apperror"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/service"
	userentity "github.com/vadim/impulsa-inbox/internal/domain/user/entity"
)

// ConversationService defines the interface for the conversation service
type ConversationService interface {
	CreateOrGetConversation(ctx context.Context, in service.CreateOrGetInput) (*entity.Conversation, error)
	GetConversation(ctx context.Context, conversationID, userID int64) (*entity.Conversation, error)
	ListUserConversations(ctx context.Context, userID int64) ([]entity.Summary, error)
	SendMessage(ctx context.Context, in service.SendMessageInput) (*entity.Message, error)
	GetMessages(ctx context.Context, in service.GetMessagesInput) (*service.GetMessagesOutput, error)
}

// ProfileProvider resolves public user profiles
type ProfileProvider interface {
	Profiles(ctx context.Context, ids []int64) (map[int64]userentity.Profile, error)
}

// Policy exposes conversation operations to an authenticated caller and
// decorates results with participant profiles
type Policy struct {
	svc      ConversationService
	profiles ProfileProvider
}

// New creates a new conversation policy. profiles may be nil, in which case
// participants only carry their ids.
func New(svc ConversationService, profiles ProfileProvider) *Policy {
	return &Policy{
		svc:      svc,
		profiles: profiles,
	}
}

// ListConversations returns the caller's inbox
func (p *Policy) ListConversations(ctx context.Context, callerID int64) ([]entity.Summary, error) {
	summaries, err := p.svc.ListUserConversations(ctx, callerID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.OtherParticipant.ID)
	}

	profiles, err := p.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		summaries[i].OtherParticipant = participant(summaries[i].OtherParticipant.ID, profiles)
	}

	return summaries, nil
}

// OpenConversationInput represents input for opening a conversation with another user
type OpenConversationInput struct {
	CallerID    int64
	OtherUserID int64
	ProjectID   *int64
}

// OpenConversation returns the caller's conversation with another user, creating it if needed
func (p *Policy) OpenConversation(ctx context.Context, in OpenConversationInput) (*entity.Conversation, error) {
	conv, err := p.svc.CreateOrGetConversation(ctx, service.CreateOrGetInput{
		UserAID:   in.CallerID,
		UserBID:   in.OtherUserID,
		ProjectID: in.ProjectID,
	})
	if err != nil {
		return nil, err
	}

	return p.withParticipants(ctx, conv)
}

// GetConversation returns one of the caller's conversations
func (p *Policy) GetConversation(ctx context.Context, callerID, conversationID int64) (*entity.Conversation, error) {
	conv, err := p.svc.GetConversation(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}

	return p.withParticipants(ctx, conv)
}

// GetMessagesInput represents input for reading messages
type GetMessagesInput struct {
	CallerID       int64
	ConversationID int64
	Limit          int
	Offset         int
}

// GetMessages returns a page of messages with their senders
func (p *Policy) GetMessages(ctx context.Context, in GetMessagesInput) (*service.GetMessagesOutput, error) {
	out, err := p.svc.GetMessages(ctx, service.GetMessagesInput{
		ConversationID: in.ConversationID,
		UserID:         in.CallerID,
		Limit:          in.Limit,
		Offset:         in.Offset,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, 2)
	for _, m := range out.Messages {
		ids = append(ids, m.SenderID)
	}

	profiles, err := p.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range out.Messages {
		sender := participant(out.Messages[i].SenderID, profiles)
		out.Messages[i].Sender = &sender
	}

	return out, nil
}

// SendMessageInput represents input for sending a message as the caller
type SendMessageInput struct {
	CallerID       int64
	ConversationID int64
	Content        string
}

// SendMessage sends a message as the caller
func (p *Policy) SendMessage(ctx context.Context, in SendMessageInput) (*entity.Message, error) {
	msg, err := p.svc.SendMessage(ctx, service.SendMessageInput{
		ConversationID: in.ConversationID,
		SenderID:       in.CallerID,
		Content:        in.Content,
	})
	if err != nil {
		return nil, err
	}

	profiles, err := p.lookup(ctx, []int64{msg.SenderID})
	if err != nil {
		// The message is already stored; return it without sender details
		return msg, nil
	}

	sender := participant(msg.SenderID, profiles)
	msg.Sender = &sender
	return msg, nil
}

func (p *Policy) withParticipants(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	profiles, err := p.lookup(ctx, []int64{conv.User1ID, conv.User2ID})
	if err != nil {
		return nil, err
	}

	conv.Participants = []entity.Participant{
		participant(conv.User1ID, profiles),
		participant(conv.User2ID, profiles),
	}
	return conv, nil
}

func (p *Policy) lookup(ctx context.Context, ids []int64) (map[int64]userentity.Profile, error) {
	if p.profiles == nil || len(ids) == 0 {
		return nil, nil
	}

	profiles, err := p.profiles.Profiles(ctx, ids)
	if err != nil {
		return nil, apperror.Persistence("getting participant profiles", err)
	}
	return profiles, nil
}

func participant(id int64, profiles map[int64]userentity.Profile) entity.Participant {
	p, ok := profiles[id]
	if !ok {
		return entity.Participant{ID: id}
	}
	return entity.Participant{
		ID:           p.ID,
		FullName:     p.FullName,
		Email:        p.Email,
		ProfileImage: p.ProfileImage,
	}
}
