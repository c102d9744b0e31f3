package biz

import (
	"context"
	"strings"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/pkg/errors"
)

// ThreadSummary is one row of a consultant's thread list.
type ThreadSummary struct {
	Thread      *model.ChatThread  `json:"thread"`
	LastMessage *model.ChatMessage `json:"lastMessage,omitempty"`
}

// SupportService handles student-consultant support threads.
type SupportService struct {
	store store.Factory
}

// NewSupportService creates a new SupportService.
func NewSupportService(store store.Factory) *SupportService {
	return &SupportService{store: store}
}

// EnsureThread returns the caller's thread with the default consultant,
// creating it on first contact. Consultants cannot open threads this way.
func (s *SupportService) EnsureThread(ctx context.Context, userID uint64) (*model.ChatThread, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}
	if user.Role == authz.RoleConsultant {
		return nil, errors.ErrBadRequest.WithMessage("Consultants open threads from their panel")
	}

	consultant, err := s.store.Users().FirstByRole(ctx, authz.RoleConsultant)
	if err != nil {
		return nil, errors.ErrNoConsultant
	}

	thread, err := s.store.Threads().GetByParticipants(ctx, user.ID, consultant.ID)
	if err == nil {
		return s.store.Threads().Get(ctx, thread.ID)
	}

	thread = &model.ChatThread{
		StudentID:    user.ID,
		ConsultantID: consultant.ID,
	}
	if err := s.store.Threads().Create(ctx, thread); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return s.store.Threads().Get(ctx, thread.ID)
}

// ListThreads returns a consultant's threads, newest first, each with its
// latest message.
func (s *SupportService) ListThreads(ctx context.Context, userID uint64) ([]*ThreadSummary, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}
	if user.Role != authz.RoleConsultant {
		return nil, errors.ErrForbidden
	}

	threads, err := s.store.Threads().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	result := make([]*ThreadSummary, 0, len(threads))
	for _, thread := range threads {
		messages, err := s.store.Threads().Messages(ctx, thread.ID)
		if err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		summary := &ThreadSummary{Thread: thread}
		if len(messages) > 0 {
			summary.LastMessage = messages[len(messages)-1]
		}
		result = append(result, summary)
	}
	return result, nil
}

// ThreadMessages returns all messages of a thread the caller participates
// in, oldest first.
func (s *SupportService) ThreadMessages(ctx context.Context, userID, threadID uint64) ([]*model.ChatMessage, error) {
	if _, err := s.participantThread(ctx, userID, threadID); err != nil {
		return nil, err
	}

	messages, err := s.store.Threads().Messages(ctx, threadID)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return messages, nil
}

// PostMessage appends a message to a thread the caller participates in and
// returns it with the sender attached, ready for broadcast.
func (s *SupportService) PostMessage(ctx context.Context, userID, threadID uint64, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.ErrBadRequest.WithMessage("Empty message")
	}

	if _, err := s.participantThread(ctx, userID, threadID); err != nil {
		return nil, err
	}

	message := &model.ChatMessage{
		ThreadID: threadID,
		SenderID: userID,
		Text:     text,
	}
	if err := s.store.Threads().AddMessage(ctx, message); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	sender, err := s.store.Users().Get(ctx, userID)
	if err == nil {
		message.Sender = sender
	}
	return message, nil
}

// IsParticipant reports whether the user is on either side of the thread.
func (s *SupportService) IsParticipant(ctx context.Context, userID, threadID uint64) (bool, error) {
	thread, err := s.store.Threads().Get(ctx, threadID)
	if err != nil {
		return false, errors.ErrThreadNotFound
	}
	return thread.IsParticipant(userID), nil
}

func (s *SupportService) participantThread(ctx context.Context, userID, threadID uint64) (*model.ChatThread, error) {
	thread, err := s.store.Threads().Get(ctx, threadID)
	if err != nil {
		return nil, errors.ErrThreadNotFound
	}
	if !thread.IsParticipant(userID) {
		return nil, errors.ErrForbidden
	}
	return thread, nil
}
