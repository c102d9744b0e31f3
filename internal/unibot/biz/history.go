package biz

import (
	"context"
	"time"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/textutil"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/pkg/errors"
)

const (
	// historyWindow bounds how far back listed AI history reaches.
	historyWindow = 365 * 24 * time.Hour

	// maxSnippetRunes caps conversation and day snippets.
	maxSnippetRunes = 120

	// dayFormat is the wire format of history dates.
	dayFormat = "2006-01-02"
)

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastSnippet string    `json:"lastSnippet"`
}

// ConversationDetail is a conversation with its full message list.
type ConversationDetail struct {
	ConversationID uint64             `json:"conversationId"`
	Title          string             `json:"title"`
	Messages       []*model.AiMessage `json:"messages"`
}

// HistoryService reads and prunes a user's AI chat history.
type HistoryService struct {
	store store.Factory
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(store store.Factory) *HistoryService {
	return &HistoryService{store: store}
}

// ListConversations returns the user's conversations from the last year,
// most recently updated first.
func (s *HistoryService) ListConversations(ctx context.Context, userID uint64) ([]*ConversationSummary, error) {
	since := time.Now().Add(-historyWindow)
	conversations, err := s.store.Conversations().List(ctx, userID, since)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	result := make([]*ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summary := &ConversationSummary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
		if summary.Title == "" {
			summary.Title = "Conversation"
		}

		last, err := s.store.Conversations().LastMessage(ctx, c.ID)
		if err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		if last != nil {
			summary.LastSnippet = textutil.TruncateRunes(last.Text, maxSnippetRunes)
		}
		result = append(result, summary)
	}
	return result, nil
}

// GetConversation returns one caller-owned conversation with its messages.
func (s *HistoryService) GetConversation(ctx context.Context, userID, conversationID uint64) (*ConversationDetail, error) {
	conversation, err := s.store.Conversations().Get(ctx, conversationID, userID)
	if err != nil {
		return nil, errors.ErrConversationNotFound
	}

	messages, err := s.store.Conversations().Messages(ctx, conversation.ID)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return &ConversationDetail{
		ConversationID: conversation.ID,
		Title:          conversation.Title,
		Messages:       messages,
	}, nil
}

// HistoryDates groups the user's last year of AI messages by calendar day,
// newest first, with the first question of each day as a snippet.
func (s *HistoryService) HistoryDates(ctx context.Context, userID uint64) ([]*model.HistoryDay, error) {
	since := time.Now().Add(-historyWindow)
	days, err := s.store.Conversations().HistoryDays(ctx, userID, since)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	for _, day := range days {
		first, err := s.store.Conversations().FirstUserMessageOn(ctx, userID, day.Date)
		if err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		if first != nil {
			day.Snippet = textutil.TruncateRunes(first.Text, maxSnippetRunes)
		}
	}
	return days, nil
}

// PairsForDate returns the user's prompt/reply pairs for one day. A prompt
// whose immediate successor is not an AI reply in the same conversation gets
// a nil reply.
func (s *HistoryService) PairsForDate(ctx context.Context, userID uint64, date string) ([]*model.HistoryPair, error) {
	start, end, err := dayWindow(date)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.Conversations().MessagesBetween(ctx, userID, start, end)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	pairs := make([]*model.HistoryPair, 0, len(msgs)/2)
	for i, m := range msgs {
		if m.Sender != model.SenderUser {
			continue
		}

		pair := &model.HistoryPair{
			ID:              m.ID,
			Prompt:          m.Text,
			PromptCreatedAt: m.CreatedAt,
		}
		if i+1 < len(msgs) && msgs[i+1].Sender == model.SenderAI && msgs[i+1].ConversationID == m.ConversationID {
			reply := msgs[i+1]
			pair.Reply = &reply.Text
			pair.ReplyCreatedAt = &reply.CreatedAt
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// DeleteDate removes all of the user's AI messages for one day and cleans up
// conversations left empty.
func (s *HistoryService) DeleteDate(ctx context.Context, userID uint64, date string) error {
	start, end, err := dayWindow(date)
	if err != nil {
		return err
	}

	msgs, err := s.store.Conversations().MessagesBetween(ctx, userID, start, end)
	if err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	if len(msgs) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(msgs))
	conversationIDs := make(map[uint64]struct{})
	for _, m := range msgs {
		ids = append(ids, m.ID)
		conversationIDs[m.ConversationID] = struct{}{}
	}

	if err := s.store.Conversations().DeleteMessages(ctx, ids); err != nil {
		return errors.ErrInternal.WithCause(err)
	}

	for conversationID := range conversationIDs {
		if err := s.deleteIfEmpty(ctx, conversationID); err != nil {
			return err
		}
	}
	return nil
}

// DeletePair removes one prompt and its immediate AI reply, then the
// conversation itself if nothing remains.
func (s *HistoryService) DeletePair(ctx context.Context, userID, promptID uint64) error {
	prompt, err := s.store.Conversations().GetMessage(ctx, promptID)
	if err != nil {
		return errors.ErrMessageNotFound
	}
	if prompt.Sender != model.SenderUser {
		return errors.ErrBadRequest.WithMessage("Only user prompts can be deleted")
	}

	// Ownership is checked through the conversation.
	if _, err := s.store.Conversations().Get(ctx, prompt.ConversationID, userID); err != nil {
		return errors.ErrForbidden
	}

	ids := []uint64{prompt.ID}
	next, err := s.store.Conversations().NextMessageAfter(ctx, prompt.ConversationID, prompt)
	if err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	if next != nil && next.Sender == model.SenderAI {
		ids = append(ids, next.ID)
	}

	if err := s.store.Conversations().DeleteMessages(ctx, ids); err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	return s.deleteIfEmpty(ctx, prompt.ConversationID)
}

func (s *HistoryService) deleteIfEmpty(ctx context.Context, conversationID uint64) error {
	count, err := s.store.Conversations().CountMessages(ctx, conversationID)
	if err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	if count == 0 {
		if err := s.store.Conversations().Delete(ctx, conversationID); err != nil {
			return errors.ErrInternal.WithCause(err)
		}
	}
	return nil
}

func dayWindow(date string) (time.Time, time.Time, error) {
	day, err := time.Parse(dayFormat, date)
	if err != nil {
		return time.Time{}, time.Time{}, errors.ErrBadRequest.WithMessage("Invalid date format. Use YYYY-MM-DD")
	}
	return day, day.Add(24 * time.Hour), nil
}
