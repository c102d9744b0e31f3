package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/unibot/internal/model"
)

type conversations struct {
	db *gorm.DB
}

func newConversations(db *gorm.DB) *conversations {
	return &conversations{db}
}

// Create creates a new conversation.
func (c *conversations) Create(ctx context.Context, conversation *model.AiConversation) error {
	return c.db.WithContext(ctx).Create(conversation).Error
}

// Get retrieves a conversation owned by the given user.
func (c *conversations) Get(ctx context.Context, id, userID uint64) (*model.AiConversation, error) {
	var conversation model.AiConversation
	err := c.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// List returns the user's conversations updated since the given time, most
// recently updated first.
func (c *conversations) List(ctx context.Context, userID uint64, since time.Time) ([]*model.AiConversation, error) {
	var list []*model.AiConversation
	err := c.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("updated_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Touch bumps the conversation's updated_at.
func (c *conversations) Touch(ctx context.Context, id uint64) error {
	return c.db.WithContext(ctx).
		Model(&model.AiConversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

// Delete deletes a conversation.
func (c *conversations) Delete(ctx context.Context, id uint64) error {
	return c.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AiConversation{}).Error
}

// AddMessage appends a message to a conversation.
func (c *conversations) AddMessage(ctx context.Context, message *model.AiMessage) error {
	return c.db.WithContext(ctx).Create(message).Error
}

// GetMessage retrieves a message by ID.
func (c *conversations) GetMessage(ctx context.Context, id uint64) (*model.AiMessage, error) {
	var message model.AiMessage
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// Messages returns all messages of a conversation, oldest first.
func (c *conversations) Messages(ctx context.Context, conversationID uint64) ([]*model.AiMessage, error) {
	var list []*model.AiMessage
	err := c.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// LastMessage returns the newest message of a conversation, or nil when the
// conversation is empty.
func (c *conversations) LastMessage(ctx context.Context, conversationID uint64) (*model.AiMessage, error) {
	var message model.AiMessage
	err := c.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// NextMessageAfter returns the first message of the conversation ordered
// after the given message, or nil.
func (c *conversations) NextMessageAfter(ctx context.Context, conversationID uint64, after *model.AiMessage) (*model.AiMessage, error) {
	var message model.AiMessage
	err := c.db.WithContext(ctx).
		Where("conversation_id = ? AND created_at >= ? AND id <> ?", conversationID, after.CreatedAt, after.ID).
		Order("created_at ASC, id ASC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// RecentMessages returns the user's newest messages across all of their
// conversations, re-ordered oldest first.
func (c *conversations) RecentMessages(ctx context.Context, userID uint64, limit int) ([]*model.AiMessage, error) {
	var list []*model.AiMessage
	err := c.db.WithContext(ctx).
		Joins("JOIN ai_conversations ON ai_conversations.id = ai_messages.conversation_id").
		Where("ai_conversations.user_id = ?", userID).
		Order("ai_messages.created_at DESC, ai_messages.id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// MessagesBetween returns the user's messages in [start, end), oldest first.
func (c *conversations) MessagesBetween(ctx context.Context, userID uint64, start, end time.Time) ([]*model.AiMessage, error) {
	var list []*model.AiMessage
	err := c.db.WithContext(ctx).
		Joins("JOIN ai_conversations ON ai_conversations.id = ai_messages.conversation_id").
		Where("ai_conversations.user_id = ? AND ai_messages.created_at >= ? AND ai_messages.created_at < ?", userID, start, end).
		Order("ai_messages.created_at ASC, ai_messages.id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteMessages deletes messages by ID.
func (c *conversations) DeleteMessages(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.AiMessage{}).Error
}

// CountMessages counts messages in a conversation.
func (c *conversations) CountMessages(ctx context.Context, conversationID uint64) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&model.AiMessage{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count, err
}

// HistoryDays groups the user's messages since the given time by calendar
// day, newest day first.
func (c *conversations) HistoryDays(ctx context.Context, userID uint64, since time.Time) ([]*model.HistoryDay, error) {
	var rows []*model.HistoryDay
	err := c.db.WithContext(ctx).
		Model(&model.AiMessage{}).
		Select("DATE(ai_messages.created_at) AS date, COUNT(ai_messages.id) AS count, MIN(ai_messages.created_at) AS first_at, MAX(ai_messages.created_at) AS last_at").
		Joins("JOIN ai_conversations ON ai_conversations.id = ai_messages.conversation_id").
		Where("ai_conversations.user_id = ? AND ai_messages.created_at >= ?", userID, since).
		Group("DATE(ai_messages.created_at)").
		Order("DATE(ai_messages.created_at) DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FirstUserMessageOn returns the user's earliest own message on the given
// day, or nil.
func (c *conversations) FirstUserMessageOn(ctx context.Context, userID uint64, day string) (*model.AiMessage, error) {
	var message model.AiMessage
	err := c.db.WithContext(ctx).
		Joins("JOIN ai_conversations ON ai_conversations.id = ai_messages.conversation_id").
		Where("ai_conversations.user_id = ? AND DATE(ai_messages.created_at) = ? AND ai_messages.sender = ?", userID, day, model.SenderUser).
		Order("ai_messages.created_at ASC, ai_messages.id ASC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
