// Package store provides the persistence layer over gorm.
package store

import (
	"context"
	"time"

	"github.com/kart-io/unibot/internal/model"
	"github.com/kart-io/unibot/internal/pkg/authz"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	Users() UserStore
	Conversations() ConversationStore
	Threads() ThreadStore
	RevokedTokens() *TokenStore
	Close() error
}

// UserStore defines the user storage interface.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByStudentID(ctx context.Context, studentID string) (*model.User, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*model.User, error)
	// List returns users whose role is in roles, all users when roles is
	// empty. Ordered by creation time descending.
	List(ctx context.Context, roles []authz.Role) ([]*model.User, error)
	// FirstByRole returns the oldest approved, unblocked user holding the
	// role.
	FirstByRole(ctx context.Context, role authz.Role) (*model.User, error)
}

// ConversationStore defines storage for AI conversations and their messages.
type ConversationStore interface {
	Create(ctx context.Context, conversation *model.AiConversation) error
	// Get returns the conversation only if it belongs to userID.
	Get(ctx context.Context, id, userID uint64) (*model.AiConversation, error)
	// List returns the user's conversations updated since the given time,
	// most recently updated first.
	List(ctx context.Context, userID uint64, since time.Time) ([]*model.AiConversation, error)
	// Touch bumps the conversation's updated_at.
	Touch(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error

	AddMessage(ctx context.Context, message *model.AiMessage) error
	GetMessage(ctx context.Context, id uint64) (*model.AiMessage, error)
	// Messages returns all messages of a conversation, oldest first.
	Messages(ctx context.Context, conversationID uint64) ([]*model.AiMessage, error)
	// LastMessage returns the newest message of a conversation, or nil.
	LastMessage(ctx context.Context, conversationID uint64) (*model.AiMessage, error)
	// NextMessageAfter returns the first message of the conversation ordered
	// after the given message, or nil.
	NextMessageAfter(ctx context.Context, conversationID uint64, after *model.AiMessage) (*model.AiMessage, error)
	// RecentMessages returns the user's newest messages across all of their
	// conversations, oldest first after limiting.
	RecentMessages(ctx context.Context, userID uint64, limit int) ([]*model.AiMessage, error)
	// MessagesBetween returns the user's messages in [start, end), oldest
	// first.
	MessagesBetween(ctx context.Context, userID uint64, start, end time.Time) ([]*model.AiMessage, error)
	DeleteMessages(ctx context.Context, ids []uint64) error
	CountMessages(ctx context.Context, conversationID uint64) (int64, error)

	// HistoryDays groups the user's messages since the given time by calendar
	// day, newest day first. Snippets are not filled in.
	HistoryDays(ctx context.Context, userID uint64, since time.Time) ([]*model.HistoryDay, error)
	// FirstUserMessageOn returns the user's earliest own message on the given
	// day ("2006-01-02"), or nil.
	FirstUserMessageOn(ctx context.Context, userID uint64, day string) (*model.AiMessage, error)
}

// ThreadStore defines storage for support chat threads and their messages.
type ThreadStore interface {
	Create(ctx context.Context, thread *model.ChatThread) error
	Get(ctx context.Context, id uint64) (*model.ChatThread, error)
	GetByParticipants(ctx context.Context, studentID, consultantID uint64) (*model.ChatThread, error)
	// ListByUser returns threads the user participates in, on either side.
	ListByUser(ctx context.Context, userID uint64) ([]*model.ChatThread, error)
	Delete(ctx context.Context, id uint64) error

	AddMessage(ctx context.Context, message *model.ChatMessage) error
	// Messages returns all messages of a thread, oldest first, with senders
	// preloaded.
	Messages(ctx context.Context, threadID uint64) ([]*model.ChatMessage, error)
}
