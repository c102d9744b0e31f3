package model

import "time"

// Message sender tags for AI conversation turns.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// AiConversation is a sequence of user/AI turns belonging to one user.
// The title is derived from the first user message.
type AiConversation struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `json:"user_id" gorm:"not null;index:idx_ai_conv_user"`
	Title     string    `json:"title" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (c *AiConversation) TableName() string {
	return "ai_conversations"
}

// AiMessage is one turn of an AI conversation. Messages are immutable after
// creation; the only mutation ever applied is deletion.
type AiMessage struct {
	ID             uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	ConversationID uint64    `json:"conversation_id" gorm:"not null;index:idx_ai_msg_conv"`
	Sender         string    `json:"sender" gorm:"size:16;not null"`
	Text           string    `json:"text" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_ai_msg_created"`
}

// TableName returns the table name for GORM.
func (m *AiMessage) TableName() string {
	return "ai_messages"
}

// HistoryDay summarizes one calendar day of a user's AI history.
type HistoryDay struct {
	Date    string    `json:"date"`
	Count   int64     `json:"count"`
	FirstAt time.Time `json:"first_at"`
	LastAt  time.Time `json:"last_at"`
	Snippet string    `json:"snippet"`
}

// HistoryPair is one prompt/reply pair of a user's AI history.
type HistoryPair struct {
	ID              uint64     `json:"id"`
	Prompt          string     `json:"prompt"`
	Reply           *string    `json:"reply"`
	PromptCreatedAt time.Time  `json:"prompt_created_at"`
	ReplyCreatedAt  *time.Time `json:"reply_created_at"`
}
