package model

import "time"

// ChatThread is the persistent one-to-one support channel between a student
// and a consultant. There is at most one thread per (student, consultant)
// pair; it is distinct from an AI conversation.
type ChatThread struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	StudentID    uint64    `json:"student_id" gorm:"not null;index:idx_thread_student"`
	ConsultantID uint64    `json:"consultant_id" gorm:"not null;index:idx_thread_consultant"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`

	Student    *User `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Consultant *User `json:"consultant,omitempty" gorm:"foreignKey:ConsultantID"`
}

// TableName returns the table name for GORM.
func (t *ChatThread) TableName() string {
	return "chat_threads"
}

// IsParticipant reports whether userID is the student or the consultant of
// this thread. Every realtime join and send re-checks this.
func (t *ChatThread) IsParticipant(userID uint64) bool {
	return userID == t.StudentID || userID == t.ConsultantID
}

// ChatMessage is one message on a support thread.
type ChatMessage struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	ThreadID  uint64    `json:"thread_id" gorm:"not null;index:idx_chat_msg_thread"`
	SenderID  uint64    `json:"sender_id" gorm:"not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_chat_msg_created"`

	Sender *User `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
}

// TableName returns the table name for GORM.
func (m *ChatMessage) TableName() string {
	return "chat_messages"
}
