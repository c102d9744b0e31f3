package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/unibot/internal/model"
)

type threads struct {
	db *gorm.DB
}

func newThreads(db *gorm.DB) *threads {
	return &threads{db}
}

// Create creates a new support thread.
func (t *threads) Create(ctx context.Context, thread *model.ChatThread) error {
	return t.db.WithContext(ctx).Create(thread).Error
}

// Get retrieves a thread by ID with both participants preloaded.
func (t *threads) Get(ctx context.Context, id uint64) (*model.ChatThread, error) {
	var thread model.ChatThread
	err := t.db.WithContext(ctx).
		Preload("Student").
		Preload("Consultant").
		Where("id = ?", id).
		First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetByParticipants retrieves the thread between a student and a consultant.
func (t *threads) GetByParticipants(ctx context.Context, studentID, consultantID uint64) (*model.ChatThread, error) {
	var thread model.ChatThread
	err := t.db.WithContext(ctx).
		Where("student_id = ? AND consultant_id = ?", studentID, consultantID).
		First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListByUser returns threads the user participates in, on either side.
func (t *threads) ListByUser(ctx context.Context, userID uint64) ([]*model.ChatThread, error) {
	var list []*model.ChatThread
	err := t.db.WithContext(ctx).
		Preload("Student").
		Preload("Consultant").
		Where("student_id = ? OR consultant_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Delete deletes a thread and its messages.
func (t *threads) Delete(ctx context.Context, id uint64) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.ChatThread{}).Error
	})
}

// AddMessage appends a message to a thread.
func (t *threads) AddMessage(ctx context.Context, message *model.ChatMessage) error {
	return t.db.WithContext(ctx).Create(message).Error
}

// Messages returns all messages of a thread, oldest first.
func (t *threads) Messages(ctx context.Context, threadID uint64) ([]*model.ChatMessage, error) {
	var list []*model.ChatMessage
	err := t.db.WithContext(ctx).
		Preload("Sender").
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
