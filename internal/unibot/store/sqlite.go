package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/unibot/internal/model"
)

// datastore implements the Factory interface.
type datastore struct {
	db *gorm.DB
}

// New opens (or creates) the SQLite database at dsn and migrates the schema.
func New(dsn string) (Factory, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	ds := &datastore{db: db}
	if err := ds.autoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return ds, nil
}

// NewWithDB wraps an existing gorm connection, used by tests.
func NewWithDB(db *gorm.DB) (Factory, error) {
	ds := &datastore{db: db}
	if err := ds.autoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return ds, nil
}

func (ds *datastore) autoMigrate() error {
	return ds.db.AutoMigrate(
		&model.User{},
		&model.RevokedToken{},
		&model.AiConversation{},
		&model.AiMessage{},
		&model.ChatThread{},
		&model.ChatMessage{},
	)
}

// Users returns the user store.
func (ds *datastore) Users() UserStore {
	return newUsers(ds.db)
}

// Conversations returns the AI conversation store.
func (ds *datastore) Conversations() ConversationStore {
	return newConversations(ds.db)
}

// Threads returns the support thread store.
func (ds *datastore) Threads() ThreadStore {
	return newThreads(ds.db)
}

// RevokedTokens returns the revoked token store.
func (ds *datastore) RevokedTokens() *TokenStore {
	return newTokens(ds.db)
}

// Close closes the factory and underlying connections.
func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
