// Package state keeps the single pending conversation flow of each chat.
package state

import (
	"context"

	"psy-booking-bot/internal/models"
)

// Store holds at most one ChatState per chat. Set overwrites, Get returns
// models.NoState() for chats without a pending flow.
type Store interface {
	Get(ctx context.Context, chatID int64) (models.ChatState, error)
	Set(ctx context.Context, chatID int64, st models.ChatState) error
	Clear(ctx context.Context, chatID int64) error
}

// Backend names accepted by STATE_BACKEND.
const (
	BackendDB    = "db"
	BackendRedis = "redis"
)

type chatStateRepo interface {
	GetChatState(ctx context.Context, chatID int64) (models.ChatState, error)
	SetChatState(ctx context.Context, chatID int64, st models.ChatState) error
	ClearChatState(ctx context.Context, chatID int64) error
}

// SQLStore keeps states in the chat_states table of the main database.
type SQLStore struct {
	repo chatStateRepo
}

func NewSQLStore(repo chatStateRepo) *SQLStore {
	return &SQLStore{repo: repo}
}

func (s *SQLStore) Get(ctx context.Context, chatID int64) (models.ChatState, error) {
	return s.repo.GetChatState(ctx, chatID)
}

func (s *SQLStore) Set(ctx context.Context, chatID int64, st models.ChatState) error {
	return s.repo.SetChatState(ctx, chatID, st)
}

func (s *SQLStore) Clear(ctx context.Context, chatID int64) error {
	return s.repo.ClearChatState(ctx, chatID)
}
