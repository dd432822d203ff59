package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatLogRepository is the durable, append-only backing log. It is written on
// every turn and never deleted by the visible clear-history operation.
type ChatLogRepository interface {
	AppendTurn(ctx context.Context, turn *ChatTurn) error
	LoadHistory(ctx context.Context, userID, studentID uuid.UUID) ([]ChatTurn, error)
}

type chatLogRepository struct {
	db *gorm.DB
}

func NewChatLogRepository(db *gorm.DB) ChatLogRepository {
	return &chatLogRepository{db: db}
}

func (r *chatLogRepository) AppendTurn(ctx context.Context, turn *ChatTurn) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

func (r *chatLogRepository) LoadHistory(ctx context.Context, userID, studentID uuid.UUID) ([]ChatTurn, error) {
	var turns []ChatTurn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND student_id = ?", userID, studentID).
		Order("created_at ASC").
		Find(&turns).Error
	if err != nil {
		return nil, err
	}
	return turns, nil
}
