package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// AppendChatMessage inserts one chat-log row. IDs are assigned by the
// database and grow monotonically.
func AppendChatMessage(ctx context.Context, db *gorm.DB, userID, role, content string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// ListRecentChatMessages returns the newest limit messages for userID in
// chronological order (oldest of the window first). limit <= 0 yields an
// empty slice.
func ListRecentChatMessages(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return []domain.ChatMessage{}, nil
	}
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetChatMessage fetches one message by ID, scoped to its owner.
func GetChatMessage(ctx context.Context, db *gorm.DB, userID string, id uint64) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}
