package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openscout/scout-backend/internal/domain/chat"
	"github.com/openscout/scout-backend/internal/platform/logger"
)

type ChatRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *chat.Chat) (*chat.Chat, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*chat.Chat, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*chat.Chat, error)
	UpdateTitle(ctx context.Context, tx *gorm.DB, id uuid.UUID, title string) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: baseLog.With("repo", "ChatRepo")}
}

func (r *chatRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *chatRepo) Create(ctx context.Context, tx *gorm.DB, c *chat.Chat) (*chat.Chat, error) {
	if err := r.conn(tx).WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *chatRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*chat.Chat, error) {
	var out chat.Chat
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*chat.Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []*chat.Chat
	if err := r.conn(tx).WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, id uuid.UUID, title string) error {
	return r.conn(tx).WithContext(ctx).
		Model(&chat.Chat{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *chatRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&chat.Chat{}).Error
}
