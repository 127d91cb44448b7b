package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openscout/scout-backend/internal/domain/chat"
	"github.com/openscout/scout-backend/internal/platform/logger"
)

type MessageRepo interface {
	// Create assigns the next Seq within the chat and inserts the row.
	Create(ctx context.Context, tx *gorm.DB, m *chat.Message) (*chat.Message, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*chat.Message, error)
	GetByChatAndMessageID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, messageID string) (*chat.Message, error)
	ListByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) ([]*chat.Message, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	// DeleteAfterSeq removes every message in the chat with Seq strictly
	// greater than seq. Used on regeneration.
	DeleteAfterSeq(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, seq int64) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, m *chat.Message) (*chat.Message, error) {
	conn := r.conn(tx)
	err := conn.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var maxSeq int64
		if err := inner.Model(&chat.Message{}).
			Where("chat_id = ?", m.ChatID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		m.Seq = maxSeq + 1
		return inner.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *messageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*chat.Message, error) {
	var out chat.Message
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) GetByChatAndMessageID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, messageID string) (*chat.Message, error) {
	var out chat.Message
	if err := r.conn(tx).WithContext(ctx).
		Where("chat_id = ? AND message_id = ?", chatID, messageID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) ListByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) ([]*chat.Message, error) {
	var out []*chat.Message
	if err := r.conn(tx).WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&chat.Message{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *messageRepo) DeleteAfterSeq(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, seq int64) (int64, error) {
	res := r.conn(tx).WithContext(ctx).
		Where("chat_id = ? AND seq > ?", chatID, seq).
		Delete(&chat.Message{})
	return res.RowsAffected, res.Error
}
