package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageStatusAnswering = "answering"
	MessageStatusCompleted = "completed"
	MessageStatusError     = "error"
)

// Message is one question/answer turn. MessageID is the client-provided id;
// resubmitting the same MessageID regenerates the turn, which deletes every
// message with a higher Seq in the chat and resets ResponseBlocks before the
// agent reruns.
type Message struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChatID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_message_chat_message,unique,priority:1" json:"chat_id"`

	MessageID string `gorm:"type:text;not null;index:idx_message_chat_message,unique,priority:2" json:"message_id"`

	Seq int64 `gorm:"column:seq;not null;index" json:"seq"`

	Query  string `gorm:"type:text;not null" json:"query"`
	Status string `gorm:"type:text;not null;default:'answering';index" json:"status"`

	ResponseBlocks datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"response_blocks"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (Message) TableName() string { return "research_message" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
