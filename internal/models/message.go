package models

import "time"

// Message 群聊消息。ID 由 snowflake 生成，SeqID 是群内单调序号（Redis INCR）。
type Message struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	GroupID     string `gorm:"index;not null;type:varchar(64)" json:"group_id"`
	UserID      string `gorm:"index;not null;type:varchar(64)" json:"user_id"`
	Content     string `gorm:"type:text;not null" json:"content"`
	MessageType string `gorm:"not null;default:'text';type:varchar(16)" json:"message_type"` // text, image, file
	IsFlagged   bool   `gorm:"not null;default:false" json:"is_flagged"`
	SeqID       int64  `gorm:"index;not null" json:"seq_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Sender *Profile `gorm:"foreignKey:UserID" json:"sender,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
