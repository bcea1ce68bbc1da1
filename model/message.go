package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 是对话中的一条消息，写入后不再修改。ID 自增，决定对话内的顺序。
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserId         string    `gorm:"type:varchar(128);not null;index:idx_user_id_conversation_id_id,priority:1" json:"-"`
	ConversationId string    `gorm:"type:varchar(64);not null;index:idx_user_id_conversation_id_id,priority:2" json:"-"`
	Role           string    `gorm:"type:varchar(64);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index" json:"timestamp"`
}

func NewMessage(role, content string, at time.Time) Message {
	return Message{Role: role, Content: content, CreatedAt: at}
}
