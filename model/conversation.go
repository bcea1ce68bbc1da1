package model

import "time"

// Conversation is keyed by (UserId, ID). Messages live in their own rows and are
// loaded separately.
type Conversation struct {
	UserId      string    `gorm:"primaryKey;type:varchar(128);index:idx_user_id_last_updated,priority:1" json:"-"`
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	LastUpdated time.Time `gorm:"index:idx_user_id_last_updated,priority:2" json:"lastUpdated"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
	Messages    []Message `gorm:"-" json:"messages"`
}
