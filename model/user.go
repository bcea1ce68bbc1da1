package model

import (
	"time"
)

const TierPremium = "premium"

// User 表示调用方的用量记录，只由服务端写入
type User struct {
	UID              string     `gorm:"primaryKey;type:varchar(128)" json:"uid"`
	MessageCount     int        `gorm:"not null;default:0" json:"messageCount"`
	LastActive       *time.Time `gorm:"index" json:"lastActive,omitempty"`
	IsPremium        bool       `gorm:"not null;default:false" json:"isPremium"`
	SubscriptionTier string     `gorm:"type:varchar(64)" json:"subscriptionTier,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"-"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"-"`
}

// HasPremiumFlag reports the manual override flags on the user record.
func (u *User) HasPremiumFlag() bool {
	return u.IsPremium || u.SubscriptionTier == TierPremium
}
