package model

import "time"

// Customer mirrors the commerce platform's view of a user. It is written by the
// billing sync and only read here.
type Customer struct {
	UID           string                  `gorm:"primaryKey;type:varchar(128)" json:"uid"`
	Subscriptions map[string]Subscription `gorm:"serializer:json;type:text" json:"subscriptions"`
	UpdatedAt     time.Time               `gorm:"autoUpdateTime" json:"-"`
}

// Subscription is keyed by product identifier in Customer.Subscriptions.
type Subscription struct {
	Entitlements map[string]EntitlementStatus `json:"entitlements"`
}

type EntitlementStatus struct {
	Active      bool       `json:"active"`
	ExpiresDate *time.Time `json:"expires_date,omitempty"`
}

// EntitlementActive reports whether productID grants an active entitlementID.
func (c *Customer) EntitlementActive(productID, entitlementID string) bool {
	sub, ok := c.Subscriptions[productID]
	if !ok {
		return false
	}
	status, ok := sub.Entitlements[entitlementID]
	return ok && status.Active
}
