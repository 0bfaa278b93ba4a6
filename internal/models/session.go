package models

import "time"

type Session struct {
	ID               string
	UserID           string
	DeviceID         string
	RefreshTokenHash []byte
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}
