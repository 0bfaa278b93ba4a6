package models

import "time"

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type User struct {
	ID               string
	Email            string
	PasswordHash     []byte
	DisplayName      string
	AvatarPath       string
	Status           UserStatus
	ModelsCount      int
	LastModelCreated *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
