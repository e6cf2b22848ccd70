package entity

import "time"

// User is an account inside a single tenant database.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string // bcrypt hash, never serialized.
	Role         Role
	CreatedAt    time.Time
}
