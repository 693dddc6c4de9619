package domain

import "time"

// User is an end-user who files tickets.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Active       bool
	CreatedAt    time.Time
}
