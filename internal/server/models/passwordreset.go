package models

import "time"

type PasswordResetStatus int

const (
	PasswordResetRequested PasswordResetStatus = iota
	PasswordResetChanged
)

type PasswordReset struct {
	ID        int64
	UserID    string
	Token     string
	CreatedOn time.Time
	ExpireOn  time.Time
	Status    PasswordResetStatus
}
