package models

import "time"

type User struct {
	ID             string
	UserName       string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	EmailConfirmed bool
	Deleted        bool
	CreatedAt      time.Time
}
