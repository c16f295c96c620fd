package models

import "time"

type RegistrationStatus int

const (
	RegistrationRequested RegistrationStatus = iota
	RegistrationWaitingForUserChanges
	RegistrationApproved
	RegistrationDenied
)

// RegistrationRequest tracks the admin approval workflow for a new account.
type RegistrationRequest struct {
	ID                 int64
	UserID             string
	Status             RegistrationStatus
	AdminComment       *string
	CreatedOn          time.Time
	EditedOn           *time.Time
	ApprovedOrDeniedOn *time.Time
}
