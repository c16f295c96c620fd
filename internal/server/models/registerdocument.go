package models

import "time"

type DocumentType int

const (
	DocumentIDPassport DocumentType = iota
	DocumentCertificate
)

// RegisterDocument is the bookkeeping row for a document a user uploaded
// during registration. The binary itself lives in object storage under
// StorageKey; this table only records ownership and type.
type RegisterDocument struct {
	ID           string
	UserID       string
	DocumentName string
	StorageKey   string
	DocumentType DocumentType
	CreatedOn    time.Time
}
