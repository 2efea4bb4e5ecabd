package domain

import (
	"time"

	"github.com/google/uuid"
)

type Signatory struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Certificate is an issued course certificate. CertificateID is the
// public "EDU-<year>-<suffix>" identifier; ID is the row key.
type Certificate struct {
	ID             uuid.UUID   `json:"id"`
	CertificateID  string      `json:"certificate_id"`
	OwnerID        uuid.UUID   `json:"owner_id"`
	Name           string      `json:"name"`
	Issuer         string      `json:"issuer"`
	Description    string      `json:"description"`
	Date           time.Time   `json:"date"`
	Verified       bool        `json:"verified"`
	Hash           string      `json:"hash"`
	StudentName    string      `json:"student_name"`
	StudentEmail   string      `json:"student_email"`
	Grade          string      `json:"grade,omitempty"`
	Badge          string      `json:"badge,omitempty"`
	Color          string      `json:"color,omitempty"`
	Signatories    []Signatory `json:"signatories"`
	Duration       string      `json:"duration,omitempty"`
	Hours          int         `json:"hours,omitempty"`
	Specialization string      `json:"specialization,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// CertificateVerification is the result of recomputing a stored hash.
type CertificateVerification struct {
	CertificateID string       `json:"certificate_id"`
	Valid         bool         `json:"valid"`
	Certificate   *Certificate `json:"certificate,omitempty"`
}
