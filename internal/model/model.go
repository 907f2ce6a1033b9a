package model

import "time"

// Tenant is keyed by its slug. CompanyID partitions every business document.
type Tenant struct {
	Slug                string
	CompanyID           string
	ProjectName         string
	OwnerUID            string
	OwnerEmail          string
	BillingCustomerID   string
	DepositConfirmation bool
	CreatedAt           time.Time
}

// Provisioned reports whether the owner step of provisioning completed.
func (t *Tenant) Provisioned() bool { return t.OwnerUID != "" }

// Principal is an authenticated identity. Role "admin" grants the admin claim.
type Principal struct {
	UID          string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// UserProfile is keyed by the principal uid.
type UserProfile struct {
	UID           string
	Email         string
	CompanyID     string
	IsAdmin       bool
	IsProfesional bool
	FirstName     string
	LastName      string
	Phone         string
	CreatedAt     time.Time
}

// Professional is a stylist record, linked to a profile by email only.
type Professional struct {
	ID          string
	Email       string
	CompanyID   string
	Name        string
	Specialties []string
	UpdatedAt   time.Time
}

type Appointment struct {
	ID           string
	CompanyID    string
	ClientEmail  string
	StylistEmail string
	ServiceName  string
	StylistName  string
	StylistID    string
	Datetime     time.Time
	ReminderSent bool
	CreatedAt    time.Time
}

// Message is one outbound email.
type Message struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// ProfileUpdate marks a profile as a professional of CompanyID.
type ProfileUpdate struct {
	UID       string
	CompanyID string
}

// ChangeEvent is one row of the document change feed.
type ChangeEvent struct {
	ID         int64     `json:"id"`
	Collection string    `json:"collection"`
	DocID      string    `json:"doc_id"`
	Op         string    `json:"op"`
	CreatedAt  time.Time `json:"created_at"`
}

// collections and ops carried by the change feed
const (
	CollectionUsers        = "users"
	CollectionStylists     = "stylists"
	CollectionAppointments = "appointments"

	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MaxBatchWrites caps the number of document writes committed in one batch.
const MaxBatchWrites = 500
