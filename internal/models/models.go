package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an account in the auth store. Role is the custom claim;
// an empty Role means the claim was never set.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Run is a production batch of guitars.
type Run struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stage is one step of a run's workflow. Order is ascending along the
// production line.
type Stage struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Guitar belongs to one run and, once assigned, one stage of it.
// ClientUID is the owner who may follow its progress.
type Guitar struct {
	ID        uuid.UUID  `json:"id"`
	RunID     uuid.UUID  `json:"run_id"`
	StageID   *uuid.UUID `json:"stage_id"`
	ClientUID *uuid.UUID `json:"client_uid,omitempty"`
	Serial    string     `json:"serial"`
	Model     string     `json:"model"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Note is a build log entry on a guitar.
type Note struct {
	ID              uuid.UUID `json:"id"`
	GuitarID        uuid.UUID `json:"guitar_id"`
	AuthorUID       uuid.UUID `json:"author_uid"`
	Body            string    `json:"body"`
	VisibleToClient bool      `json:"visible_to_client"`
	CreatedAt       time.Time `json:"created_at"`
}

const NotificationTypeNoteAdded = "note_added"

// Notification is a per-recipient fan-out of a client-visible note.
type Notification struct {
	ID           string    `json:"id"`
	RecipientUID uuid.UUID `json:"recipient_uid"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	GuitarID     uuid.UUID `json:"guitar_id"`
	NoteID       uuid.UUID `json:"note_id"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

// NotificationID derives the id for a note fanned out to a client.
// The same pair always yields the same id, which is what keeps
// generation idempotent.
func NotificationID(clientUID, noteID uuid.UUID) string {
	return fmt.Sprintf("client_%s_%s", clientUID, noteID)
}

// ClientProfile is the one-per-client contact record.
type ClientProfile struct {
	UID         uuid.UUID `json:"uid"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
)

type Invoice struct {
	ID        uuid.UUID       `json:"id"`
	ClientUID uuid.UUID       `json:"client_uid"`
	Number    string          `json:"number"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	IssuedAt  time.Time       `json:"issued_at"`
}
