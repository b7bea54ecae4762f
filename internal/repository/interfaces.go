package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/shopspring/decimal"
)

// Every method takes ctx first so a cancelled request cancels its query.
// Single-row reads return nil, nil when the row does not exist.

// UserRepository is the auth store: accounts and their role claim.
type UserRepository interface {
	Create(ctx context.Context, email, displayName, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// SetRole writes the role claim. Returns false when the user does not exist.
	SetRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)

	// ClaimRole writes the role claim only if none is set yet. Returns
	// false when the user is missing or already holds a role.
	ClaimRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)

	// SetDisplayName returns false when the user does not exist.
	SetDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (bool, error)
}

// RunRepository handles runs and their ordered stages.
type RunRepository interface {
	Create(ctx context.Context, name string, stageNames []string) (*models.Run, error)
	GetByID(ctx context.Context, runID uuid.UUID) (*models.Run, error)

	// List returns all runs, newest first.
	List(ctx context.Context) ([]models.Run, error)

	// AddStage appends a stage after the current last one.
	AddStage(ctx context.Context, runID uuid.UUID, name string) (*models.Stage, error)

	// ListStages returns the run's stages in workflow order.
	ListStages(ctx context.Context, runID uuid.UUID) ([]models.Stage, error)

	GetStage(ctx context.Context, stageID uuid.UUID) (*models.Stage, error)
}

// GuitarRepository handles guitars and their stage assignment.
type GuitarRepository interface {
	Create(ctx context.Context, g models.Guitar) (*models.Guitar, error)
	GetByID(ctx context.Context, guitarID uuid.UUID) (*models.Guitar, error)

	// ListByRun returns the run's guitars ordered by serial.
	ListByRun(ctx context.Context, runID uuid.UUID) ([]models.Guitar, error)
	ListByClient(ctx context.Context, clientUID uuid.UUID) ([]models.Guitar, error)

	// MoveToStage rewrites stage_id and updated_at. Returns the updated
	// guitar, or nil when it does not exist.
	MoveToStage(ctx context.Context, guitarID, stageID uuid.UUID) (*models.Guitar, error)
}

// NoteRepository handles guitar build notes.
type NoteRepository interface {
	Create(ctx context.Context, guitarID, authorUID uuid.UUID, body string, visibleToClient bool) (*models.Note, error)

	// ListByGuitar returns notes oldest first.
	ListByGuitar(ctx context.Context, guitarID uuid.UUID) ([]models.Note, error)

	// ListClientVisible returns every client-visible note across all guitars.
	ListClientVisible(ctx context.Context) ([]models.Note, error)
}

// NotificationRepository handles client notifications.
type NotificationRepository interface {
	// Insert stores n unless a notification with the same id exists.
	// Reports whether a row was created.
	Insert(ctx context.Context, n models.Notification) (bool, error)

	// ListByRecipient returns notifications newest first.
	ListByRecipient(ctx context.Context, recipientUID uuid.UUID) ([]models.Notification, error)

	// MarkRead flips the read flag. Returns false when no notification
	// with that id belongs to the recipient.
	MarkRead(ctx context.Context, recipientUID uuid.UUID, id string) (bool, error)
}

// ClientRepository handles client profiles and their invoices.
type ClientRepository interface {
	GetProfile(ctx context.Context, uid uuid.UUID) (*models.ClientProfile, error)
	UpsertProfile(ctx context.Context, p models.ClientProfile) (*models.ClientProfile, error)

	// EnsureProfile creates an empty profile if none exists.
	EnsureProfile(ctx context.Context, uid uuid.UUID, displayName, email string) error

	CreateInvoice(ctx context.Context, clientUID uuid.UUID, number string, amount decimal.Decimal, currency, status string) (*models.Invoice, error)

	// ListInvoices returns the client's invoices, newest first.
	ListInvoices(ctx context.Context, clientUID uuid.UUID) ([]models.Invoice, error)
}
