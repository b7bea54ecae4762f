package live

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/repository"
	"go.uber.org/zap"
)

// Hook names as used on the websocket subscribe endpoint.
const (
	HookRuns                = "runs"
	HookRunStages           = "runStages"
	HookRunGuitars          = "runGuitars"
	HookClientGuitars       = "clientGuitars"
	HookGuitarNotes         = "guitarNotes"
	HookClientNotifications = "clientNotifications"
	HookClientInvoices      = "clientInvoices"
)

// RunsScope is the fixed scope of the Runs hook.
const RunsScope = "all"

// Hooks holds every live query the application exposes.
type Hooks struct {
	Runs                *Hook[models.Run]
	RunStages           *Hook[models.Stage]
	RunGuitars          *Hook[models.Guitar]
	ClientGuitars       *Hook[models.Guitar]
	GuitarNotes         *Hook[models.Note]
	ClientNotifications *Hook[models.Notification]
	ClientInvoices      *Hook[models.Invoice]
}

func NewHooks(
	bus Bus,
	runs repository.RunRepository,
	guitars repository.GuitarRepository,
	notes repository.NoteRepository,
	notifications repository.NotificationRepository,
	clients repository.ClientRepository,
	logger *zap.Logger,
) *Hooks {
	return &Hooks{
		Runs: NewHook[models.Run](HookRuns, bus, logger,
			func(string) string { return TopicRuns },
			func(ctx context.Context, _ string) ([]models.Run, error) {
				return runs.List(ctx)
			}),
		RunStages: NewHook(HookRunStages, bus, logger, RunStagesTopic,
			byUUID(runs.ListStages)),
		RunGuitars: NewHook(HookRunGuitars, bus, logger, RunGuitarsTopic,
			byUUID(guitars.ListByRun)),
		ClientGuitars: NewHook(HookClientGuitars, bus, logger, ClientGuitarsTopic,
			byUUID(guitars.ListByClient)),
		GuitarNotes: NewHook(HookGuitarNotes, bus, logger, GuitarNotesTopic,
			byUUID(notes.ListByGuitar)),
		ClientNotifications: NewHook(HookClientNotifications, bus, logger, NotificationsTopic,
			byUUID(notifications.ListByRecipient)),
		ClientInvoices: NewHook(HookClientInvoices, bus, logger, ClientInvoicesTopic,
			byUUID(clients.ListInvoices)),
	}
}

// SubscribeGuitarNotes opens the notes query for a guitar. With
// clientVisibleOnly set, internal notes are dropped after each snapshot.
func (h *Hooks) SubscribeGuitarNotes(ctx context.Context, guitarID string, clientVisibleOnly bool, onSnapshot func([]models.Note), opts ...Option) *Subscription {
	var keep func(models.Note) bool
	if clientVisibleOnly {
		keep = func(n models.Note) bool { return n.VisibleToClient }
	}
	return h.GuitarNotes.SubscribeFiltered(ctx, guitarID, keep, onSnapshot, opts...)
}

// byUUID adapts a uuid-keyed list query to a string scope. A scope that
// is not a uuid cannot match any row, so it yields an empty list.
func byUUID[T any](list func(context.Context, uuid.UUID) ([]T, error)) LoadFunc[T] {
	return func(ctx context.Context, scope string) ([]T, error) {
		id, err := uuid.Parse(scope)
		if err != nil {
			return make([]T, 0), nil
		}
		return list(ctx, id)
	}
}
