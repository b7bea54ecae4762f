package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/fretboard/internal/repository"
)

var (
	_ repository.UserRepository         = (*UserStore)(nil)
	_ repository.RunRepository          = (*RunStore)(nil)
	_ repository.GuitarRepository       = (*GuitarStore)(nil)
	_ repository.NoteRepository         = (*NoteStore)(nil)
	_ repository.NotificationRepository = (*NotificationStore)(nil)
	_ repository.ClientRepository       = (*ClientStore)(nil)
)

// Stores bundles every repository over one shared pool.
type Stores struct {
	Users         *UserStore
	Runs          *RunStore
	Guitars       *GuitarStore
	Notes         *NoteStore
	Notifications *NotificationStore
	Clients       *ClientStore
}

func NewStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Users:         NewUserStore(pool),
		Runs:          NewRunStore(pool),
		Guitars:       NewGuitarStore(pool),
		Notes:         NewNoteStore(pool),
		Notifications: NewNotificationStore(pool),
		Clients:       NewClientStore(pool),
	}
}
