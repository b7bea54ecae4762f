// Package notify fans client-visible notes out to their guitar's owner.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/repository"
	"go.uber.org/zap"
)

type Service struct {
	guitars       repository.GuitarRepository
	notes         repository.NoteRepository
	notifications repository.NotificationRepository
	publisher     *live.Publisher
	logger        *zap.Logger
}

func NewService(
	guitars repository.GuitarRepository,
	notes repository.NoteRepository,
	notifications repository.NotificationRepository,
	publisher *live.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		guitars:       guitars,
		notes:         notes,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
	}
}

// NoteAdded creates the owner's notification for note, if the note is
// client-visible and its guitar has an owner. Reports whether a new
// notification was stored.
func (s *Service) NoteAdded(ctx context.Context, note models.Note) (bool, error) {
	if !note.VisibleToClient {
		return false, nil
	}
	guitar, err := s.guitars.GetByID(ctx, note.GuitarID)
	if err != nil {
		return false, fmt.Errorf("load guitar for note %s: %w", note.ID, err)
	}
	if guitar == nil || guitar.ClientUID == nil {
		return false, nil
	}
	return s.fanOut(ctx, *guitar.ClientUID, guitar, note)
}

// Backfill walks every client-visible note and creates any notification
// that is missing. Existing ones are left alone, so running it again
// creates nothing.
func (s *Service) Backfill(ctx context.Context) (int, error) {
	notes, err := s.notes.ListClientVisible(ctx)
	if err != nil {
		return 0, fmt.Errorf("list client-visible notes: %w", err)
	}

	guitars := make(map[uuid.UUID]*models.Guitar)
	created := 0
	for _, note := range notes {
		guitar, seen := guitars[note.GuitarID]
		if !seen {
			guitar, err = s.guitars.GetByID(ctx, note.GuitarID)
			if err != nil {
				return created, fmt.Errorf("load guitar %s: %w", note.GuitarID, err)
			}
			guitars[note.GuitarID] = guitar
		}
		if guitar == nil || guitar.ClientUID == nil {
			continue
		}
		ok, err := s.fanOut(ctx, *guitar.ClientUID, guitar, note)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	s.logger.Info("notification backfill finished",
		zap.Int("notes", len(notes)),
		zap.Int("created", created),
	)
	return created, nil
}

func (s *Service) fanOut(ctx context.Context, clientUID uuid.UUID, guitar *models.Guitar, note models.Note) (bool, error) {
	n := models.Notification{
		ID:           models.NotificationID(clientUID, note.ID),
		RecipientUID: clientUID,
		Type:         models.NotificationTypeNoteAdded,
		Message:      message(guitar, note),
		GuitarID:     guitar.ID,
		NoteID:       note.ID,
	}
	created, err := s.notifications.Insert(ctx, n)
	if err != nil {
		return false, fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	if created {
		s.publisher.Changed(ctx, live.NotificationsTopic(clientUID.String()))
	}
	return created, nil
}

func message(guitar *models.Guitar, note models.Note) string {
	const maxExcerpt = 80
	body := []rune(note.Body)
	excerpt := string(body)
	if len(body) > maxExcerpt {
		excerpt = string(body[:maxExcerpt]) + "…"
	}
	name := guitar.Serial
	if guitar.Model != "" {
		name = guitar.Model + " " + guitar.Serial
	}
	return fmt.Sprintf("New update on your guitar %s: %s", name, excerpt)
}
