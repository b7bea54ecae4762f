package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/middleware"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/repository"
	"github.com/lalith-99/fretboard/internal/tracking"
	"go.uber.org/zap"
)

type NoteHandler struct {
	guitars  repository.GuitarRepository
	notes    repository.NoteRepository
	tracking *tracking.Service
	access   access
	logger   *zap.Logger
}

func NewNoteHandler(
	guitars repository.GuitarRepository,
	notes repository.NoteRepository,
	tracking *tracking.Service,
	gate *auth.Gate,
	logger *zap.Logger,
) *NoteHandler {
	return &NoteHandler{
		guitars:  guitars,
		notes:    notes,
		tracking: tracking,
		access:   access{gate: gate},
		logger:   logger,
	}
}

type createNoteRequest struct {
	Body            string `json:"body" binding:"required"`
	VisibleToClient bool   `json:"visible_to_client"`
}

// Create handles POST /v1/guitars/:id/notes (staff only). A
// client-visible note also notifies the guitar's owner.
func (h *NoteHandler) Create(c *gin.Context) {
	guitarID, ok := parseID(c, "id", "guitar")
	if !ok {
		return
	}
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	note, err := h.tracking.AddNote(c.Request.Context(), guitarID, middleware.GetUserID(c), req.Body, req.VisibleToClient)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// List handles GET /v1/guitars/:id/notes. Owners get the client-visible
// notes only.
func (h *NoteHandler) List(c *gin.Context) {
	guitarID, ok := parseID(c, "id", "guitar")
	if !ok {
		return
	}

	g, err := h.guitars.GetByID(c.Request.Context(), guitarID)
	if err != nil {
		h.logger.Error("failed to get guitar", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notes"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "guitar not found"})
		return
	}
	staff, err := h.access.guitar(c, g)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	notes, err := h.notes.ListByGuitar(c.Request.Context(), guitarID)
	if err != nil {
		h.logger.Error("failed to list notes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notes"})
		return
	}
	if !staff {
		notes = clientVisible(notes)
	}
	c.JSON(http.StatusOK, notes)
}

func clientVisible(notes []models.Note) []models.Note {
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.VisibleToClient {
			out = append(out, n)
		}
	}
	return out
}
