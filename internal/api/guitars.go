package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/repository"
	"github.com/lalith-99/fretboard/internal/tracking"
	"go.uber.org/zap"
)

type GuitarHandler struct {
	repo     repository.GuitarRepository
	tracking *tracking.Service
	access   access
	logger   *zap.Logger
}

func NewGuitarHandler(repo repository.GuitarRepository, tracking *tracking.Service, gate *auth.Gate, logger *zap.Logger) *GuitarHandler {
	return &GuitarHandler{repo: repo, tracking: tracking, access: access{gate: gate}, logger: logger}
}

type createGuitarRequest struct {
	RunID     uuid.UUID  `json:"run_id" binding:"required"`
	StageID   *uuid.UUID `json:"stage_id"`
	ClientUID *uuid.UUID `json:"client_uid"`
	Serial    string     `json:"serial" binding:"required"`
	Model     string     `json:"model"`
}

type moveGuitarRequest struct {
	StageID uuid.UUID `json:"stage_id" binding:"required"`
}

// Create handles POST /v1/guitars (staff only).
func (h *GuitarHandler) Create(c *gin.Context) {
	var req createGuitarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	g, err := h.tracking.CreateGuitar(c.Request.Context(), models.Guitar{
		RunID:     req.RunID,
		StageID:   req.StageID,
		ClientUID: req.ClientUID,
		Serial:    req.Serial,
		Model:     req.Model,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// ListByRun handles GET /v1/runs/:id/guitars (staff only).
func (h *GuitarHandler) ListByRun(c *gin.Context) {
	runID, ok := parseID(c, "id", "run")
	if !ok {
		return
	}

	guitars, err := h.repo.ListByRun(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("failed to list guitars", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list guitars"})
		return
	}
	c.JSON(http.StatusOK, guitars)
}

// GetByID handles GET /v1/guitars/:id. Owners may read their own guitar.
func (h *GuitarHandler) GetByID(c *gin.Context) {
	guitarID, ok := parseID(c, "id", "guitar")
	if !ok {
		return
	}

	g, err := h.repo.GetByID(c.Request.Context(), guitarID)
	if err != nil {
		h.logger.Error("failed to get guitar", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get guitar"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "guitar not found"})
		return
	}
	if _, err := h.access.guitar(c, g); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Move handles PATCH /v1/guitars/:id/stage (staff only).
func (h *GuitarHandler) Move(c *gin.Context) {
	guitarID, ok := parseID(c, "id", "guitar")
	if !ok {
		return
	}
	var req moveGuitarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	g, err := h.tracking.MoveGuitar(c.Request.Context(), guitarID, req.StageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// ListByClient handles GET /v1/clients/:uid/guitars
func (h *GuitarHandler) ListByClient(c *gin.Context) {
	uid, ok := parseID(c, "uid", "client")
	if !ok {
		return
	}
	if err := h.access.selfOr(c, uid, auth.ClientRecordRoles); err != nil {
		respondError(c, h.logger, err)
		return
	}

	guitars, err := h.repo.ListByClient(c.Request.Context(), uid)
	if err != nil {
		h.logger.Error("failed to list client guitars", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list guitars"})
		return
	}
	c.JSON(http.StatusOK, guitars)
}
