package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/fretboard/internal/repository"
	"github.com/lalith-99/fretboard/internal/tracking"
	"go.uber.org/zap"
)

// RunHandler serves runs and their stages. Every route sits behind
// RequireRole(StaffRoles).
type RunHandler struct {
	repo     repository.RunRepository
	tracking *tracking.Service
	logger   *zap.Logger
}

func NewRunHandler(repo repository.RunRepository, tracking *tracking.Service, logger *zap.Logger) *RunHandler {
	return &RunHandler{repo: repo, tracking: tracking, logger: logger}
}

type createRunRequest struct {
	Name string `json:"name" binding:"required"`
}

type addStageRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /v1/runs. The run starts with the configured
// stage template.
func (h *RunHandler) Create(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	run, err := h.tracking.CreateRun(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

// List handles GET /v1/runs
func (h *RunHandler) List(c *gin.Context) {
	runs, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetByID handles GET /v1/runs/:id
func (h *RunHandler) GetByID(c *gin.Context) {
	runID, ok := parseID(c, "id", "run")
	if !ok {
		return
	}

	run, err := h.repo.GetByID(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("failed to get run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListStages handles GET /v1/runs/:id/stages
func (h *RunHandler) ListStages(c *gin.Context) {
	runID, ok := parseID(c, "id", "run")
	if !ok {
		return
	}

	stages, err := h.repo.ListStages(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("failed to list stages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stages"})
		return
	}
	c.JSON(http.StatusOK, stages)
}

// AddStage handles POST /v1/runs/:id/stages
func (h *RunHandler) AddStage(c *gin.Context) {
	runID, ok := parseID(c, "id", "run")
	if !ok {
		return
	}
	var req addStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	stage, err := h.tracking.AddStage(c.Request.Context(), runID, req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}
