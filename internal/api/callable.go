package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/callable"
	"github.com/lalith-99/fretboard/internal/middleware"
	"github.com/lalith-99/fretboard/internal/observ"
	"go.uber.org/zap"
)

// CallableHandler exposes the callable functions on
// POST /v1/callable/:name. Requests are {"data": {...}}; replies are
// {"result": {...}} or {"error": {"status", "message"}}.
type CallableHandler struct {
	svc    *callable.Service
	logger *zap.Logger
}

func NewCallableHandler(svc *callable.Service, logger *zap.Logger) *CallableHandler {
	return &CallableHandler{svc: svc, logger: logger}
}

type callRequest struct {
	Data json.RawMessage `json:"data"`
}

type callError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type invokeFunc func(ctx context.Context, caller uuid.UUID, data json.RawMessage) (any, error)

// Invoke handles POST /v1/callable/:name. The route uses OptionalAuth so
// an anonymous call gets an UNAUTHENTICATED envelope from the gate
// instead of a bare 401.
func (h *CallableHandler) Invoke(c *gin.Context) {
	fn, ok := h.lookup(c.Param("name"))
	if !ok {
		h.fail(c, apperr.NotFound("no such function"))
		return
	}

	var req callRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, apperr.InvalidArgument("request body must be {\"data\": ...}"))
			return
		}
	}

	result, err := fn(c.Request.Context(), middleware.GetUserID(c), req.Data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *CallableHandler) lookup(name string) (invokeFunc, bool) {
	switch name {
	case callable.NameGetUserInfo:
		return func(ctx context.Context, caller uuid.UUID, data json.RawMessage) (any, error) {
			var req callable.GetUserInfoRequest
			if err := decodeData(data, &req); err != nil {
				return nil, err
			}
			return h.svc.GetUserInfo(ctx, caller, req)
		}, true
	case callable.NameSetClientRole:
		return func(ctx context.Context, caller uuid.UUID, data json.RawMessage) (any, error) {
			var req callable.SetClientRoleRequest
			if err := decodeData(data, &req); err != nil {
				return nil, err
			}
			return h.svc.SetClientRole(ctx, caller, req)
		}, true
	case callable.NameBackupFirestore:
		return func(ctx context.Context, caller uuid.UUID, _ json.RawMessage) (any, error) {
			return h.svc.TriggerBackup(ctx, caller)
		}, true
	case callable.NameListBackups:
		return func(ctx context.Context, caller uuid.UUID, _ json.RawMessage) (any, error) {
			return h.svc.ListBackups(ctx, caller)
		}, true
	default:
		return nil, false
	}
}

// decodeData treats a missing or null payload as an empty object.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.InvalidArgument("malformed data payload")
	}
	return nil
}

func (h *CallableHandler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.logger.Error("callable failed", zap.String("function", c.Param("name")), zap.Error(err))
		observ.CaptureError(c, err)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": callError{
		Status:  kind.Status(),
		Message: apperr.Message(err),
	}})
}
