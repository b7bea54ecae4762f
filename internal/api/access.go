package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/middleware"
	"github.com/lalith-99/fretboard/internal/models"
)

// access answers the per-record questions RequireRole cannot: whether
// the caller owns the record or holds a role that sees everyone's.
type access struct {
	gate *auth.Gate
}

// selfOr lets the caller through when they are uid, or when their
// current role is in allow.
func (a access) selfOr(c *gin.Context, uid uuid.UUID, allow auth.RoleSet) error {
	caller := middleware.GetUserID(c)
	if caller == uuid.Nil {
		return apperr.Unauthenticated("authentication required")
	}
	if caller == uid {
		return nil
	}
	_, err := a.gate.Authorize(c.Request.Context(), caller, allow)
	return err
}

// guitar reports whether the caller sees g as staff (every note) or as
// its owner (client-visible notes only). Anyone else is denied.
func (a access) guitar(c *gin.Context, g *models.Guitar) (staff bool, err error) {
	caller := middleware.GetUserID(c)
	role, err := a.gate.RoleOf(c.Request.Context(), caller)
	if err != nil {
		return false, err
	}
	if auth.StaffRoles.Contains(role) || auth.ClientRecordRoles.Contains(role) {
		return true, nil
	}
	if g.ClientUID != nil && *g.ClientUID == caller {
		return false, nil
	}
	return false, apperr.PermissionDenied("not your guitar")
}

func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		badRequest(c, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}
