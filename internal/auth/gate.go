package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/models"
)

// UserLookup is the slice of the user store the gate needs.
type UserLookup interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Gate checks a caller's current role claim against an allow-list.
type Gate struct {
	users UserLookup
}

func NewGate(users UserLookup) *Gate {
	return &Gate{users: users}
}

// Authorize returns the caller's role when it is in allow.
//
//   - caller == uuid.Nil        → unauthenticated
//   - unknown caller / no role  → permission-denied
//   - role not in allow         → permission-denied
//   - store failure             → internal
func (g *Gate) Authorize(ctx context.Context, caller uuid.UUID, allow RoleSet) (Role, error) {
	role, err := g.RoleOf(ctx, caller)
	if err != nil {
		return RoleNone, err
	}
	if !allow.Contains(role) {
		return role, apperr.PermissionDenied("insufficient role for this operation")
	}
	return role, nil
}

// RoleOf fetches the caller's current claim without checking it against
// an allow-list. Unknown users resolve to RoleNone.
func (g *Gate) RoleOf(ctx context.Context, caller uuid.UUID) (Role, error) {
	if caller == uuid.Nil {
		return RoleNone, apperr.Unauthenticated("authentication required")
	}
	user, err := g.users.GetByID(ctx, caller)
	if err != nil {
		return RoleNone, apperr.Internal("failed to load caller", err)
	}
	if user == nil {
		return RoleNone, nil
	}
	role, err := ParseRole(user.Role)
	if err != nil {
		// A stored claim outside the enum grants nothing.
		return RoleNone, nil
	}
	return role, nil
}
