package callable

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/auth"
	"go.uber.org/zap"
)

type GetUserInfoRequest struct {
	UID string `json:"uid"`
}

type UserInfoResponse struct {
	Success     bool   `json:"success"`
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
	Message     string `json:"message,omitempty"`
}

// GetUserInfo looks a user up by uid. An unknown uid is reported in the
// payload (success=false), not as an error.
func (s *Service) GetUserInfo(ctx context.Context, caller uuid.UUID, req GetUserInfoRequest) (*UserInfoResponse, error) {
	if err := s.authorize(ctx, caller, auth.UserInfoRoles); err != nil {
		return nil, err
	}
	if req.UID == "" {
		return nil, apperr.InvalidArgument("uid is required")
	}
	uid, err := uuid.Parse(req.UID)
	if err != nil {
		return &UserInfoResponse{Success: false, Message: "User not found"}, nil
	}

	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		s.logger.Error("failed to get user info", zap.String("uid", req.UID), zap.Error(err))
		return nil, apperr.Internal("failed to get user info", err)
	}
	if user == nil {
		return &UserInfoResponse{Success: false, Message: "User not found"}, nil
	}

	return &UserInfoResponse{
		Success:     true,
		UID:         user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}, nil
}

type SetClientRoleRequest struct {
	UID         string  `json:"uid"`
	DisplayName *string `json:"displayName,omitempty"`
	Role        string  `json:"role,omitempty"`
}

type SetRoleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Role    string `json:"role"`
}

// SetClientRole assigns a role claim.
//
// Targeting yourself (uid empty or equal to the caller) is the sign-up
// path: only the client role may be claimed and only once. A caller that
// already holds any role gets that role back and nothing is written.
//
// Targeting someone else requires admin or staff; the role defaults to
// client and an unknown target is not-found.
func (s *Service) SetClientRole(ctx context.Context, caller uuid.UUID, req SetClientRoleRequest) (*SetRoleResponse, error) {
	if caller == uuid.Nil {
		return nil, apperr.Unauthenticated("authentication required")
	}

	target := caller
	if req.UID != "" {
		id, err := uuid.Parse(req.UID)
		if err != nil {
			return nil, apperr.InvalidArgument("uid is not a valid id")
		}
		target = id
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}

	if target == caller {
		return s.claimClientRole(ctx, caller, role, req.DisplayName)
	}

	if err := s.authorize(ctx, caller, auth.RoleAdminRoles); err != nil {
		return nil, err
	}
	return s.AssignRole(ctx, caller.String(), target, role, req.DisplayName)
}

// AssignRole writes target's role claim without consulting the gate.
// It is the admin path of SetClientRole and what fretctl calls directly.
// actor is only logged.
func (s *Service) AssignRole(ctx context.Context, actor string, target uuid.UUID, role auth.Role, displayName *string) (*SetRoleResponse, error) {
	if role == auth.RoleNone {
		role = auth.DefaultRole
	}

	user, err := s.users.GetByID(ctx, target)
	if err != nil {
		return nil, s.internal("load role target", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	if ok, err := s.users.SetRole(ctx, target, role.String()); err != nil {
		return nil, s.internal("set role", err)
	} else if !ok {
		return nil, apperr.NotFound("user not found")
	}

	name := user.DisplayName
	if displayName != nil {
		name = *displayName
		if _, err := s.users.SetDisplayName(ctx, target, name); err != nil {
			return nil, s.internal("set display name", err)
		}
	}
	if role == auth.RoleClient {
		if err := s.clients.EnsureProfile(ctx, target, name, user.Email); err != nil {
			return nil, s.internal("ensure client profile", err)
		}
	}

	s.logger.Info("role assigned",
		zap.String("actor", actor),
		zap.String("target", target.String()),
		zap.String("role", role.String()),
	)
	return &SetRoleResponse{
		Success: true,
		Message: fmt.Sprintf("Role %s assigned; it applies once the user's session is refreshed", role),
		Role:    role.String(),
	}, nil
}

func (s *Service) claimClientRole(ctx context.Context, caller uuid.UUID, requested auth.Role, displayName *string) (*SetRoleResponse, error) {
	if requested != auth.RoleNone && requested != auth.DefaultRole {
		return nil, apperr.PermissionDenied("only the client role can be self-assigned")
	}

	user, err := s.users.GetByID(ctx, caller)
	if err != nil {
		return nil, s.internal("load caller", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	if user.Role != "" {
		return &SetRoleResponse{
			Success: true,
			Message: "Role already set",
			Role:    user.Role,
		}, nil
	}

	claimed, err := s.users.ClaimRole(ctx, caller, auth.DefaultRole.String())
	if err != nil {
		return nil, s.internal("claim role", err)
	}
	if !claimed {
		// A concurrent claim or assignment got there first.
		return s.existingRole(ctx, caller)
	}

	name := user.DisplayName
	if displayName != nil {
		name = *displayName
		if _, err := s.users.SetDisplayName(ctx, caller, name); err != nil {
			return nil, s.internal("set display name", err)
		}
	}
	if err := s.clients.EnsureProfile(ctx, caller, name, user.Email); err != nil {
		return nil, s.internal("ensure client profile", err)
	}

	return &SetRoleResponse{
		Success: true,
		Message: "Client role assigned",
		Role:    auth.DefaultRole.String(),
	}, nil
}

func (s *Service) existingRole(ctx context.Context, uid uuid.UUID) (*SetRoleResponse, error) {
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, s.internal("load caller", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return &SetRoleResponse{
		Success: true,
		Message: "Role already set",
		Role:    user.Role,
	}, nil
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error("callable failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal(op+" failed", err)
}
