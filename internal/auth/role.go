package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of values the role claim may hold.
type Role string

const (
	RoleNone       Role = ""
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleAccounting Role = "accounting"
	RoleFactory    Role = "factory"
	RoleClient     Role = "client"
)

// DefaultRole is what self-service sign-up may claim.
const DefaultRole = RoleClient

// ParseRole accepts exactly the known role names, case-insensitively.
// An empty string parses to RoleNone.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleNone, RoleAdmin, RoleStaff, RoleAccounting, RoleFactory, RoleClient:
		return r, nil
	default:
		return RoleNone, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// RoleSet is an allow-list for the authorization gate.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains never matches RoleNone.
func (s RoleSet) Contains(r Role) bool {
	if r == RoleNone {
		return false
	}
	_, ok := s[r]
	return ok
}

var (
	BackupRoles    = NewRoleSet(RoleAdmin, RoleStaff, RoleAccounting)
	RoleAdminRoles = NewRoleSet(RoleAdmin, RoleStaff)
	UserInfoRoles  = NewRoleSet(RoleAdmin, RoleStaff)
	StaffRoles     = NewRoleSet(RoleAdmin, RoleStaff, RoleFactory)
	BillingRoles   = NewRoleSet(RoleAdmin, RoleAccounting)
	// ClientRecordRoles may read any client's profile and invoices.
	ClientRecordRoles = NewRoleSet(RoleAdmin, RoleStaff, RoleAccounting)
)
