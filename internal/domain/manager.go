package domain

import "strings"

// EventRole is ordered: a higher value holds every privilege of a lower one.
type EventRole int

const (
	RoleNone EventRole = iota
	RoleStaff
	RoleManage
)

func ParseEventRole(s string) (EventRole, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STAFF":
		return RoleStaff, nil
	case "MANAGE":
		return RoleManage, nil
	default:
		return RoleNone, Invalidf("unknown event role %q", s)
	}
}

func (r EventRole) String() string {
	switch r {
	case RoleStaff:
		return "STAFF"
	case RoleManage:
		return "MANAGE"
	default:
		return ""
	}
}

func (r EventRole) AtLeast(required EventRole) bool {
	return r >= required
}

// CanRemove reports whether an actor holding r may remove a participant
// holding target. RoleNone on the actor side is the platform-level override.
func (r EventRole) CanRemove(target EventRole) bool {
	switch r {
	case RoleManage:
		return target == RoleNone || target == RoleStaff
	case RoleStaff:
		return target == RoleNone
	default:
		return true
	}
}

type EventManager struct {
	EventID uint
	UserID  uint
	Role    EventRole
}

type ManagerView struct {
	User UserSummary `json:"user"`
	Role string      `json:"role"`
}
