package service

import (
	"context"
	"fmt"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

var (
	ErrInsufficientRole = domain.ErrInsufficientRole
)

type RoleFinder interface {
	FindRoles(ctx context.Context, eventID uint, userIDs []uint) (map[uint]domain.EventRole, error)
}

func eventRole(ctx context.Context, roles RoleFinder, eventID, userID uint) (domain.EventRole, error) {
	found, err := roles.FindRoles(ctx, eventID, []uint{userID})
	if err != nil {
		return domain.RoleNone, fmt.Errorf("roles.FindRoles -> %w", err)
	}

	return found[userID], nil
}

// authorize returns the actor's role on the event, or ErrInsufficientRole
// when it is below required and the actor is not a platform admin.
func authorize(ctx context.Context, roles RoleFinder, eventID uint, actor domain.Principal, required domain.EventRole) (domain.EventRole, error) {
	role, err := eventRole(ctx, roles, eventID, actor.UserID)
	if err != nil {
		return domain.RoleNone, err
	}

	if role.AtLeast(required) || actor.IsAdmin() {
		return role, nil
	}

	return role, ErrInsufficientRole
}
