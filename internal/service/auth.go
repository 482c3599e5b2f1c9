package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository"
)

var ErrEmailTaken = repository.ErrEmailTaken

type AuthUserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	Save(ctx context.Context, user domain.User) (domain.User, error)
}

// AuthService maps identities verified by the token middleware to local users.
type AuthService struct {
	repo AuthUserRepository
}

func NewAuthService(repo AuthUserRepository) *AuthService {
	return &AuthService{
		repo: repo,
	}
}

// Authenticate provisions the user on first sight and refreshes the stored
// email, name and roles whenever the identity provider changed them.
func (s *AuthService) Authenticate(ctx context.Context, identity domain.User) (domain.Principal, error) {
	identity.Email = strings.TrimSpace(identity.Email)
	if identity.Email == "" {
		return domain.Principal{}, domain.Invalidf("identity %d has no email", identity.ID)
	}
	if len(identity.Roles) == 0 {
		identity.Roles = []string{domain.PlatformRoleUser}
	}

	stored, err := s.repo.FindByID(ctx, identity.ID)
	switch {
	case err == nil:
		if sameIdentity(stored, identity) {
			return principalOf(stored), nil
		}
		identity.PhoneNumber = stored.PhoneNumber
		identity.CreatedAt = stored.CreatedAt
	case errors.Is(err, ErrUserNotFound):
	default:
		return domain.Principal{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if identity.Name == "" {
		identity.Name = identity.Email
	}

	saved, err := s.repo.Save(ctx, identity)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("s.repo.Save -> %w", err)
	}

	return principalOf(saved), nil
}

func sameIdentity(stored, identity domain.User) bool {
	return strings.EqualFold(stored.Email, identity.Email) &&
		(identity.Name == "" || stored.Name == identity.Name) &&
		slices.Equal(stored.Roles, identity.Roles)
}

func principalOf(u domain.User) domain.Principal {
	return domain.Principal{
		UserID: u.ID,
		Email:  u.Email,
		Roles:  u.Roles,
	}
}
