package service

import (
	"context"
	"fmt"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

var (
	ErrUserNotFound  = domain.ErrUserNotFound
	ErrUsersNotFound = domain.ErrUsersNotFound
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]domain.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]domain.User, error)
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

func usersByID(users []domain.User) map[uint]domain.User {
	byID := make(map[uint]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	return byID
}
