package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository/dao"
)

var (
	ErrUserNotFound  = dao.ErrUserNotFound
	ErrUsersNotFound = dao.ErrUsersNotFound
	ErrEmailTaken    = dao.ErrEmailTaken
)

type UserDAO interface {
	FindByID(ctx context.Context, id uint) (dao.User, error)
	FindByEmail(ctx context.Context, email string) (dao.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]dao.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]dao.User, error)
	Upsert(ctx context.Context, user dao.User) (dao.User, error)
}

type UserRepository struct {
	dao UserDAO
}

func NewUserRepository(dao UserDAO) *UserRepository {
	return &UserRepository{
		dao: dao,
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return userDaoToDomain(found), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	found, err := r.dao.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByEmail -> %w", err)
	}

	return userDaoToDomain(found), nil
}

func (r *UserRepository) FindByEmails(ctx context.Context, emails []string) ([]domain.User, error) {
	found, err := r.dao.FindByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEmails -> %w", err)
	}

	return usersDaoToDomain(found), nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint) ([]domain.User, error) {
	found, err := r.dao.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByIDs -> %w", err)
	}

	return usersDaoToDomain(found), nil
}

func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	saved, err := r.dao.Upsert(ctx, userDomainToDao(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Upsert -> %w", err)
	}

	return userDaoToDomain(saved), nil
}

func usersDaoToDomain(users []dao.User) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, userDaoToDomain(u))
	}

	return out
}

func userDaoToDomain(u dao.User) domain.User {
	var roles []string
	for _, role := range strings.Split(u.Roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	return domain.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		Roles:       roles,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func userDomainToDao(u domain.User) dao.User {
	roles := u.Roles
	if len(roles) == 0 {
		roles = []string{domain.PlatformRoleUser}
	}

	return dao.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		Roles:       strings.Join(roles, ","),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
