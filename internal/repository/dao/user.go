package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

var (
	ErrUserNotFound  = domain.ErrUserNotFound
	ErrUsersNotFound = domain.ErrUsersNotFound
	ErrEmailTaken    = domain.ErrEmailTaken
)

const (
	userEmailConstraint = "uni_users_email"
	// userEmailLowerIndex backs the case-insensitive lookups; see InitTables.
	userEmailLowerIndex = "idx_users_email_lower"
)

type User struct {
	ID uint `gorm:"primaryKey"`

	Email       string `gorm:"unique;not null"`
	Name        string `gorm:"not null"`
	PhoneNumber string
	Roles       string `gorm:"not null;default:USER"` // comma separated platform roles

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{
		db: db,
	}
}

// Upsert inserts the user with its identity provider id or overwrites the
// profile columns of an existing row. Emails are stored lower-cased.
func (d *UserDAO) Upsert(ctx context.Context, user User) (User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	result := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "roles", "updated_at"}),
	}).Create(&user)
	if result.Error != nil {
		if isUniqueViolation(result.Error, userEmailConstraint) || isUniqueViolation(result.Error, userEmailLowerIndex) {
			return User{}, ErrEmailTaken
		}

		return User{}, result.Error
	}

	return user, nil
}

func (d *UserDAO) FindByID(ctx context.Context, id uint) (User, error) {
	var user User

	result := d.db.WithContext(ctx).First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

func (d *UserDAO) FindByEmail(ctx context.Context, email string) (User, error) {
	var user User

	result := d.db.WithContext(ctx).First(&user, "lower(email) = lower(?)", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

// FindByEmails fails with ErrUsersNotFound unless every email resolves.
func (d *UserDAO) FindByEmails(ctx context.Context, emails []string) ([]User, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(emails))
	wanted := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		l := strings.ToLower(strings.TrimSpace(e))
		if _, ok := wanted[l]; ok {
			continue
		}
		wanted[l] = struct{}{}
		lowered = append(lowered, l)
	}

	var users []User
	result := d.db.WithContext(ctx).Where("lower(email) IN ?", lowered).Order("id").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(users) != len(lowered) {
		return nil, ErrUsersNotFound
	}

	return users, nil
}

func (d *UserDAO) FindByIDs(ctx context.Context, ids []uint) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var users []User
	result := d.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}
