package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

type UserRepository struct {
	s *Store
}

// Save inserts or replaces a user. A zero id gets the next free id.
func (r *UserRepository) Save(_ context.Context, user domain.User) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if other, ok := r.byEmail(user.Email); ok && other.ID != user.ID {
		return domain.User{}, domain.ErrEmailTaken
	}

	if user.ID == 0 {
		user.ID = r.s.nextID()
	} else if user.ID > r.s.lastID {
		r.s.lastID = user.ID
	}
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = user

	return user, nil
}

func (r *UserRepository) FindByID(_ context.Context, id uint) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return user, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if user, ok := r.byEmail(email); ok {
		return user, nil
	}

	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) FindByEmails(_ context.Context, emails []string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[uint]struct{}, len(emails))
	users := make([]domain.User, 0, len(emails))
	for _, email := range emails {
		user, ok := r.byEmail(email)
		if !ok {
			return nil, domain.ErrUsersNotFound
		}
		if _, dup := seen[user.ID]; dup {
			continue
		}
		seen[user.ID] = struct{}{}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []uint) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.s.users[id]; ok {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (r *UserRepository) byEmail(email string) (domain.User, bool) {
	email = strings.TrimSpace(email)
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			return user, true
		}
	}

	return domain.User{}, false
}
