package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

// Service reads and writes users, keeping the cache coherent with its own writes.
type Service struct {
	store repository.UserRepository
	cache *Cache
	clock clock.Clock
}

// NewService creates a user service with a cache of the given ttl.
func NewService(store repository.UserRepository, ttl time.Duration, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		store: store,
		cache: NewCache(store.GetUser, ttl, clk),
		clock: clk,
	}
}

// Create adds a user.
func (s *Service) Create(ctx context.Context, name, email string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validate(name, email); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	u := &model.User{
		ID:        model.GenerateID(model.PrefixUser),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update renames a user or changes their email. Empty arguments keep the
// current value.
func (s *Service) Update(ctx context.Context, id, name, email string) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		u.Email = email
	}
	if err := validate(u.Name, u.Email); err != nil {
		return nil, err
	}

	u.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	s.cache.Invalidate(id)
	return u, nil
}

// Get returns a user through the cache.
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	return s.cache.Get(ctx, id)
}

// List returns every user from the store.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

// DisplayName returns the user's name, or the id itself when the user is
// unknown. Other errors are returned.
func (s *Service) DisplayName(ctx context.Context, id string) (string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return id, nil
		}
		return "", err
	}
	return u.Name, nil
}

func validate(name, email string) error {
	if name == "" {
		return model.Invalid("user name is required")
	}
	if email != "" && !strings.Contains(email, "@") {
		return model.Invalid("invalid email: %s", email)
	}
	return nil
}
