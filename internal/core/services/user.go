package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/userstore/internal/core/domain"
	"github.com/custodia-labs/userstore/internal/core/ports/driven"
	"github.com/custodia-labs/userstore/internal/core/ports/driving"
)

const (
	// Key layout in the record store
	userKeyPrefix = "user:"
	nextIDKey     = "user:nextId"
)

// Ensure userService implements UserService
var _ driving.UserService = (*userService)(nil)

// userService maps user operations onto record store primitives. It
// owns the key naming and id generation policy and holds no cache; the
// store is the single source of truth for every operation.
type userService struct {
	store  driven.RecordStore
	logger *slog.Logger
}

// NewUserService creates a new UserService backed by store
func NewUserService(store driven.RecordStore, logger *slog.Logger) driving.UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		store:  store,
		logger: logger,
	}
}

// userKey derives the storage key for a user id
func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// Create validates the candidate, mints an id from the store counter
// and persists the record. The counter is never decremented: a write
// failure after the increment leaves a gap in the id sequence.
func (s *userService) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.Increment(ctx, nextIDKey)
	if err != nil {
		return nil, fmt.Errorf("assign user id: %w", err)
	}
	user.ID = id

	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user %d: %w", id, err)
	}

	if err := s.store.Set(ctx, userKey(id), data); err != nil {
		return nil, fmt.Errorf("store user %d: %w", id, err)
	}

	return user, nil
}

// Get retrieves a user by id. The existence check and the read are two
// separate store calls; a record deleted in between yields not-found
// rather than a stale read.
func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	ok, err := s.store.Exists(ctx, userKey(id))
	if err != nil {
		return nil, fmt.Errorf("check user %d: %w", id, err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}

	data, err := s.store.Get(ctx, userKey(id))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read user %d: %w", id, err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user %d: %w", id, err)
	}

	return &user, nil
}

// Update overwrites an existing record entirely (no partial-field
// merge). Any id carried in the candidate is discarded in favor of the
// addressed id.
func (s *userService) Update(ctx context.Context, id int64, user *domain.User) (*domain.User, error) {
	ok, err := s.store.Exists(ctx, userKey(id))
	if err != nil {
		return nil, fmt.Errorf("check user %d: %w", id, err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	// Client-supplied id field is never trusted
	user.ID = id

	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshal user %d: %w", id, err)
	}

	if err := s.store.Set(ctx, userKey(id), data); err != nil {
		return nil, fmt.Errorf("store user %d: %w", id, err)
	}

	return user, nil
}

// Delete removes a user key. No tombstone is kept and the id counter is
// not decremented.
func (s *userService) Delete(ctx context.Context, id int64) error {
	removed, err := s.store.Delete(ctx, userKey(id))
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if !removed {
		return domain.ErrNotFound
	}
	return nil
}

// List scans all user keys (excluding the id counter), reads each
// record and returns them ordered by id. Unreadable or corrupt entries
// are skipped rather than failing the whole listing; the skip count is
// logged for observability.
func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0)
	skipped := 0

	err := s.store.Scan(ctx, userKeyPrefix+"*", func(key string) error {
		if key == nextIDKey {
			return nil
		}

		data, err := s.store.Get(ctx, key)
		if err != nil {
			// Deleted mid-scan or unreadable; skip and keep listing
			skipped++
			return nil
		}

		var user domain.User
		if err := json.Unmarshal(data, &user); err != nil {
			skipped++
			return nil
		}

		users = append(users, &user)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}

	if skipped > 0 {
		s.logger.Warn("skipped unreadable user records during listing", "count", skipped)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Search lists all users and filters by case-insensitive substring
// match on name. A blank term is rejected before any store access.
func (s *userService) Search(ctx context.Context, term string) ([]*domain.User, error) {
	if strings.TrimSpace(term) == "" {
		return nil, domain.ErrEmptySearchTerm
	}

	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*domain.User, 0)
	for _, user := range users {
		if user.MatchesName(term) {
			matches = append(matches, user)
		}
	}

	return matches, nil
}
