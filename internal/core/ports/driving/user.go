package driving

import (
	"context"

	"github.com/custodia-labs/userstore/internal/core/domain"
)

// UserService exposes the user repository operations to the HTTP layer
type UserService interface {
	// Create validates the candidate, assigns a fresh id and persists it
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// Get retrieves a user by id
	Get(ctx context.Context, id int64) (*domain.User, error)

	// Update overwrites an existing user. The stored id always wins over
	// any id supplied in the candidate.
	Update(ctx context.Context, id int64, user *domain.User) (*domain.User, error)

	// Delete removes a user by id
	Delete(ctx context.Context, id int64) error

	// List retrieves all users ordered by id
	List(ctx context.Context) ([]*domain.User, error)

	// Search retrieves users whose name contains term (case-insensitive)
	Search(ctx context.Context, term string) ([]*domain.User, error)
}
