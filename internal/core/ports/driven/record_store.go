package driven

import "context"

// RecordStore is the key-value backend records are persisted in.
// Operations are side-effecting against shared external state and do
// not retry internally; transient backend errors propagate to the
// caller.
type RecordStore interface {
	// Get retrieves the raw value stored at key.
	// Returns domain.ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value at key, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Returns true iff a key was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// Increment atomically increments the integer counter at key and
	// returns the post-increment value. A missing key counts from zero.
	Increment(ctx context.Context, key string) (int64, error)

	// Scan streams keys matching the glob pattern to fn, fetching them
	// incrementally via a cursor rather than materializing the full key
	// space. A non-nil error from fn stops the scan and is returned.
	Scan(ctx context.Context, match string, fn func(key string) error) error
}
