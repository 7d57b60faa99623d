// Package metadata stores small device-local key/value facts: the pull
// cursor, the last unlocked user, timestamps of the last successful sync.
package metadata

import "context"

// Repository is a tiny key/value store scoped to the local database.
type Repository interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
}
