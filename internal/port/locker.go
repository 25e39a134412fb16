package port

import "context"

type Locker interface {
	// Lock blocks until the key is held or ctx is done, and returns the
	// function that releases it
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency drops the key so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
