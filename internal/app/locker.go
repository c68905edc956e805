package app

import (
	"context"
	"time"
)

type boundedLocker struct {
	inner   UserLocker
	timeout time.Duration
}

// WithLockTimeout bounds how long Lock waits for a busy user.
// A non-positive timeout returns inner unchanged.
func WithLockTimeout(inner UserLocker, timeout time.Duration) UserLocker {
	if timeout <= 0 {
		return inner
	}
	return &boundedLocker{inner: inner, timeout: timeout}
}

func (l *boundedLocker) Lock(ctx context.Context, userID string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.inner.Lock(ctx, userID)
}
