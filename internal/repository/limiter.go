package repository

import (
	"context"
	"errors"
)

// Limiter applies per-scope daily limits on top of a quota Client. Scopes
// without a positive limit are unlimited.
type Limiter struct {
	store  *Client
	limits map[string]int
}

// NewLimiter creates a Limiter. limits maps a scope (e.g. "chat") to the
// number of requests allowed per client per day.
func NewLimiter(store *Client, limits map[string]int) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("repository: limiter store must not be nil")
	}
	copied := make(map[string]int, len(limits))
	for k, v := range limits {
		copied[k] = v
	}
	return &Limiter{store: store, limits: copied}, nil
}

// Allow records one request for clientID in scope and reports whether it fits
// in the current window.
func (l *Limiter) Allow(ctx context.Context, scope, clientID string) (bool, error) {
	limit := l.limits[scope]
	if limit <= 0 {
		return true, nil
	}
	if _, err := l.store.Consume(ctx, scope, clientID, limit); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
