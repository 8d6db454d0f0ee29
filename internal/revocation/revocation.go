// Package revocation records token strings that must never be accepted
// again. Revocation is append-only: nothing is ever removed.
package revocation

import (
	"context"
	"errors"
)

var ErrEmptyToken = errors.New("token required")

type Store interface {
	// Revoke is idempotent.
	Revoke(ctx context.Context, token string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}
