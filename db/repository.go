// Package db implements the state repository the auditor persists its
// signed attestation blob to: get returns the last successful put, or
// ErrNotFound if nothing has ever been stored.
package db

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Repository.Get when no blob has ever been
// persisted.
var ErrNotFound = errors.New("repository: no persisted state")

// Repository is the seam between the auditor and wherever its persisted
// attestation blob actually lives. Put is last-writer-wins; Get returns the
// bytes from the most recent successful Put.
type Repository interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
}
