// Package memory provides an in-memory Repository, used as a test double
// in place of the LevelDB and S3 implementations.
package memory

import (
	"context"
	"sync"

	"github.com/ktaudit/ktaudit/db"
)

func dup(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Repository is an in-memory db.Repository: a single last-writer-wins slot
// guarded by a mutex, since the audit loop and any concurrent inspection
// (tests, metrics) may touch it from different goroutines.
type Repository struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

func New() *Repository {
	return &Repository{}
}

func (r *Repository) Get(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return nil, db.ErrNotFound
	}
	return dup(r.data), nil
}

func (r *Repository) Put(ctx context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = dup(data)
	r.set = true
	return nil
}
