package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
)

// stateKey is the single fixed key the local repository ever reads or
// writes; the auditor persists exactly one blob.
const stateKey = "auditor-state"

// LocalRepository persists the auditor's blob in an embedded LevelDB
// database at a configured directory path.
type LocalRepository struct {
	conn *leveldb.DB
}

// OpenLocalRepository opens (creating if necessary) a LevelDB database at
// path. Parent directories are created as needed.
func OpenLocalRepository(path string) (*LocalRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating repository directory: %w", err)
	}

	conn, err := leveldb.OpenFile(path, nil)
	if errors.IsCorrupted(err) {
		conn, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("opening local repository: %w", err)
	}
	return &LocalRepository{conn: conn}, nil
}

func (r *LocalRepository) Get(ctx context.Context) ([]byte, error) {
	value, err := r.conn.Get([]byte(stateKey), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("reading local repository: %w", err)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (r *LocalRepository) Put(ctx context.Context, data []byte) error {
	if err := r.conn.Put([]byte(stateKey), data, nil); err != nil {
		return fmt.Errorf("writing local repository: %w", err)
	}
	return nil
}

func (r *LocalRepository) Close() error {
	return r.conn.Close()
}
