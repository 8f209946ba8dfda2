//go:build !cgo

package offline

import (
	"context"
	"errors"
)

var errNoSQLite = errors.New("sqlite offline store is not available in non-CGO builds; rebuild with CGO_ENABLED=1 or leave storage-path empty")

type SQLiteStore struct{}

func NewSQLiteStore(_ string) (*SQLiteStore, error) {
	return nil, errNoSQLite
}

func (s *SQLiteStore) Get(_ context.Context, _ string) (*Blob, error) { return nil, errNoSQLite }

func (s *SQLiteStore) Put(_ context.Context, _ *Blob) error { return errNoSQLite }

func (s *SQLiteStore) Has(_ context.Context, _ string) (bool, error) { return false, errNoSQLite }

func (s *SQLiteStore) Delete(_ context.Context, _ string) error { return errNoSQLite }

func (s *SQLiteStore) Close() error { return nil }
