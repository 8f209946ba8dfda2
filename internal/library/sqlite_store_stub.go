//go:build !cgo

package library

import (
	"context"
	"errors"
)

var errNoSQLite = errors.New("sqlite library store is not available in non-CGO builds; rebuild with CGO_ENABLED=1 or leave storage-path empty")

type SQLiteStore struct{}

func NewSQLiteStore(_ string) (*SQLiteStore, error) {
	return nil, errNoSQLite
}

func (s *SQLiteStore) Load(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, errNoSQLite
}

func (s *SQLiteStore) Save(_ context.Context, _ string, _ []byte) error { return errNoSQLite }

func (s *SQLiteStore) Delete(_ context.Context, _ string) error { return errNoSQLite }

func (s *SQLiteStore) Close() error { return nil }
