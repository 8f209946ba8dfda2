//go:build cgo

package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists blobs in a single sqlite table. Each Put is one statement, so a
// failed write leaves the previous entry untouched.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the blob database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline store: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS audio_blobs(
		video_id TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		data BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create offline schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, videoID string) (*Blob, error) {
	var (
		blob   = &Blob{VideoID: videoID}
		stored int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT content_type, data, stored_at FROM audio_blobs WHERE video_id = ?", videoID,
	).Scan(&blob.ContentType, &blob.Data, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}

	blob.StoredAt = time.Unix(stored, 0)
	return blob, nil
}

func (s *SQLiteStore) Put(ctx context.Context, blob *Blob) error {
	if blob == nil || blob.VideoID == "" {
		return errors.New("blob without video id")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO audio_blobs (video_id, content_type, data, stored_at) VALUES (?, ?, ?, ?)",
		blob.VideoID, blob.ContentType, blob.Data, blob.StoredAt.Unix())
	return err
}

func (s *SQLiteStore) Has(ctx context.Context, videoID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audio_blobs WHERE video_id = ?", videoID).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) Delete(ctx context.Context, videoID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM audio_blobs WHERE video_id = ?", videoID)
	return err
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
