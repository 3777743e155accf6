package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is one stored row. Keys are not unique at this layer: retried and
// concurrent uploads may insert several rows for one key, and lookups resolve
// most-recent-wins (highest id).
type Record struct {
	ID        int64
	Key       string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStore is raw CRUD over blob_files rows, including the SQL-side
// substring extraction used for partial reads.
type RecordStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewRecordStore(db *sql.DB, driver string) *RecordStore {
	return &RecordStore{db: db, driver: driver}
}

// Insert always appends a new row; it never overwrites an existing key.
func (s *RecordStore) Insert(ctx context.Context, key string, data []byte) (int64, error) {
	now := time.Now().Unix()
	if s.driver == "postgres" {
		var id int64
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO blob_files (key, data, created_at, updated_at) VALUES ($1,$2,$3,$4) RETURNING id`,
			key, data, now, now).Scan(&id)
		return id, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO blob_files (key, data, created_at, updated_at) VALUES ($1,$2,$3,$4)`,
		key, data, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *RecordStore) FindByKey(ctx context.Context, key string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, key, data, created_at, updated_at FROM blob_files WHERE key=$1 ORDER BY id DESC LIMIT 1`, key)
	var r Record
	var created, updated int64
	if err := row.Scan(&r.ID, &r.Key, &r.Data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	r.CreatedAt = time.Unix(created, 0)
	r.UpdatedAt = time.Unix(updated, 0)
	return r, nil
}

// ExtractRange returns length bytes of a key's data starting at the 0-indexed
// offset, sliced inside the database. SQL substring functions are 1-indexed,
// hence the offset+1.
func (s *RecordStore) ExtractRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	var q string
	if s.driver == "postgres" {
		q = `SELECT substring(data FROM $2 FOR $3) FROM blob_files WHERE key=$1 ORDER BY id DESC LIMIT 1`
	} else {
		q = `SELECT substr(data, $2, $3) FROM blob_files WHERE key=$1 ORDER BY id DESC LIMIT 1`
	}
	var chunk []byte
	if err := s.db.QueryRowContext(ctx, q, key, offset+1, length).Scan(&chunk); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// FindByKeys returns data for each of the given keys that exists, resolved
// most-recent-wins per key. Missing keys are simply absent from the result.
func (s *RecordStore) FindByKeys(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = k
	}
	// Ascending id order so later duplicates overwrite earlier ones in the map.
	q := fmt.Sprintf(`SELECT key, data FROM blob_files WHERE key IN (%s) ORDER BY id ASC`,
		strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var d []byte
		if err := rows.Scan(&k, &d); err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, rows.Err()
}

// DeleteByKey removes every row for the key. Deleting a missing key is a no-op.
func (s *RecordStore) DeleteByKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blob_files WHERE key=$1`, key)
	return err
}

// DeleteByPrefix removes every row whose key starts with prefix. The match is
// a raw LIKE on the key string; no path normalization is applied.
func (s *RecordStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blob_files WHERE key LIKE $1`, prefix+"%")
	return err
}

func (s *RecordStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blob_files WHERE key=$1 LIMIT 1`, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
