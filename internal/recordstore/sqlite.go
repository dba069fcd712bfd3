package recordstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore/migrations"
)

// SQLiteStore keeps every collection in a single JSON document table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (and migrates) a SQLite record store.
// path can be a file path or ":memory:".
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConnectivity, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM records WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", collection, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (s *SQLiteStore) Find(ctx context.Context, collection string, key Key) (Record, error) {
	_, rec, err := s.find(ctx, collection, key)
	return rec, err
}

func (s *SQLiteStore) find(ctx context.Context, collection string, key Key) (int64, Record, error) {
	var (
		id  int64
		raw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, data FROM records
		 WHERE collection = ? AND CAST(json_extract(data, '$.' || ?) AS TEXT) = ?
		 ORDER BY id LIMIT 1`,
		collection, key.Field, key.Value).Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("finding %s %s: %w", collection, key, err)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return 0, nil, err
	}
	return id, rec, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, collection string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (collection, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		collection, string(data), now, now)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection string, key Key, rec Record) error {
	id, _, err := s.find(ctx, collection, key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE records SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", collection, key, err)
	}
	return nil
}

func decodeRecord(raw string) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}
