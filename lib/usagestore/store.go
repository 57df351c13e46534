package usagestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"atmosenergy/lib/scrapers/atmos"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const Schema = `
CREATE TABLE IF NOT EXISTS usage_readings (
	date TEXT PRIMARY KEY,
	time INTEGER NOT NULL,
	value TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_readings_time ON usage_readings(time);
`

// Store persists decoded usage readings keyed by reading date, so
// re-fetching a billing period upserts instead of duplicating rows.
// Values stay TEXT because the client keeps them verbatim.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) (Store, error) {
	_, err := database.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("initializing schema: %w", err)
	}
	return Store{db: database}, nil
}

// Open opens (creating if needed) a local sqlite store at the given path.
func Open(path string) (Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, fmt.Errorf("opening database: %w", err)
	}
	store, err := NewStore(database)
	if err != nil {
		database.Close()
		return Store{}, err
	}
	return store, nil
}

// OpenRemote opens a hosted libsql database instead of a local file.
func OpenRemote(url string) (Store, error) {
	database, err := sql.Open("libsql", url)
	if err != nil {
		return Store{}, fmt.Errorf("opening database: %w", err)
	}
	store, err := NewStore(database)
	if err != nil {
		database.Close()
		return Store{}, err
	}
	return store, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) Push(ctx context.Context, readings []atmos.Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := time.Now().Unix()
	for _, r := range readings {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO usage_readings (date, time, value, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(date) DO UPDATE SET time = excluded.time, value = excluded.value`,
			r.Time.Format(time.DateOnly),
			r.Time.Unix(),
			r.Value,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("inserting reading for %s: %w", r.Time.Format(time.DateOnly), err)
		}
	}
	return tx.Commit()
}

// Query returns the stored readings in the half-open range [after, before),
// ordered by time ascending.
func (s Store) Query(ctx context.Context, after, before time.Time) ([]atmos.Reading, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT time, value FROM usage_readings
		 WHERE time >= ? AND time < ?
		 ORDER BY time ASC`,
		after.Unix(),
		before.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []atmos.Reading
	for rows.Next() {
		var unix int64
		var value string
		if err := rows.Scan(&unix, &value); err != nil {
			return nil, err
		}
		readings = append(readings, atmos.Reading{
			Time:  time.Unix(unix, 0),
			Value: value,
		})
	}
	return readings, rows.Err()
}
