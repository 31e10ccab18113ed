package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/podforge/podforge/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	mode TEXT NOT NULL,
	style TEXT,
	length TEXT,
	tone TEXT,
	audience TEXT,
	sources_total INTEGER NOT NULL,
	sources_fetched INTEGER NOT NULL,
	path TEXT,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	error TEXT
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create episodes table: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, episode *storage.Episode) error {
	query := `
	INSERT INTO episodes (
		id, topic, mode, style, length, tone, audience, sources_total, sources_fetched, path, duration_ms, created_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		episode.ID,
		episode.Topic,
		episode.Mode,
		episode.Style,
		episode.Length,
		episode.Tone,
		episode.Audience,
		episode.SourcesTotal,
		episode.SourcesFetched,
		episode.Path,
		episode.Duration.Milliseconds(),
		episode.CreatedAt,
		episode.Error,
	)

	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Episode, error) {
	query := `SELECT id, topic, mode, style, length, tone, audience, sources_total, sources_fetched, path, duration_ms, created_at, error FROM episodes WHERE 1=1`
	args := []any{}

	if filter.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, filter.Topic)
	}
	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, filter.Mode)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*storage.Episode
	for rows.Next() {
		var e storage.Episode
		var durationMs int64

		err := rows.Scan(
			&e.ID, &e.Topic, &e.Mode, &e.Style, &e.Length, &e.Tone, &e.Audience,
			&e.SourcesTotal, &e.SourcesFetched, &e.Path, &durationMs, &e.CreatedAt, &e.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}

		e.Duration = time.Duration(durationMs) * time.Millisecond
		episodes = append(episodes, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}

	return episodes, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
