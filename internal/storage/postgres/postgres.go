package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/podforge/podforge/internal/storage"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
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
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	_, err = pool.Exec(ctx, schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create episodes table: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, episode *storage.Episode) error {
	query := `
	INSERT INTO episodes (
		id, topic, mode, style, length, tone, audience, sources_total, sources_fetched, path, duration_ms, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := b.pool.Exec(ctx, query,
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

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Episode, error) {
	query := `SELECT id, topic, mode, style, length, tone, audience, sources_total, sources_fetched, path, duration_ms, created_at, error FROM episodes WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Topic != "" {
		query += fmt.Sprintf(` AND topic = $%d`, paramCount)
		args = append(args, filter.Topic)
		paramCount++
	}
	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, paramCount)
		args = append(args, filter.Mode)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
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

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
