package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/storage"
)

var _ storage.Repository = (*Repository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS gothamist_articles (
	checksum     CHAR(64) PRIMARY KEY,
	run_id       UUID NOT NULL,
	sequence_num INTEGER NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	picture_url  TEXT NOT NULL,
	phrase_count INTEGER NOT NULL,
	about_cash   BOOLEAN NOT NULL,
	scraped_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gothamist_articles_run ON gothamist_articles(run_id);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

func (r *Repository) UpsertArticle(ctx context.Context, rec *storage.ArticleRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	// xmax = 0 only for freshly inserted rows
	query := `
	INSERT INTO gothamist_articles (
		checksum, run_id, sequence_num, title, description, picture_url, phrase_count, about_cash, scraped_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (checksum) DO UPDATE SET
		run_id = EXCLUDED.run_id,
		sequence_num = EXCLUDED.sequence_num,
		phrase_count = EXCLUDED.phrase_count,
		about_cash = EXCLUDED.about_cash,
		scraped_at = EXCLUDED.scraped_at
	RETURNING (xmax = 0)
	`

	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		rec.CheckSum,
		rec.RunID,
		rec.SequenceNum,
		rec.Title,
		rec.Description,
		rec.PictureURL,
		rec.PhraseCount,
		rec.AboutCash,
		rec.ScrapedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return inserted, nil
}

func (r *Repository) CountByRun(ctx context.Context, runID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gothamist_articles WHERE run_id = $1`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}
	return count, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
