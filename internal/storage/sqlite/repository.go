package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/storage"
)

var _ storage.Repository = (*Repository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS gothamist_articles (
	checksum     TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	sequence_num INTEGER NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	picture_url  TEXT NOT NULL,
	phrase_count INTEGER NOT NULL,
	about_cash   BOOLEAN NOT NULL,
	scraped_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gothamist_articles_run ON gothamist_articles(run_id);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

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
	exists, err := r.existsByCheckSum(ctx, rec.CheckSum)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
	INSERT INTO gothamist_articles (
		checksum, run_id, sequence_num, title, description, picture_url, phrase_count, about_cash, scraped_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(checksum) DO UPDATE SET
		run_id = excluded.run_id,
		sequence_num = excluded.sequence_num,
		phrase_count = excluded.phrase_count,
		about_cash = excluded.about_cash,
		scraped_at = excluded.scraped_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.CheckSum,
		rec.RunID,
		rec.SequenceNum,
		rec.Title,
		rec.Description,
		rec.PictureURL,
		rec.PhraseCount,
		rec.AboutCash,
		rec.ScrapedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return !exists, nil
}

func (r *Repository) existsByCheckSum(ctx context.Context, sum string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gothamist_articles WHERE checksum = ?`, sum).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query database: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) CountByRun(ctx context.Context, runID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gothamist_articles WHERE run_id = ?`, runID).Scan(&count)
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
