package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gothamist-news-parser/internal/checksum"
	"gothamist-news-parser/internal/scraper"
)

// ArticleRecord is one report row as stored in the database.
type ArticleRecord struct {
	RunID       string
	SequenceNum int // 1-based position in the run
	Title       string
	Description string
	PictureURL  string
	PhraseCount int
	AboutCash   bool
	CheckSum    string // SHA256 of title|description|picture
	ScrapedAt   time.Time
}

// Repository persists scraped articles. Articles are keyed by CheckSum, so
// re-scraping the same article updates the row instead of adding one.
type Repository interface {
	// UpsertArticle saves or updates the article, returns whether it was new
	UpsertArticle(ctx context.Context, rec *ArticleRecord) (isNew bool, err error)

	// CountByRun counts rows last written by the run
	CountByRun(ctx context.Context, runID string) (int, error)

	Close() error
}

// RecordsFromRows converts report rows of one run into records.
func RecordsFromRows(runID string, rows []scraper.ResultRow, scrapedAt time.Time) ([]*ArticleRecord, error) {
	gen := checksum.NewGenerator()
	records := make([]*ArticleRecord, 0, len(rows))

	for i, row := range rows {
		aboutCash, err := strconv.ParseBool(row.AboutCash)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid About Cash value %q: %w", i+1, row.AboutCash, err)
		}
		records = append(records, &ArticleRecord{
			RunID:       runID,
			SequenceNum: i + 1,
			Title:       row.Title,
			Description: row.Description,
			PictureURL:  row.PictureName,
			PhraseCount: row.PhrasesCount,
			AboutCash:   aboutCash,
			CheckSum:    gen.GenerateContentHash(row.Title, row.Description, row.PictureName),
			ScrapedAt:   scrapedAt.UTC(),
		})
	}

	return records, nil
}

// SaveAll upserts records in order and returns how many were new.
func SaveAll(ctx context.Context, repo Repository, records []*ArticleRecord) (int, error) {
	created := 0
	for _, rec := range records {
		isNew, err := repo.UpsertArticle(ctx, rec)
		if err != nil {
			return created, fmt.Errorf("failed to save article %d: %w", rec.SequenceNum, err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}
