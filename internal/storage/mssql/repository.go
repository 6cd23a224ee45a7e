package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/storage"
)

var _ storage.Repository = (*Repository)(nil)

const schema = `
IF OBJECT_ID(N'TblGothamistArticles', N'U') IS NULL
CREATE TABLE TblGothamistArticles (
	[CheckSum]     CHAR(64)       NOT NULL PRIMARY KEY,
	[RunID]        UNIQUEIDENTIFIER NOT NULL,
	[SequenceNum]  INT            NOT NULL,
	[Title]        NVARCHAR(1000) NOT NULL,
	[Description]  NVARCHAR(MAX)  NOT NULL,
	[PictureURL]   NVARCHAR(2000) NOT NULL,
	[PhraseCount]  INT            NOT NULL,
	[AboutCash]    BIT            NOT NULL,
	[DT]           DATETIME2      NOT NULL
);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Тестируем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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

// UpsertArticle сохраняет или обновляет статью
func (r *Repository) UpsertArticle(ctx context.Context, rec *storage.ArticleRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	// MERGE statement для MS SQL, $action говорит, была ли вставка
	query := `
		MERGE INTO TblGothamistArticles AS target
		USING (SELECT @CheckSum AS CheckSum) AS source
		ON target.[CheckSum] = source.CheckSum
		WHEN MATCHED THEN
			UPDATE SET
				[RunID] = @RunID,
				[SequenceNum] = @SequenceNum,
				[PhraseCount] = @PhraseCount,
				[AboutCash] = @AboutCash,
				[DT] = @DT
		WHEN NOT MATCHED THEN
			INSERT ([CheckSum], [RunID], [SequenceNum], [Title], [Description], [PictureURL], [PhraseCount], [AboutCash], [DT])
			VALUES (@CheckSum, @RunID, @SequenceNum, @Title, @Description, @PictureURL, @PhraseCount, @AboutCash, @DT)
		OUTPUT $action;
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var action string
	err = stmt.QueryRowContext(ctx,
		sql.Named("CheckSum", rec.CheckSum),
		sql.Named("RunID", rec.RunID),
		sql.Named("SequenceNum", rec.SequenceNum),
		sql.Named("Title", rec.Title),
		sql.Named("Description", rec.Description),
		sql.Named("PictureURL", rec.PictureURL),
		sql.Named("PhraseCount", rec.PhraseCount),
		sql.Named("AboutCash", rec.AboutCash),
		sql.Named("DT", rec.ScrapedAt),
	).Scan(&action)
	if err != nil {
		return false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return action == "INSERT", nil
}

// CountByRun получает количество статей, сохранённых запуском
func (r *Repository) CountByRun(ctx context.Context, runID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM TblGothamistArticles WHERE [RunID] = @RunID`,
		sql.Named("RunID", runID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}

	return count, nil
}

// Close закрывает соединение с БД
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
