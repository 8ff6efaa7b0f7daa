package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	DefaultMigrationsURL = "file://migrations"

	// * HistoryRetention is how many search records are kept, older rows are pruned on insert
	HistoryRetention = 10000
)

// * PostgresDB stores the search history. Ranked results are never persisted.
type PostgresDB struct {
	db *sql.DB
}

var _ models.SearchHistory = (*PostgresDB)(nil)

func NewPostgresDB(url string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to open database connection",
			"Could not initialize database connection",
			err,
			errors.LevelFatal,
		)
	}

	// * Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// * Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to verify database connection",
			"Database ping failed",
			err,
			errors.LevelFatal,
		)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Migrate(sourceURL string) error {
	driver, err := postgres.WithInstance(p.db, &postgres.Config{})
	if err != nil {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to create migration driver",
			"Could not initialize migration driver instance",
			err,
			errors.LevelFatal,
		)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to create migration instance",
			fmt.Sprintf("Could not load migrations from %s", sourceURL),
			err,
			errors.LevelFatal,
		)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.New(
			"DB_MIGRATION_ERROR",
			"Failed to run migrations",
			"Migration up operation failed",
			err,
			errors.LevelFatal,
		)
	}

	return nil
}

func (p *PostgresDB) Close() error {
	if err := p.db.Close(); err != nil {
		return errors.New(
			"DB_CONNECTION_ERROR",
			"Failed to close database connection",
			"Error while closing database connection",
			err,
			errors.LevelWarning,
		)
	}
	return nil
}

func (p *PostgresDB) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(
			"DB_TRANSACTION_ERROR",
			"Failed to begin transaction",
			"Could not start database transaction",
			err,
			errors.LevelFatal,
		)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.New(
				"DB_TRANSACTION_ERROR",
				"Transaction failed and rollback encountered error",
				"Transaction error with additional rollback failure",
				fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr),
				errors.LevelFatal,
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.New(
			"DB_TRANSACTION_ERROR",
			"Failed to commit transaction",
			"Error while committing transaction",
			err,
			errors.LevelFatal,
		)
	}

	return nil
}

// * RecordSearch inserts record, fills in its ID and prunes rows beyond HistoryRetention
func (p *PostgresDB) RecordSearch(ctx context.Context, record *models.SearchRecord) error {
	return p.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO search_history (since, language, result_count, top_repository, duration_ms, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`

		err := tx.QueryRowContext(ctx, query,
			record.Since, record.Language, record.ResultCount,
			record.TopRepository, record.DurationMS, record.ComputedAt,
		).Scan(&record.ID)
		if err != nil {
			return errors.New(
				errors.RefHistoryStore,
				"Failed to record search",
				fmt.Sprintf("Could not insert search [date=%s, lang=%s]", record.Since, record.Language),
				err,
				errors.LevelFatal,
			)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM search_history WHERE id <= $1`, record.ID-HistoryRetention); err != nil {
			return errors.New(
				errors.RefHistoryStore,
				"Failed to prune search history",
				"Could not delete old search history rows",
				err,
				errors.LevelFatal,
			)
		}

		return nil
	})
}

func (p *PostgresDB) ListRecentSearches(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	query := `
		SELECT id, since, language, result_count, top_repository, duration_ms, computed_at
		FROM search_history
		ORDER BY computed_at DESC, id DESC
		LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.New(
			errors.RefHistoryStore,
			"Failed to query search history",
			"Could not fetch recent searches",
			err,
			errors.LevelFatal,
		)
	}
	defer rows.Close()

	var records []models.SearchRecord
	for rows.Next() {
		var rec models.SearchRecord
		var top sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Since, &rec.Language, &rec.ResultCount, &top, &rec.DurationMS, &rec.ComputedAt); err != nil {
			return nil, errors.New(
				errors.RefHistoryStore,
				"Failed to scan search record",
				"Error while scanning search history row",
				err,
				errors.LevelFatal,
			)
		}
		rec.TopRepository = top.String
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.New(
			errors.RefHistoryStore,
			"Failed to process search history",
			"Error while processing search history rows",
			err,
			errors.LevelFatal,
		)
	}

	return records, nil
}
