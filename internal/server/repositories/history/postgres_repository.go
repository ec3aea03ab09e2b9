package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/dbx"
	"github.com/dmitrijs2005/pdtools/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectHistory = `SELECT id, COALESCE(user_id, ''), tool, file_name, file_size, status, error, storage_key, created_at FROM history`

func (r *PostgresRepository) Insert(ctx context.Context, rec *models.HistoryRecord) error {
	query := `INSERT INTO history (id, user_id, tool, file_name, file_size, status, error, storage_key, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query, rec.ID, rec.UserID, rec.Tool, rec.FileName, rec.FileSize, rec.Status, rec.Error, rec.StorageKey, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) IncrementUsage(ctx context.Context, day time.Time, tool string) error {
	query := `INSERT INTO usage_daily (day, tool, count) VALUES ($1, $2, 1)
		ON CONFLICT (day, tool) DO UPDATE SET count = usage_daily.count + 1`

	_, err := r.db.ExecContext(ctx, query, day.UTC().Format(time.DateOnly), tool)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	query := selectHistory + ` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	result := []*models.HistoryRecord{}
	for rows.Next() {
		item, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.HistoryRecord, error) {
	query := selectHistory + ` WHERE id = $1`

	item, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}

	return item, nil
}

func (r *PostgresRepository) ListUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error) {
	query := `SELECT day, tool, count FROM usage_daily WHERE day >= $1 ORDER BY day, tool`

	rows, err := r.db.QueryContext(ctx, query, since.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to select usage: %w", err)
	}
	defer rows.Close()

	result := []*models.DailyUsage{}
	for rows.Next() {
		u := &models.DailyUsage{}
		if err := rows.Scan(&u.Day, &u.Tool, &u.Count); err != nil {
			return nil, err
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.HistoryRecord, error) {
	item := &models.HistoryRecord{}
	err := s.Scan(&item.ID, &item.UserID, &item.Tool, &item.FileName, &item.FileSize, &item.Status, &item.Error, &item.StorageKey, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Archived = item.StorageKey != ""
	return item, nil
}
