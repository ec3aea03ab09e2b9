// Package history stores tool-run records and per-day usage counters.
package history

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, rec *models.HistoryRecord) error
	IncrementUsage(ctx context.Context, day time.Time, tool string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error)
	GetByID(ctx context.Context, id string) (*models.HistoryRecord, error)
	ListUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error)
}
