package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/dbx"
	"github.com/dmitrijs2005/pdtools/internal/server/models"
	"github.com/dmitrijs2005/pdtools/internal/server/repositories/history"
	"github.com/dmitrijs2005/pdtools/internal/server/repositories/repomanager"
)

// HistoryStore persists tool runs. Record writes the run and bumps the
// daily usage counter together.
type HistoryStore interface {
	Record(ctx context.Context, rec *models.HistoryRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error)
	GetByID(ctx context.Context, id string) (*models.HistoryRecord, error)
	ListUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error)
}

// SQLHistoryStore keeps history in PostgreSQL.
type SQLHistoryStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSQLHistoryStore(db *sql.DB, repomanager repomanager.RepositoryManager) *SQLHistoryStore {
	return &SQLHistoryStore{db: db, repomanager: repomanager}
}

func (s *SQLHistoryStore) Record(ctx context.Context, rec *models.HistoryRecord) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.History(tx)
		if err := repo.Insert(ctx, rec); err != nil {
			return err
		}
		return repo.IncrementUsage(ctx, rec.CreatedAt, rec.Tool)
	})
}

func (s *SQLHistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	return s.repomanager.History(s.db).ListByUser(ctx, userID, limit)
}

func (s *SQLHistoryStore) GetByID(ctx context.Context, id string) (*models.HistoryRecord, error) {
	return s.repomanager.History(s.db).GetByID(ctx, id)
}

func (s *SQLHistoryStore) ListUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error) {
	return s.repomanager.History(s.db).ListUsage(ctx, since)
}

// MemoryHistoryStore keeps history in process memory.
type MemoryHistoryStore struct {
	repo *history.MemoryRepository
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{repo: history.NewMemoryRepository()}
}

func (s *MemoryHistoryStore) Record(ctx context.Context, rec *models.HistoryRecord) error {
	if err := s.repo.Insert(ctx, rec); err != nil {
		return err
	}
	return s.repo.IncrementUsage(ctx, rec.CreatedAt, rec.Tool)
}

func (s *MemoryHistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *MemoryHistoryStore) GetByID(ctx context.Context, id string) (*models.HistoryRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MemoryHistoryStore) ListUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error) {
	return s.repo.ListUsage(ctx, since)
}
