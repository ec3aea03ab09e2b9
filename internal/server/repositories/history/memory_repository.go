package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/server/models"
)

// MemoryRepository keeps history in process memory. It is used when no
// database is configured and is lost on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []*models.HistoryRecord
	usage   map[usageKey]int64
}

type usageKey struct {
	day  string
	tool string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{usage: map[usageKey]int64{}}
}

func (r *MemoryRepository) Insert(ctx context.Context, rec *models.HistoryRecord) error {
	c := *rec
	c.Archived = c.StorageKey != ""

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, &c)
	return nil
}

func (r *MemoryRepository) IncrementUsage(ctx context.Context, day time.Time, tool string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage[usageKey{day: day.UTC().Format(time.DateOnly), tool: tool}]++
	return nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*models.HistoryRecord{}
	for i := len(r.records) - 1; i >= 0 && len(result) < limit; i-- {
		if rec := r.records[i]; rec.UserID == userID {
			c := *rec
			result = append(result, &c)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.HistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.ID == id {
			c := *rec
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) ListUsage(ctx context.Context, since time.Time) ([]*models.DailyUsage, error) {
	from := since.UTC().Format(time.DateOnly)

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*models.DailyUsage{}
	for k, n := range r.usage {
		if k.day < from {
			continue
		}
		day, err := time.Parse(time.DateOnly, k.day)
		if err != nil {
			return nil, err
		}
		result = append(result, &models.DailyUsage{Day: day, Tool: k.tool, Count: n})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Day.Equal(result[j].Day) {
			return result[i].Day.Before(result[j].Day)
		}
		return result[i].Tool < result[j].Tool
	})

	return result, nil
}
