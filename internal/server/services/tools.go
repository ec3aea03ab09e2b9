// Package services holds the application logic behind the HTTP handlers:
// it runs the PDF tools and takes care of history, archiving, caching and
// instrumentation around them.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/diff"
	"github.com/dmitrijs2005/pdtools/internal/document"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/dmitrijs2005/pdtools/internal/protection"
	"github.com/dmitrijs2005/pdtools/internal/server/cache"
	"github.com/dmitrijs2005/pdtools/internal/server/metrics"
	"github.com/dmitrijs2005/pdtools/internal/server/models"
	"github.com/dmitrijs2005/pdtools/internal/server/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Upload is one document received from a client.
type Upload struct {
	UserID   string
	FileName string
	Data     []byte
}

// Output is a produced document.
type Output struct {
	Data       []byte
	FileName   string
	HistoryID  string
	StorageKey string
}

// ToolServiceDeps lists the collaborators of ToolService. Archive may be
// nil; Cache, Tracer and Logger fall back to no-ops.
type ToolServiceDeps struct {
	Protector *protection.Protector
	Documents document.Service
	History   HistoryStore
	Archive   storage.Archive
	Cache     cache.CompareCache
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
	Logger    logging.Logger
}

type ToolService struct {
	protector *protection.Protector
	docs      document.Service
	history   HistoryStore
	archive   storage.Archive
	cache     cache.CompareCache
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    logging.Logger
	now       func() time.Time
}

func NewToolService(d ToolServiceDeps) *ToolService {
	s := &ToolService{
		protector: d.Protector,
		docs:      d.Documents,
		history:   d.History,
		archive:   d.Archive,
		cache:     d.Cache,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		logger:    d.Logger,
		now:       time.Now,
	}
	if s.history == nil {
		s.history = NewMemoryHistoryStore()
	}
	if s.cache == nil {
		s.cache = cache.NewNoOpCompareCache()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	return s
}

// Protect validates the password, stamps the document and archives the
// result when an archive is configured.
func (s *ToolService) Protect(ctx context.Context, up Upload, password string, perms protection.Permissions) (*Output, error) {
	ctx, span := s.startSpan(ctx, "ToolService.Protect", up)
	defer span.End()

	start := s.now()

	var data []byte
	err := protection.ValidatePassword(password)
	if err == nil {
		data, err = s.protector.Protect(ctx, up.Data, password, perms)
	}

	out := s.finish(ctx, span, common.ToolProtect, up, up.FileName, int64(len(up.Data)), data, err, start)
	if err != nil {
		return nil, err
	}
	out.FileName = "protected-" + up.FileName
	return out, nil
}

// Unlock verifies the password against the document's markers.
func (s *ToolService) Unlock(ctx context.Context, up Upload, password string) (*Output, error) {
	ctx, span := s.startSpan(ctx, "ToolService.Unlock", up)
	defer span.End()

	start := s.now()

	var data []byte
	err := s.requirePassword(password)
	if err == nil {
		data, err = s.protector.Unlock(ctx, up.Data, password)
	}

	out := s.finish(ctx, span, common.ToolUnlock, up, up.FileName, int64(len(up.Data)), data, err, start)
	if err != nil {
		return nil, err
	}
	out.FileName = "unlocked-" + up.FileName
	return out, nil
}

// Compare diffs two documents, consulting the cache first.
func (s *ToolService) Compare(ctx context.Context, userID string, file1, file2 Upload) (*diff.Result, error) {
	ctx, span := s.tracer.Start(ctx, "ToolService.Compare", trace.WithAttributes(
		attribute.Int("pdtools.file1.size", len(file1.Data)),
		attribute.Int("pdtools.file2.size", len(file2.Data)),
	))
	defer span.End()

	start := s.now()
	key := cache.CompareKey(file1.Data, file2.Data)

	res, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "compare cache lookup failed", "error", err.Error())
	}
	s.metrics.ObserveCache(hit)
	span.SetAttributes(attribute.Bool("pdtools.cache.hit", hit))

	if !hit {
		res, err = diff.Compare(ctx, s.docs, file1.Data, file2.Data)
		if err == nil {
			if cerr := s.cache.Set(ctx, key, res); cerr != nil {
				s.logger.Warn(ctx, "compare cache store failed", "error", cerr.Error())
			}
		}
	}

	up := Upload{UserID: userID}
	name := file1.FileName + ", " + file2.FileName
	s.finish(ctx, span, common.ToolCompare, up, name, int64(len(file1.Data)+len(file2.Data)), nil, err, start)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// History lists the caller's most recent runs, newest first.
func (s *ToolService) History(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	return s.history.ListByUser(ctx, userID, limit)
}

// DownloadURL presigns the archived output of one of the caller's runs.
// Records of other users are reported as not found.
func (s *ToolService) DownloadURL(ctx context.Context, userID, id string) (string, error) {
	if userID == "" {
		return "", common.ErrorUnauthorized
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", common.ErrorNotFound
	}

	rec, err := s.history.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.UserID != userID || rec.StorageKey == "" || s.archive == nil {
		return "", common.ErrorNotFound
	}

	return s.archive.PresignGet(ctx, rec.StorageKey)
}

// Usage returns per-tool daily counts for the last days days. The counters
// are service-wide: every caller sees runs by all users. userID only gates
// access.
func (s *ToolService) Usage(ctx context.Context, userID string, days int) ([]*models.DailyUsage, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}
	if days <= 0 {
		days = 7
	}
	since := s.now().UTC().AddDate(0, 0, -(days - 1))
	return s.history.ListUsage(ctx, since)
}

func (s *ToolService) requirePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	return nil
}

func (s *ToolService) startSpan(ctx context.Context, name string, up Upload) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("pdtools.file.name", up.FileName),
		attribute.Int("pdtools.file.size", len(up.Data)),
	))
}

// finish records metrics, archives successful output and writes the
// history record. Archive and history failures are logged only.
func (s *ToolService) finish(ctx context.Context, span trace.Span, tool string, up Upload, name string, size int64, data []byte, err error, start time.Time) *Output {
	now := s.now()
	status := models.StatusSuccess
	if err != nil {
		status = models.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.ObserveOperation(tool, status, size, now.Sub(start))

	out := &Output{Data: data, HistoryID: uuid.NewString()}

	if err == nil && s.archive != nil && len(data) > 0 {
		key, aerr := s.archive.Put(ctx, up.UserID, tool, up.FileName, data)
		if aerr != nil {
			s.logger.Error(ctx, "archive upload failed", "tool", tool, "file", name, "error", aerr.Error())
		} else {
			out.StorageKey = key
		}
	}

	rec := &models.HistoryRecord{
		ID:         out.HistoryID,
		UserID:     up.UserID,
		Tool:       tool,
		FileName:   name,
		FileSize:   size,
		Status:     status,
		StorageKey: out.StorageKey,
		CreatedAt:  now.UTC(),
	}
	if err != nil {
		rec.Error = historyError(err)
	}

	if herr := s.history.Record(ctx, rec); herr != nil {
		s.logger.Error(ctx, "history record failed", "tool", tool, "file", name, "error", herr.Error())
	}

	return out
}

// historyError keeps internal details out of user-visible history.
func historyError(err error) string {
	switch {
	case errors.Is(err, common.ErrorIncorrectPassword):
		return common.ErrorIncorrectPassword.Error()
	case errors.Is(err, common.ErrorValidation):
		return err.Error()
	case errors.Is(err, common.ErrorLoad):
		return common.ErrorLoad.Error()
	case errors.Is(err, common.ErrorExtraction):
		return common.ErrorExtraction.Error()
	default:
		return common.ErrorInternal.Error()
	}
}
