package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/diff"
	"github.com/dmitrijs2005/pdtools/internal/document/memdoc"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/dmitrijs2005/pdtools/internal/protection"
	"github.com/dmitrijs2005/pdtools/internal/server/metrics"
	"github.com/dmitrijs2005/pdtools/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	mu      sync.Mutex
	puts    map[string][]byte
	putErr  error
	signErr error
}

func (a *fakeArchive) Put(ctx context.Context, userID, tool, fileName string, data []byte) (string, error) {
	if a.putErr != nil {
		return "", a.putErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.puts == nil {
		a.puts = map[string][]byte{}
	}
	key := "users/" + userID + "/" + tool + "-" + fileName
	a.puts[key] = data
	return key, nil
}

func (a *fakeArchive) PresignGet(ctx context.Context, key string) (string, error) {
	if a.signErr != nil {
		return "", a.signErr
	}
	return "https://s3.example/" + key, nil
}

type countingCache struct {
	mu   sync.Mutex
	data map[string]*diff.Result
	gets int
	sets int
}

func (c *countingCache) Get(ctx context.Context, key string) (*diff.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	r, ok := c.data[key]
	return r, ok, nil
}

func (c *countingCache) Set(ctx context.Context, key string, res *diff.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string]*diff.Result{}
	}
	c.sets++
	c.data[key] = res
	return nil
}

func (c *countingCache) Close() error { return nil }

type failingHistory struct{ MemoryHistoryStore }

func (failingHistory) Record(ctx context.Context, rec *models.HistoryRecord) error {
	return errors.New("db down")
}

type fixture struct {
	svc     *ToolService
	archive *fakeArchive
	cache   *countingCache
	history *MemoryHistoryStore
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docs := memdoc.NewService()
	l := logging.NewNopLogger()
	f := &fixture{
		archive: &fakeArchive{},
		cache:   &countingCache{},
		history: NewMemoryHistoryStore(),
		metrics: metrics.New(),
	}
	f.svc = NewToolService(ToolServiceDeps{
		Protector: protection.NewProtector(docs, l),
		Documents: docs,
		History:   f.history,
		Archive:   f.archive,
		Cache:     f.cache,
		Metrics:   f.metrics,
		Logger:    l,
	})
	return f
}

func TestToolService_ProtectUnlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Protect(ctx, Upload{UserID: "u1", FileName: "a.pdf", Data: memdoc.Encode("hello")}, "test1234", protection.DefaultPermissions())
	require.NoError(t, err)
	assert.Equal(t, "protected-a.pdf", out.FileName)
	assert.NotEmpty(t, out.Data)
	assert.Equal(t, "users/u1/protect-a.pdf", out.StorageKey)
	assert.Contains(t, f.archive.puts, out.StorageKey)

	_, err = f.svc.Unlock(ctx, Upload{UserID: "u1", FileName: "protected-a.pdf", Data: out.Data}, "wrong")
	assert.ErrorIs(t, err, common.ErrorIncorrectPassword)

	unlocked, err := f.svc.Unlock(ctx, Upload{UserID: "u1", FileName: "protected-a.pdf", Data: out.Data}, "test1234")
	require.NoError(t, err)
	assert.Equal(t, "unlocked-protected-a.pdf", unlocked.FileName)

	recs, err := f.svc.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	failed := 0
	for _, r := range recs {
		if r.Status == models.StatusFailed {
			failed++
			assert.Equal(t, "incorrect password", r.Error)
			assert.Equal(t, common.ToolUnlock, r.Tool)
		}
	}
	assert.Equal(t, 1, failed)

	assert.Equal(t, 1.0, opCount(t, f.metrics, common.ToolUnlock, models.StatusFailed))
	assert.Equal(t, 1.0, opCount(t, f.metrics, common.ToolProtect, models.StatusSuccess))
}

func TestToolService_ProtectValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Protect(context.Background(), Upload{FileName: "a.pdf", Data: memdoc.Encode("x")}, "abc", protection.DefaultPermissions())
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, f.archive.puts)
}

func TestToolService_UnlockRequiresPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Unlock(context.Background(), Upload{FileName: "a.pdf", Data: memdoc.Encode("x")}, "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestToolService_ProtectLoadError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Protect(context.Background(), Upload{FileName: "a.pdf", Data: []byte("junk")}, "test1234", protection.DefaultPermissions())
	assert.ErrorIs(t, err, common.ErrorLoad)
}

func TestToolService_ArchiveFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.archive.putErr = errors.New("s3 down")

	out, err := f.svc.Protect(context.Background(), Upload{FileName: "a.pdf", Data: memdoc.Encode("x")}, "test1234", protection.DefaultPermissions())
	require.NoError(t, err)
	assert.Empty(t, out.StorageKey)
}

func TestToolService_HistoryFailureDoesNotFail(t *testing.T) {
	docs := memdoc.NewService()
	svc := NewToolService(ToolServiceDeps{
		Protector: protection.NewProtector(docs, logging.NewNopLogger()),
		Documents: docs,
		History:   &failingHistory{},
	})

	_, err := svc.Protect(context.Background(), Upload{FileName: "a.pdf", Data: memdoc.Encode("x")}, "test1234", protection.DefaultPermissions())
	assert.NoError(t, err)
}

func TestToolService_Compare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := Upload{FileName: "a.pdf", Data: memdoc.Encode("hello world")}
	b := Upload{FileName: "b.pdf", Data: memdoc.Encode("hello earth")}

	res, err := f.svc.Compare(ctx, "u1", a, b)
	require.NoError(t, err)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, 1, f.cache.sets)

	again, err := f.svc.Compare(ctx, "u1", a, b)
	require.NoError(t, err)
	assert.Equal(t, res, again)
	assert.Equal(t, 1, f.cache.sets)
	assert.Equal(t, 2, f.cache.gets)

	recs, err := f.svc.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a.pdf, b.pdf", recs[0].FileName)
	assert.False(t, recs[0].Archived)
	assert.Empty(t, f.archive.puts)
}

func TestToolService_CompareExtractionFailure(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Compare(context.Background(), "", Upload{Data: memdoc.Encode("x")}, Upload{Data: []byte("junk")})
	assert.ErrorIs(t, err, common.ErrorExtraction)
	assert.Equal(t, 0, f.cache.sets)
}

func TestToolService_History(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.History(ctx, "", 10)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	for i := 0; i < MaxHistoryLimit+5; i++ {
		require.NoError(t, f.history.Record(ctx, &models.HistoryRecord{ID: "x", UserID: "u1", Tool: "protect", CreatedAt: time.Now()}))
	}

	recs, err := f.svc.History(ctx, "u1", 1000)
	require.NoError(t, err)
	assert.Len(t, recs, MaxHistoryLimit)

	recs, err = f.svc.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, recs, DefaultHistoryLimit)
}

func TestToolService_DownloadURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.svc.Protect(ctx, Upload{UserID: "u1", FileName: "a.pdf", Data: memdoc.Encode("x")}, "test1234", protection.DefaultPermissions())
	require.NoError(t, err)

	url, err := f.svc.DownloadURL(ctx, "u1", out.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/users/u1/protect-a.pdf", url)

	_, err = f.svc.DownloadURL(ctx, "u2", out.HistoryID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.svc.DownloadURL(ctx, "", out.HistoryID)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.svc.DownloadURL(ctx, "u1", "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestToolService_Usage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Compare(ctx, "", Upload{Data: memdoc.Encode("a")}, Upload{Data: memdoc.Encode("a")})
	require.NoError(t, err)

	usage, err := f.svc.Usage(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, common.ToolCompare, usage[0].Tool)
	assert.Equal(t, int64(1), usage[0].Count)

	_, err = f.svc.Usage(ctx, "", 1)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestToolService_UsageCountsAllUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Compare(ctx, "u1", Upload{Data: memdoc.Encode("a")}, Upload{Data: memdoc.Encode("b")})
	require.NoError(t, err)
	_, err = f.svc.Compare(ctx, "u2", Upload{Data: memdoc.Encode("c")}, Upload{Data: memdoc.Encode("d")})
	require.NoError(t, err)

	for _, user := range []string{"u1", "u2"} {
		usage, err := f.svc.Usage(ctx, user, 1)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		assert.Equal(t, int64(2), usage[0].Count, "user %s", user)
	}
}

func TestHistoryError(t *testing.T) {
	assert.Equal(t, "incorrect password", historyError(common.ErrorIncorrectPassword))
	assert.Equal(t, "failed to load PDF document", historyError(errors.Join(common.ErrorLoad, errors.New("xref"))))
	assert.Equal(t, "internal error", historyError(errors.New("secret detail")))
}

func opCount(t *testing.T, m *metrics.Metrics, tool, status string) float64 {
	t.Helper()
	mfs, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range mfs {
		if mf.GetName() != "pdtools_tool_operations_total" {
			continue
		}
		for _, mt := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range mt.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["tool"] == tool && labels["status"] == status {
				return mt.GetCounter().GetValue()
			}
		}
	}
	return 0
}
