package protection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/document"
	"github.com/dmitrijs2005/pdtools/internal/document/pdftest"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPDFProtector(t *testing.T) (*Protector, *document.PDFService) {
	t.Helper()
	docs := document.NewPDFService(logging.NewNopLogger())
	p := NewProtector(docs, logging.NewNopLogger(), WithClock(func() time.Time { return fixedNow }))
	return p, docs
}

func TestProtector_PDFRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, docs := newPDFProtector(t)

	src := pdftest.BuildWithInfo(map[string]string{
		"Title":   "Quarterly report",
		"Subject": "Finance",
	}, pdftest.Page{"hello world"}, pdftest.Page{"second page"})

	protected, err := p.Protect(ctx, src, "test1234", DefaultPermissions())
	require.NoError(t, err)

	doc, err := docs.Load(ctx, protected, document.LoadOptions{Tolerant: true})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())

	info := doc.Info()
	assert.Equal(t, ProtectedTitle, info.Title)
	assert.Equal(t, ProtectedAuthor, info.Author)
	assert.Equal(t, ProtectedProducer, info.Producer)
	assert.Equal(t, ProtectedCreator, info.Creator)
	assert.Equal(t, "Finance", info.Subject)
	assert.Equal(t, fixedNow, info.ModDate)
	require.Len(t, info.Keywords, 4)
	assert.Equal(t, hashPrefix+Hash("test1234"), info.Keywords[2])

	st, err := p.Inspect(ctx, protected)
	require.NoError(t, err)
	assert.IsType(t, Protected{}, st)

	_, err = p.Unlock(ctx, protected, "wrong")
	assert.True(t, errors.Is(err, common.ErrorIncorrectPassword))

	out, err := p.Unlock(ctx, protected, "test1234")
	require.NoError(t, err)

	unlocked, err := docs.Load(ctx, out, document.LoadOptions{Tolerant: true})
	require.NoError(t, err)
	assert.Equal(t, UnlockedProducer, unlocked.Info().Producer)
	assert.Equal(t, UnlockedCreator, unlocked.Info().Creator)
	assert.Empty(t, unlocked.Info().Keywords)

	st, err = p.Inspect(ctx, out)
	require.NoError(t, err)
	assert.IsType(t, Unprotected{}, st)

	pages, err := docs.ExtractPages(ctx, out)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "hello world")
	assert.Contains(t, pages[1], "second page")
}

func TestProtector_PDFUnlockUnmarked(t *testing.T) {
	ctx := context.Background()
	p, docs := newPDFProtector(t)

	out, err := p.Unlock(ctx, pdftest.Build(pdftest.Page{"plain"}), "anything")
	require.NoError(t, err)

	doc, err := docs.Load(ctx, out, document.LoadOptions{Tolerant: true})
	require.NoError(t, err)
	assert.Equal(t, UnlockedProducer, doc.Info().Producer)
	assert.Equal(t, fixedNow, doc.Info().CreationDate)
}

func TestProtector_PDFProtectRejectsGarbage(t *testing.T) {
	p, _ := newPDFProtector(t)

	_, err := p.Protect(context.Background(), []byte("%PDF-1.4 but nothing else"), "test1234", DefaultPermissions())
	assert.True(t, errors.Is(err, common.ErrorLoad))
}
