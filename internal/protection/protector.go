package protection

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/cryptox"
	"github.com/dmitrijs2005/pdtools/internal/document"
	"github.com/dmitrijs2005/pdtools/internal/logging"
)

// Branding written into the information dictionary.
const (
	ProtectedTitle    = "Protected Document"
	ProtectedAuthor   = "PDTools Security"
	ProtectedProducer = "PDTools Protection Service"
	ProtectedCreator  = "PDTools"

	UnlockedProducer = "PDTools Unlock Service"
	UnlockedCreator  = "PDTools"
)

// Protector stamps and verifies protection markers. It is safe for
// concurrent use when the underlying document.Service is.
type Protector struct {
	docs     document.Service
	logger   logging.Logger
	now      func() time.Time
	hardened bool
}

type Option func(*Protector)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Protector) { p.now = now }
}

// WithHardenedHashing switches new documents to Argon2id with a random
// per-document salt. Files written this way cannot be unlocked by tools
// that only know the SHA-256 scheme.
func WithHardenedHashing(enabled bool) Option {
	return func(p *Protector) { p.hardened = enabled }
}

func NewProtector(docs document.Service, l logging.Logger, opts ...Option) *Protector {
	p := &Protector{
		docs:   docs,
		logger: l,
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Protect returns a copy of src carrying the password digest, the
// permission record and the visible markings on every page.
func (p *Protector) Protect(ctx context.Context, src []byte, password string, perms Permissions) ([]byte, error) {
	doc, err := p.docs.Load(ctx, src, document.LoadOptions{})
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()

	keywords, err := p.seal(password, perms, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	old := doc.Info()
	created := old.CreationDate
	if created.IsZero() {
		created = now
	}

	info := document.Info{
		Title:        ProtectedTitle,
		Author:       ProtectedAuthor,
		Subject:      old.Subject,
		Producer:     ProtectedProducer,
		Creator:      ProtectedCreator,
		Keywords:     keywords,
		CreationDate: created,
		ModDate:      now,
	}
	if err := doc.SetInfo(info); err != nil {
		return nil, fmt.Errorf("%w: set info: %v", common.ErrorInternal, err)
	}

	total := doc.PageCount()
	for page := 1; page <= total; page++ {
		if err := doc.Stamp(page, pageOverlays(page, total, perms, now)...); err != nil {
			return nil, fmt.Errorf("%w: stamp page %d: %v", common.ErrorInternal, page, err)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("%w: save: %v", common.ErrorInternal, err)
	}

	p.logger.Debug(ctx, "document protected", "pages", total, "hardened", p.hardened)

	return buf.Bytes(), nil
}

func (p *Protector) seal(password string, perms Permissions, now time.Time) ([]string, error) {
	meta := Metadata{
		Version:     MetadataVersion,
		ProtectedAt: FormatTimestamp(now),
		Permissions: perms,
	}

	var digestMarker string
	if p.hardened {
		saltHex, err := common.MakeRandHexString(cryptox.SaltSize)
		if err != nil {
			return nil, fmt.Errorf("salt: %w", err)
		}
		salt, err := hex.DecodeString(saltHex)
		if err != nil {
			return nil, fmt.Errorf("salt: %w", err)
		}
		meta.Algorithm = AlgorithmArgon2id
		meta.Salt = saltHex
		meta.PasswordHash = cryptox.DeriveKeyHex(password, salt)
		digestMarker = kdfPrefix + saltHex + ":" + meta.PasswordHash
	} else {
		meta.Algorithm = AlgorithmSHA256
		meta.PasswordHash = Hash(password)
		digestMarker = hashPrefix + meta.PasswordHash
	}

	encoded, err := meta.Encode()
	if err != nil {
		return nil, err
	}

	return []string{MarkerProtected, MarkerSecured, digestMarker, metaPrefix + encoded}, nil
}

// Unlock checks password against the markers in src. Documents without
// usable markers pass through. On success the protection metadata is
// cleared and the document re-saved; stamped markings stay on the pages.
func (p *Protector) Unlock(ctx context.Context, src []byte, password string) ([]byte, error) {
	doc, err := p.docs.Load(ctx, src, document.LoadOptions{Tolerant: true})
	if err != nil {
		return nil, err
	}

	state := ParseKeywords(ctx, doc.Info().Keywords, p.logger)
	if ps, ok := state.(Protected); ok {
		if !ps.Verify(password) {
			return nil, common.ErrorIncorrectPassword
		}
	} else {
		p.logger.Debug(ctx, "document carries no protection markers, passing through")
	}

	now := p.now().UTC()
	info := document.Info{
		Producer:     UnlockedProducer,
		Creator:      UnlockedCreator,
		CreationDate: now,
		ModDate:      now,
	}
	if err := doc.SetInfo(info); err != nil {
		return nil, fmt.Errorf("%w: set info: %v", common.ErrorInternal, err)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("%w: save: %v", common.ErrorInternal, err)
	}

	return buf.Bytes(), nil
}

// Inspect reports the protection state of src without changing it.
func (p *Protector) Inspect(ctx context.Context, src []byte) (State, error) {
	doc, err := p.docs.Load(ctx, src, document.LoadOptions{Tolerant: true})
	if err != nil {
		return nil, err
	}
	return ParseKeywords(ctx, doc.Info().Keywords, p.logger), nil
}
