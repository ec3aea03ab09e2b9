package protection

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pdtools/internal/cryptox"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/samber/lo"
)

// Keyword markers written by Protect.
const (
	MarkerProtected = "protected"
	MarkerSecured   = "pdtools-secured"

	hashPrefix = "hash:"
	metaPrefix = "meta:"
	kdfPrefix  = "kdf:"
)

// State is the protection status recovered from a document's keywords.
// It is either Unprotected or Protected.
type State interface {
	isState()
}

// Unprotected means no usable marker was found.
type Unprotected struct{}

// Digest is one stored password digest.
type Digest struct {
	Algorithm string
	Salt      []byte
	Value     string
	Source    string
}

// Protected carries every digest found in the keywords. Metadata is the
// first meta: record that decoded, if any.
type Protected struct {
	Flagged  bool
	Digests  []Digest
	Metadata *Metadata
}

func (Unprotected) isState() {}
func (Protected) isState()   {}

// Verify reports whether password matches any stored digest.
func (p Protected) Verify(password string) bool {
	var plain string
	for _, d := range p.Digests {
		switch d.Algorithm {
		case AlgorithmArgon2id:
			if cryptox.EqualHex(cryptox.DeriveKeyHex(password, d.Salt), d.Value) {
				return true
			}
		default:
			if plain == "" {
				plain = Hash(password)
			}
			if cryptox.EqualHex(plain, d.Value) {
				return true
			}
		}
	}
	return false
}

// ParseKeywords turns the keyword field into a State. Malformed markers
// are logged and skipped. A document flagged as protected that carries no
// usable digest is treated as unprotected, since nothing can be verified.
func ParseKeywords(ctx context.Context, keywords []string, logger logging.Logger) State {
	entries := lo.Compact(lo.Map(keywords, func(k string, _ int) string {
		return strings.TrimSpace(k)
	}))

	var st Protected

	for _, kw := range entries {
		lower := strings.ToLower(kw)

		switch {
		case lower == MarkerProtected || lower == MarkerSecured:
			st.Flagged = true

		case strings.HasPrefix(lower, hashPrefix):
			v := strings.ToLower(kw[len(hashPrefix):])
			if !isDigestHex(v) {
				logger.Warn(ctx, "ignoring malformed hash marker", "marker", kw)
				continue
			}
			st.Digests = append(st.Digests, Digest{Algorithm: AlgorithmSHA256, Value: v, Source: hashPrefix})

		case strings.HasPrefix(lower, kdfPrefix):
			d, err := parseKDF(kw[len(kdfPrefix):])
			if err != nil {
				logger.Warn(ctx, "ignoring malformed kdf marker", "error", err.Error())
				continue
			}
			st.Digests = append(st.Digests, d)

		case strings.HasPrefix(lower, metaPrefix):
			m, err := DecodeMetadata(kw[len(metaPrefix):])
			if err != nil {
				logger.Warn(ctx, "ignoring malformed meta marker", "error", err.Error())
				continue
			}
			d, err := metadataDigest(m)
			if err != nil {
				logger.Warn(ctx, "ignoring malformed meta marker", "error", err.Error())
				continue
			}
			st.Digests = append(st.Digests, d)
			if st.Metadata == nil {
				st.Metadata = m
			}
		}
	}

	if len(st.Digests) == 0 {
		if st.Flagged {
			logger.Warn(ctx, "document flagged as protected but carries no usable digest")
		}
		return Unprotected{}
	}

	return st
}

func metadataDigest(m *Metadata) (Digest, error) {
	v := strings.ToLower(m.PasswordHash)
	if !isDigestHex(v) {
		return Digest{}, errors.New("meta marker: password hash is not a hex digest")
	}

	switch m.Algorithm {
	case AlgorithmArgon2id:
		salt, err := hex.DecodeString(m.Salt)
		if err != nil || len(salt) == 0 {
			return Digest{}, errors.New("meta marker: bad salt")
		}
		return Digest{Algorithm: AlgorithmArgon2id, Salt: salt, Value: v, Source: metaPrefix}, nil
	case "", AlgorithmSHA256:
		return Digest{Algorithm: AlgorithmSHA256, Value: v, Source: metaPrefix}, nil
	default:
		return Digest{}, fmt.Errorf("meta marker: unsupported algorithm %q", m.Algorithm)
	}
}

func parseKDF(s string) (Digest, error) {
	saltHex, value, ok := strings.Cut(s, ":")
	if !ok {
		return Digest{}, errors.New("kdf marker: expected <salt>:<hash>")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return Digest{}, errors.New("kdf marker: bad salt")
	}

	value = strings.ToLower(value)
	if !isDigestHex(value) {
		return Digest{}, errors.New("kdf marker: bad hash")
	}

	return Digest{Algorithm: AlgorithmArgon2id, Salt: salt, Value: value, Source: kdfPrefix}, nil
}

func isDigestHex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
