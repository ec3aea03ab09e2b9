package protection

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// MetadataVersion is written into every new record.
	MetadataVersion = "3.0"

	AlgorithmSHA256   = "SHA-256"
	AlgorithmArgon2id = "argon2id"

	// isoLayout matches JavaScript's Date.toISOString for UTC times.
	isoLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Metadata is the record embedded as meta:<base64 JSON>.
type Metadata struct {
	Version      string      `json:"version"`
	Algorithm    string      `json:"algorithm"`
	PasswordHash string      `json:"passwordHash"`
	Salt         string      `json:"salt,omitempty"`
	ProtectedAt  string      `json:"protectedAt"`
	Permissions  Permissions `json:"permissions"`
}

// FormatTimestamp renders t the way ProtectedAt is stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Encode returns base64(JSON(m)).
func (m Metadata) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeMetadata reverses Encode. A record without a password hash is
// rejected since it cannot gate anything.
func DecodeMetadata(s string) (*Metadata, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("meta marker: %w", err)
	}

	m := &Metadata{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("meta marker: %w", err)
	}
	if m.PasswordHash == "" {
		return nil, errors.New("meta marker: no password hash")
	}

	return m, nil
}
