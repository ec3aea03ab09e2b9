// Package protection implements the password gate stamped into PDFs:
// Protect embeds a password digest and permission record in the keyword
// field and draws visible markings; Unlock checks a password against the
// embedded digests and strips the metadata.
//
// None of this is encryption. A protected file stays readable by any PDF
// viewer; the digest only decides whether this service agrees to produce
// an unlocked copy.
package protection

import (
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/cryptox"
)

// FixedSalt is appended to every password before hashing. It is shared by
// all documents, so equal passwords give equal digests everywhere. It must
// not change: existing protected files carry digests made with it.
const FixedSalt = "pdtools-secured-salt-2024"

// MinPasswordLength is enforced by callers before Protect.
const MinPasswordLength = 4

// Hash returns the lowercase hex SHA-256 of password+FixedSalt.
func Hash(password string) string {
	return cryptox.SaltedDigest(password, FixedSalt)
}

// ValidatePassword rejects passwords shorter than MinPasswordLength
// characters.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", common.ErrorValidation, MinPasswordLength)
	}
	return nil
}
