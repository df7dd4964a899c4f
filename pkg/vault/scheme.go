package vault

import (
	"errors"
	"fmt"
)

// Scheme identifies the envelope format a ciphertext was written with.
type Scheme byte

const (
	SchemeUnknown Scheme = 0
	// SchemeLegacy is the pre-salt, single global key format. Records in it
	// carry LegacySaltSentinel and must be re-encrypted before they can be read.
	SchemeLegacy Scheme = 1
	// SchemeSaltedV2 is HKDF-SHA256 per-record salt + XChaCha20-Poly1305.
	SchemeSaltedV2 Scheme = 2
)

// LegacySaltSentinel is the salt value backfilled onto records written before
// the salt column existed.
const LegacySaltSentinel = "legacy"

// CurrentScheme is what Seal writes.
const CurrentScheme = SchemeSaltedV2

func (s Scheme) String() string {
	switch s {
	case SchemeLegacy:
		return "legacy"
	case SchemeSaltedV2:
		return "salted-v2"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

var (
	// ErrDecryption covers mismatched pairs, a rotated secret and malformed input.
	ErrDecryption = errors.New("vault: decryption failed")
	// ErrLegacyRecord marks a record that still needs re-encryption.
	ErrLegacyRecord = errors.New("vault: legacy record requires re-encryption")
	// ErrUnsupportedScheme is returned for envelope versions this build cannot read.
	ErrUnsupportedScheme = errors.New("vault: unsupported encryption scheme")
)

// DecryptionError reports why Open failed and which scheme it detected.
type DecryptionError struct {
	Scheme Scheme
	Err    error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("%v (scheme %s)", e.Err, e.Scheme)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// IsLegacy reports whether err came from opening an unmigrated legacy record.
func IsLegacy(err error) bool {
	return errors.Is(err, ErrLegacyRecord)
}
