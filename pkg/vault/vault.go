// Package vault seals confidential decimal amounts at rest.
//
// Every Seal draws a fresh random salt. The salt and the process-wide secret
// derive a one-off key through HKDF-SHA256, and the amount is sealed with
// XChaCha20-Poly1305. The ciphertext and salt must be stored together: a
// ciphertext whose salt is lost cannot be opened, even with the secret.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the shortest master secret New accepts.
	MinSecretLength = 32

	saltSize = 16
	keySize  = chacha20poly1305.KeySize
)

var (
	kdfInfo  = []byte("payday-salary-encryption")
	encoding = base64.RawURLEncoding
)

// Sealed is a ciphertext/salt pair as persisted on a record.
type Sealed struct {
	Ciphertext string
	Salt       string
}

// Vault seals and opens amounts under one master secret.
type Vault struct {
	secret  []byte
	entropy io.Reader
}

// New returns a Vault keyed by secret.
func New(secret string) (*Vault, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("vault secret must be at least %d bytes", MinSecretLength)
	}
	return &Vault{secret: []byte(secret), entropy: rand.Reader}, nil
}

// Seal encrypts amount under a freshly generated salt. It fails only when the
// entropy source does, which callers must treat as fatal.
func (v *Vault) Seal(amount decimal.Decimal) (Sealed, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(v.entropy, salt); err != nil {
		return Sealed{}, fmt.Errorf("read salt: %w", err)
	}

	aead, err := v.aead(salt)
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(v.entropy, nonce); err != nil {
		return Sealed{}, fmt.Errorf("read nonce: %w", err)
	}

	header := []byte{byte(SchemeSaltedV2)}
	out := aead.Seal(nonce, nonce, []byte(amount.String()), additionalData(SchemeSaltedV2, salt))

	return Sealed{
		Ciphertext: encoding.EncodeToString(append(header, out...)),
		Salt:       encoding.EncodeToString(salt),
	}, nil
}

// Open decrypts a ciphertext with its paired salt. Every failure is a
// *DecryptionError; use errors.Is with ErrLegacyRecord, ErrUnsupportedScheme
// or ErrDecryption to tell them apart.
func (v *Vault) Open(ciphertext, salt string) (decimal.Decimal, error) {
	if salt == LegacySaltSentinel {
		return decimal.Decimal{}, &DecryptionError{Scheme: SchemeLegacy, Err: ErrLegacyRecord}
	}

	raw, err := encoding.DecodeString(ciphertext)
	if err != nil || len(raw) == 0 {
		return decimal.Decimal{}, &DecryptionError{Scheme: SchemeUnknown, Err: ErrDecryption}
	}

	scheme := Scheme(raw[0])
	switch scheme {
	case SchemeSaltedV2:
		return v.openV2(raw[1:], salt)
	default:
		return decimal.Decimal{}, &DecryptionError{Scheme: scheme, Err: ErrUnsupportedScheme}
	}
}

func (v *Vault) openV2(body []byte, encodedSalt string) (decimal.Decimal, error) {
	fail := &DecryptionError{Scheme: SchemeSaltedV2, Err: ErrDecryption}

	salt, err := encoding.DecodeString(encodedSalt)
	if err != nil || len(salt) != saltSize {
		return decimal.Decimal{}, fail
	}

	aead, err := v.aead(salt)
	if err != nil {
		return decimal.Decimal{}, fail
	}
	if len(body) < aead.NonceSize()+aead.Overhead() {
		return decimal.Decimal{}, fail
	}

	nonce, sealed := body[:aead.NonceSize()], body[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, additionalData(SchemeSaltedV2, salt))
	if err != nil {
		return decimal.Decimal{}, fail
	}

	amount, err := decimal.NewFromString(string(plain))
	if err != nil {
		return decimal.Decimal{}, fail
	}
	return amount, nil
}

func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, v.secret, salt, kdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return chacha20poly1305.NewX(key)
}

// additionalData binds the scheme and salt to the ciphertext so a ciphertext
// cannot be replayed under another record's salt.
func additionalData(scheme Scheme, salt []byte) []byte {
	ad := make([]byte, 0, 1+len(salt))
	ad = append(ad, byte(scheme))
	return append(ad, salt...)
}
