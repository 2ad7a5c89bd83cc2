// Package crypto implements SpeedSQL's pluggable page cipher contract:
// an AEAD provider keyed from a passphrase, with deterministic
// per-page IV derivation so encrypted pages round-trip without storing
// a nonce alongside every page.
//
// No example in the reference corpus implements an AEAD cipher or a
// password-based key derivation function, so this package reaches past
// the corpus to the Go ecosystem's standard extended-crypto module
// (golang.org/x/crypto) for PBKDF2 and ChaCha20-Poly1305, and to the
// standard library for AES-GCM.
package crypto

import "github.com/kjm99d/SpeedSQL/dberr"

// Provider is the cipher provider contract every concrete AEAD
// implementation satisfies.
type Provider interface {
	// Init derives the provider's working key from a passphrase and salt.
	Init(passphrase, salt []byte) error
	// Encrypt seals plaintext for the given page id, returning
	// ciphertext||tag. aad is the additional authenticated data (the
	// page id, per the on-disk format).
	Encrypt(pageID int64, plaintext, aad []byte) ([]byte, error)
	// Decrypt opens a previously sealed page; it fails closed (returns
	// an error) on any tag mismatch.
	Decrypt(pageID int64, sealed, aad []byte) ([]byte, error)
	// Rekey replaces the working key in place, for ATTACH-time re-keying.
	Rekey(passphrase, salt []byte) error
	// Zeroize scrubs the working key from memory.
	Zeroize()
	// SelfTest encrypts and decrypts a known-plaintext vector, failing
	// if the provider cannot round-trip its own ciphertext.
	SelfTest() error

	KeySize() int
	IVSize() int
	TagSize() int
	BlockSize() int
}

// Config selects a provider and its KDF parameters.
type Config struct {
	Provider   string // "aes-256-gcm" (default) or "chacha20-poly1305"
	KDFIter    int    // not read: both providers always run DefaultKDFIterations (100000) PBKDF2 rounds
	Salt       []byte
}

const DefaultKDFIterations = 100000

// TagSize is the AEAD authentication tag length shared by every
// provider this package builds (GCM and Poly1305 both use a 16-byte
// tag), so callers that only know a persisted cipher name can size an
// on-disk record without constructing a provider.
const TagSize = 16

// Status reports whether encryption is active and which provider backs it.
type Status struct {
	Enabled  bool
	Provider string
}

// New constructs the provider named by cfg.Provider, defaulting to
// AES-256-GCM when empty.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "aes-256-gcm":
		return &aesGCMProvider{}, nil
	case "chacha20-poly1305":
		return &chachaProvider{}, nil
	default:
		return nil, dberr.New(dberr.Misuse, "unknown cipher provider "+cfg.Provider)
	}
}
