package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"sync"

	"github.com/kjm99d/SpeedSQL/dberr"
	"golang.org/x/crypto/pbkdf2"
)

const (
	aesKeySize   = 32 // AES-256
	aesIVSize    = 12
	aesTagSize   = 16
	aesBlockSize = aes.BlockSize
)

type aesGCMProvider struct {
	mu  sync.Mutex
	key [aesKeySize]byte
	gcm cipher.AEAD
}

func (p *aesGCMProvider) Init(passphrase, salt []byte) error {
	return p.Rekey(passphrase, salt)
}

func (p *aesGCMProvider) Rekey(passphrase, salt []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	derived := pbkdf2.Key(passphrase, salt, DefaultKDFIterations, aesKeySize, sha256.New)
	copy(p.key[:], derived)

	block, err := aes.NewCipher(p.key[:])
	if err != nil {
		return dberr.Wrap(dberr.Error, "aes-256-gcm: build cipher block", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, aesIVSize)
	if err != nil {
		return dberr.Wrap(dberr.Error, "aes-256-gcm: build aead", err)
	}
	p.gcm = gcm
	return nil
}

func (p *aesGCMProvider) Encrypt(pageID int64, plaintext, aad []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gcm == nil {
		return nil, dberr.New(dberr.Misuse, "aes-256-gcm: not initialized")
	}
	iv := DerivePageIV(pageID)
	return p.gcm.Seal(nil, iv[:], plaintext, aad), nil
}

func (p *aesGCMProvider) Decrypt(pageID int64, sealed, aad []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gcm == nil {
		return nil, dberr.New(dberr.Misuse, "aes-256-gcm: not initialized")
	}
	iv := DerivePageIV(pageID)
	out, err := p.gcm.Open(nil, iv[:], sealed, aad)
	if err != nil {
		return nil, dberr.Wrap(dberr.Corrupt, "aes-256-gcm: authentication failed", err)
	}
	return out, nil
}

func (p *aesGCMProvider) Zeroize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.key {
		p.key[i] = 0
	}
	p.gcm = nil
}

func (p *aesGCMProvider) SelfTest() error {
	plaintext := []byte("speedsql self-test vector")
	aad := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	sealed, err := p.Encrypt(42, plaintext, aad)
	if err != nil {
		return err
	}
	opened, err := p.Decrypt(42, sealed, aad)
	if err != nil {
		return err
	}
	if !bytes.Equal(opened, plaintext) {
		return dberr.New(dberr.Error, "aes-256-gcm: self-test round trip mismatch")
	}
	return nil
}

func (p *aesGCMProvider) KeySize() int   { return aesKeySize }
func (p *aesGCMProvider) IVSize() int    { return aesIVSize }
func (p *aesGCMProvider) TagSize() int   { return aesTagSize }
func (p *aesGCMProvider) BlockSize() int { return aesBlockSize }
