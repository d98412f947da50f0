package store

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo binds derived keys to this store's on-disk format version.
const hkdfInfo = "attendd sealed store v1"

// SealedStore encrypts values at rest with AES-256-GCM before handing them
// to an inner Store. Queued facial photos are biometric data; sealing keeps
// them unreadable if the data directory leaks.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealedStore derives a key from the passphrase via HKDF-SHA256 and
// wraps the inner store.
func NewSealedStore(inner Store, passphrase string) (*SealedStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("seal passphrase must not be empty")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &SealedStore{inner: inner, aead: aead}, nil
}

// Get decrypts the stored value for key. A value that fails authentication
// (tampered or sealed under another passphrase) is an error, not a miss.
func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(sealed) < s.aead.NonceSize() {
		return nil, false, fmt.Errorf("unseal %s: value too short", key)
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, false, fmt.Errorf("unseal %s: %w", key, err)
	}
	return plain, true, nil
}

// Set encrypts value under a fresh random nonce and stores nonce||ciphertext.
func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	sealed := s.aead.Seal(nonce, nonce, value, []byte(key))
	return s.inner.Set(ctx, key, sealed)
}

// Delete removes the key from the inner store.
func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the inner store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}
