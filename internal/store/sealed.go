// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks values written by SealedStore.
const sealedPrefix = "SEALED:"

// hkdfInfo binds derived keys to this use.
const hkdfInfo = "cashdesk session store v1"

// ErrUnsealed is returned when a stored value cannot be decrypted.
var ErrUnsealed = errors.New("store: value cannot be unsealed")

// SealedStore encrypts values with XChaCha20-Poly1305 before handing them to
// the wrapped Store. Keys stay in clear text so deletes work without the
// secret. The key name is bound as additional data, so a ciphertext cannot
// be moved to another key.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealedStore wraps inner using a key derived from secret.
func NewSealedStore(inner Store, secret string) (*SealedStore, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("store: empty encryption secret")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive store key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &SealedStore{inner: inner, aead: aead}, nil
}

// Put seals value and stores it under key.
func (s *SealedStore) Put(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Put(ctx, key, sealedPrefix+base64.StdEncoding.EncodeToString(sealed))
}

// Get returns the unsealed value for key.
func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(raw, sealedPrefix) {
		return "", fmt.Errorf("%w: %s is not sealed", ErrUnsealed, key)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsealed, err)
	}
	ns := s.aead.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("%w: ciphertext too short", ErrUnsealed)
	}

	plain, err := s.aead.Open(nil, data[:ns], data[ns:], []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsealed, err)
	}
	return string(plain), nil
}

// Delete removes key from the wrapped store.
func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the wrapped store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}
