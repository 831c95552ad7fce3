// Package sealed encrypts session tokens at rest around any sessions.Repo.
package sealed

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"

	relayerrors "github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/sessions"
)

const sealedPrefix = "sealed:v1:"

var (
	_ sessions.Repo   = (*Repo)(nil)
	_ sessions.Pinger = (*Repo)(nil)
)

// Repo seals access and refresh tokens with XChaCha20-Poly1305 before they reach the inner repo.
// The handle and field name are bound as additional data, so a sealed value only opens under its own key.
type Repo struct {
	inner sessions.Repo
	aead  cipher.AEAD
}

// ParseKey decodes a base64 (standard or URL, padded or not) 32 byte key
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(encoded); err == nil {
			if len(key) != chacha20poly1305.KeySize {
				return nil, fmt.Errorf("[sealed ParseKey] key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
			}
			return key, nil
		}
	}
	return nil, errors.New("[sealed ParseKey] key is not valid base64")
}

// New wraps inner with token sealing under key
func New(inner sessions.Repo, key []byte) (*Repo, error) {
	if inner == nil {
		return nil, errors.New("[sealed New] inner repo is required")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[sealed New] creating cipher: %w", err)
	}
	return &Repo{inner: inner, aead: aead}, nil
}

// Get retrieves and opens a session.
// A record that does not open under this key is reported as not found, so the browser re-authorizes.
func (r *Repo) Get(ctx context.Context, handle string) (sessions.Record, bool, error) {
	rec, found, err := r.inner.Get(ctx, handle)
	if err != nil || !found {
		return rec, found, err
	}

	if rec.AccessToken, err = r.open(handle, "access_token", rec.AccessToken); err == nil {
		rec.RefreshToken, err = r.open(handle, "refresh_token", rec.RefreshToken)
	}
	if err != nil {
		log.Warn().Err(err).Msg("[sealed Get] session does not open, treating as absent")
		return sessions.Record{}, false, nil
	}
	return rec, true, nil
}

// Put seals and stores a session
func (r *Repo) Put(ctx context.Context, handle string, rec sessions.Record) error {
	rec.Handle = handle
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("[sealed Put]: %w", err)
	}

	var err error
	if rec.AccessToken, err = r.seal(handle, "access_token", rec.AccessToken); err != nil {
		return err
	}
	if rec.RefreshToken, err = r.seal(handle, "refresh_token", rec.RefreshToken); err != nil {
		return err
	}
	return r.inner.Put(ctx, handle, rec)
}

// Ping delegates to the inner repo when it supports it
func (r *Repo) Ping(ctx context.Context) error {
	if p, ok := r.inner.(sessions.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close delegates to the inner repo when it supports it
func (r *Repo) Close() error {
	if c, ok := r.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Repo) seal(handle, field, plaintext string) (string, error) {
	nonce := make([]byte, r.aead.NonceSize(), r.aead.NonceSize()+len(plaintext)+r.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("[sealed seal] reading nonce: %w", err)
	}
	out := r.aead.Seal(nonce, nonce, []byte(plaintext), additionalData(handle, field))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

func (r *Repo) open(handle, field, value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return "", relayerrors.Store(relayerrors.ErrUnsupported, "[sealed open] %s for session is not sealed", field)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) < r.aead.NonceSize() {
		return "", relayerrors.Store(errors.New("malformed sealed value"), "[sealed open] %s", field)
	}

	nonce, ciphertext := raw[:r.aead.NonceSize()], raw[r.aead.NonceSize():]
	plaintext, err := r.aead.Open(nil, nonce, ciphertext, additionalData(handle, field))
	if err != nil {
		return "", relayerrors.Store(err, "[sealed open] %s", field)
	}
	return string(plaintext), nil
}

func additionalData(handle, field string) []byte {
	return []byte(field + "\x00" + handle)
}
