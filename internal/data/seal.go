package data

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var errSealed = errors.New("data: cannot open sealed value")

// sealedBackend encrypts every stored value with XChaCha20-Poly1305. The
// state key is bound as additional data so values cannot be swapped between keys.
type sealedBackend struct {
	next backend
	aead cipher.AEAD
}

// newSealedBackend wraps next with a base64 encoded 32-byte key.
func newSealedBackend(next backend, key string) (*sealedBackend, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("data: seal key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return nil, fmt.Errorf("data: seal key: %w", err)
	}
	return &sealedBackend{next: next, aead: aead}, nil
}

func (b *sealedBackend) seal(key, value string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(value)+b.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := b.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (b *sealedBackend) open(key, value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", errSealed, key, err)
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("%w %s: short value", errSealed, key)
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", errSealed, key, err)
	}
	return string(plain), nil
}

type sealedReader struct {
	next kvReader
	b    *sealedBackend
}

func (r sealedReader) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := r.next.get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := r.b.open(key, v)
	return plain, err == nil, err
}

func (b *sealedBackend) view(ctx context.Context, fn func(r kvReader) error) error {
	return b.next.view(ctx, func(r kvReader) error {
		return fn(sealedReader{next: r, b: b})
	})
}

func (b *sealedBackend) update(ctx context.Context, fn func(r kvReader) (map[string]change, error)) error {
	return b.next.update(ctx, func(r kvReader) (map[string]change, error) {
		changes, err := fn(sealedReader{next: r, b: b})
		if err != nil {
			return nil, err
		}
		sealed := make(map[string]change, len(changes))
		for k, c := range changes {
			if c.del {
				sealed[k] = c
				continue
			}
			v, err := b.seal(k, c.value)
			if err != nil {
				return nil, err
			}
			sealed[k] = change{value: v}
		}
		return sealed, nil
	})
}

func (b *sealedBackend) close() error {
	return b.next.close()
}
