// Package credential stores per-user provider API keys sealed at rest and
// resolves the key to use for a call.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/michael213532/ai-debate/internal/domain"
)

const nonceSize = 24

var (
	// ErrNoCredential is returned when neither the user nor the server has a
	// key for a provider.
	ErrNoCredential = errors.New("no API key configured")

	errSealedTooShort = errors.New("sealed key is too short")
	errOpenFailed     = errors.New("failed to open sealed key")
)

// KeyStore persists sealed keys.
type KeyStore interface {
	SaveAPIKey(ctx context.Context, userID, provider string, sealed []byte) error
	GetAPIKey(ctx context.Context, userID, provider string) ([]byte, error)
	DeleteAPIKey(ctx context.Context, userID, provider string) error
	ListAPIKeyProviders(ctx context.Context, userID string) ([]string, error)
}

// Vault seals user keys with NaCl secretbox under a key derived from the
// server secret. Server-wide keys are used when a user has none.
type Vault struct {
	store  KeyStore
	key    [32]byte
	global map[string]string
	// placeholder is returned when no key exists. Empty means none.
	placeholder string
}

// NewVault creates a vault. With an empty secret a random key is used and
// stored keys become unreadable after a restart.
func NewVault(store KeyStore, secret string, global map[string]string) (*Vault, error) {
	v := &Vault{store: store, global: make(map[string]string, len(global))}
	for provider, key := range global {
		if key = strings.TrimSpace(key); key != "" {
			v.global[provider] = key
		}
	}

	if secret == "" {
		log.Printf("WARN: ENCRYPTION_KEY not set, stored API keys will not survive a restart")
		if _, err := io.ReadFull(rand.Reader, v.key[:]); err != nil {
			return nil, fmt.Errorf("failed to generate vault key: %w", err)
		}
		return v, nil
	}

	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("ai-debate api keys v1"))
	if _, err := io.ReadFull(kdf, v.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive vault key: %w", err)
	}
	return v, nil
}

// APIKey returns the key to use for a user's call to provider.
func (v *Vault) APIKey(ctx context.Context, userID, provider string) (string, error) {
	sealed, err := v.store.GetAPIKey(ctx, userID, provider)
	if err != nil {
		return "", fmt.Errorf("failed to load API key: %w", err)
	}
	if sealed != nil {
		key, err := v.open(sealed)
		if err == nil {
			return key, nil
		}
		// Usually a changed ENCRYPTION_KEY. Fall back to the server key.
		log.Printf("WARN: cannot open stored %s key for user %s: %v", provider, userID, err)
	}
	if key, ok := v.global[provider]; ok {
		return key, nil
	}
	if v.placeholder != "" {
		return v.placeholder, nil
	}
	return "", fmt.Errorf("%w for %s", ErrNoCredential, provider)
}

// UsePlaceholder makes APIKey resolve missing credentials to key. Mock
// providers ignore the key, so local runs need none configured. Call it
// before the vault is shared.
func (v *Vault) UsePlaceholder(key string) {
	v.placeholder = strings.TrimSpace(key)
}

// Save seals and stores a user's key for provider.
func (v *Vault) Save(ctx context.Context, userID, provider, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("api key is empty")
	}
	sealed, err := v.seal(apiKey)
	if err != nil {
		return err
	}
	if err := v.store.SaveAPIKey(ctx, userID, provider, sealed); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return nil
}

// Delete removes a user's key. The server key, if any, stays in effect.
func (v *Vault) Delete(ctx context.Context, userID, provider string) error {
	if err := v.store.DeleteAPIKey(ctx, userID, provider); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	return nil
}

// Status reports, for each provider, whether a key is available to userID.
func (v *Vault) Status(ctx context.Context, userID string, providers []string) ([]domain.ProviderStatus, error) {
	stored, err := v.store.ListAPIKeyProviders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	has := make(map[string]bool, len(stored))
	for _, p := range stored {
		has[p] = true
	}

	out := make([]domain.ProviderStatus, 0, len(providers))
	for _, p := range providers {
		_, global := v.global[p]
		out = append(out, domain.ProviderStatus{Provider: p, Configured: has[p] || global})
	}
	return out, nil
}

func (v *Vault) seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &v.key), nil
}

func (v *Vault) open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", errSealedTooShort
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", errOpenFailed
	}
	return string(plain), nil
}
