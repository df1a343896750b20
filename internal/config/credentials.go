package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/storage"
)

// Credential sources, in lookup order.
const (
	SourceStored = "stored"
	SourceEnv    = "env"
	SourceNone   = "none"
)

var envKeys = []string{"GEMINI_API_KEY", "API_KEY"}

// Credentials resolves the API key used for analysis and generation. A key
// saved through the CLI or API wins over the environment.
type Credentials struct {
	store storage.Store
}

func NewCredentials(store storage.Store) *Credentials {
	return &Credentials{store: store}
}

// APIKey returns the key and where it came from. An empty key means none is configured.
func (c *Credentials) APIKey(ctx context.Context) (string, string) {
	if c.store != nil {
		value, ok, err := c.store.Get(ctx, storage.KeyAPIKey)
		if err == nil && ok {
			if key := strings.TrimSpace(string(value)); key != "" {
				return key, SourceStored
			}
		}
	}
	for _, name := range envKeys {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key, SourceEnv
		}
	}
	return "", SourceNone
}

// Key satisfies the provider key lookup signature.
func (c *Credentials) Key(ctx context.Context) (string, error) {
	key, _ := c.APIKey(ctx)
	if key == "" {
		return "", models.ErrCredentialMissing
	}
	return key, nil
}

// Check reports ErrCredentialMissing when no key is available.
func (c *Credentials) Check(ctx context.Context) error {
	_, err := c.Key(ctx)
	return err
}

func (c *Credentials) Save(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key must not be empty")
	}
	if err := c.store.Set(ctx, storage.KeyAPIKey, []byte(key)); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return nil
}

func (c *Credentials) Clear(ctx context.Context) error {
	if err := c.store.Remove(ctx, storage.KeyAPIKey); err != nil {
		return fmt.Errorf("failed to clear API key: %w", err)
	}
	return nil
}

// CredentialStatus is safe to print or return over the API.
type CredentialStatus struct {
	Configured bool   `json:"configured" yaml:"configured"`
	Source     string `json:"source" yaml:"source"`
	Masked     string `json:"masked,omitempty" yaml:"masked,omitempty"`
}

func (c *Credentials) Status(ctx context.Context) CredentialStatus {
	key, source := c.APIKey(ctx)
	return CredentialStatus{
		Configured: key != "",
		Source:     source,
		Masked:     Mask(key),
	}
}

// Mask hides all but the last four characters of a key.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
