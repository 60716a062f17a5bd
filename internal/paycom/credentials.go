package paycom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNoSecret is returned when no merchant secret is configured.
var ErrNoSecret = errors.New("paycom: merchant secret not configured")

// Credentials supplies the current merchant secret.
type Credentials interface {
	Secret() (string, error)
}

// CredentialStore is a Credentials source that can also replace the secret.
type CredentialStore interface {
	Credentials
	SetSecret(secret string) error
}

// StaticSecret is a fixed secret from configuration. It cannot be changed.
type StaticSecret string

func (s StaticSecret) Secret() (string, error) {
	if s == "" {
		return "", ErrNoSecret
	}
	return string(s), nil
}

// KeyFile keeps the secret in a file on disk. Until the file exists the
// fallback secret is used.
type KeyFile struct {
	mu       sync.RWMutex
	path     string
	fallback string
}

func NewKeyFile(path, fallback string) *KeyFile {
	return &KeyFile{path: path, fallback: fallback}
}

func (k *KeyFile) Secret() (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	data, err := os.ReadFile(k.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StaticSecret(k.fallback).Secret()
		}
		return "", fmt.Errorf("read key file: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return StaticSecret(k.fallback).Secret()
	}
	return secret, nil
}

// SetSecret replaces the key file contents atomically. The secret is stored
// trimmed, the same way Secret reads it back.
func (k *KeyFile) SetSecret(secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrNoSecret
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	dir := filepath.Dir(k.path)
	tmp, err := os.CreateTemp(dir, ".paycom-key-*")
	if err != nil {
		return fmt.Errorf("create temp key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(secret); err != nil {
		tmp.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close key file: %w", err)
	}
	if err := os.Rename(tmp.Name(), k.path); err != nil {
		return fmt.Errorf("replace key file: %w", err)
	}
	return nil
}

// NewCredentials returns a key file store when path is set, otherwise the
// static key.
func NewCredentials(keyFile, key string) Credentials {
	if keyFile != "" {
		return NewKeyFile(keyFile, key)
	}
	return StaticSecret(key)
}
