// Package keyring stores the API token in the operating system keyring
// behind a small Provider interface, so tests can swap in memory.
package keyring

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const ServiceName = "traction"

type ErrSecretNotFound struct {
	Key string
	Err error
}

func (e *ErrSecretNotFound) Error() string {
	return fmt.Sprintf("secret %q not found: %s", e.Key, e.Err)
}

// Is matches any ErrSecretNotFound regardless of key, so callers can use
// errors.Is(err, &ErrSecretNotFound{}).
func (e *ErrSecretNotFound) Is(target error) bool {
	_, ok := target.(*ErrSecretNotFound)
	return ok
}

func (e *ErrSecretNotFound) Unwrap() error {
	return e.Err
}

type Provider interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Delete(key string) error
}

// KeyringProvider talks to the platform keyring (Secret Service, macOS
// Keychain, Windows Credential Manager) under the traction service name.
type KeyringProvider struct {
	service string
}

var _ Provider = (*KeyringProvider)(nil)

func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{service: ServiceName}
}

func (k *KeyringProvider) Get(key string) (string, error) {
	secret, err := keyring.Get(k.service, key)
	if err != nil {
		return "", wrapNotFound(key, err)
	}
	return secret, nil
}

func (k *KeyringProvider) Set(key string, value string) error {
	return keyring.Set(k.service, key, value)
}

func (k *KeyringProvider) Delete(key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		return wrapNotFound(key, err)
	}
	return nil
}

func wrapNotFound(key string, err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return &ErrSecretNotFound{Key: key, Err: err}
	}
	return err
}

// MemoryProvider keeps secrets in process memory. Test use only.
type MemoryProvider struct {
	mu      sync.RWMutex
	secrets map[string]string
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{secrets: make(map[string]string)}
}

func (m *MemoryProvider) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secret, ok := m.secrets[key]
	if !ok {
		return "", &ErrSecretNotFound{Key: key, Err: keyring.ErrNotFound}
	}
	return secret, nil
}

func (m *MemoryProvider) Set(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets[key] = value
	return nil
}

func (m *MemoryProvider) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.secrets, key)
	return nil
}
