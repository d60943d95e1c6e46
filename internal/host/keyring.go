package host

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned by SecretStore.Get and Delete for missing entries.
var ErrSecretNotFound = errors.New("secret not found")

// KeyringStore is a SecretStore backed by the OS keyring: Keychain on macOS,
// Secret Service over D-Bus on Linux, Credential Manager on Windows.
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (KeyringStore) Get(service, account string) (string, error) {
	v, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	return v, err
}

func (KeyringStore) Set(service, account, value string) error {
	return keyring.Set(service, account, value)
}

func (KeyringStore) Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrSecretNotFound
	}
	return err
}
