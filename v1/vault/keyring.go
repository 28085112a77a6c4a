package vault

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring stores secrets in the OS credential store.
type Keyring struct {
	service string
}

var _ Vault = (*Keyring)(nil)

// NewKeyring returns a vault using service as the keyring service name.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultServiceName
	}
	return &Keyring{service: service}
}

func (k *Keyring) Get(id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	secret, err := keyring.Get(k.service, id)
	if err != nil {
		return "", translate(err, id)
	}
	return secret, nil
}

func (k *Keyring) Set(id, secret string) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := keyring.Set(k.service, id, secret); err != nil {
		return fmt.Errorf("vault: storing secret for %q: %w", id, err)
	}
	return nil
}

func (k *Keyring) Delete(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := keyring.Delete(k.service, id); err != nil {
		return translate(err, id)
	}
	return nil
}

func translate(err error, id string) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return fmt.Errorf("vault: keyring access for %q: %w", id, err)
}
