// Package keyring stores the account password in the OS secret store so the
// .env file can omit USER_PASSWORD.
package keyring

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keyring service under which passwords are stored.
const ServiceName = "cekunit"

// ErrNoEmail is returned when an operation is attempted without an account.
var ErrNoEmail = errors.New("keyring: email is required")

// ErrNotFound is returned when no password is stored for the account.
var ErrNotFound = keyring.ErrNotFound

type Keyring struct {
	Service string
}

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

func NewKeyring() *Keyring {
	return &Keyring{
		Service: ServiceName,
	}
}

// SetPassword stores password for the given email, replacing any previous entry.
func (k *Keyring) SetPassword(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrNoEmail
	}
	if password == "" {
		return errors.New("keyring: password is empty")
	}
	return keyringSet(k.Service, email, password)
}

func (k *Keyring) GetPassword(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrNoEmail
	}
	return keyringGet(k.Service, email)
}

// DeletePassword removes the stored entry. A missing entry is not an error.
func (k *Keyring) DeletePassword(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrNoEmail
	}
	err := keyringDelete(k.Service, email)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Lookup adapts the keyring to the password lookup used by config loading.
func (k *Keyring) Lookup(email string) (string, error) {
	return k.GetPassword(email)
}
