package keyringstore

import (
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"

	"github.com/trezcool/rollcall/core/session"
)

// Store keeps credentials in the OS keychain (macOS Keychain, Windows Credential
// Manager, Secret Service on Linux), under a single service name.
type Store struct {
	service string
}

var _ session.CredentialStore = (*Store)(nil) // interface compliance check

func New(service string) *Store {
	return &Store{service: service}
}

func (s *Store) Get(key string) ([]byte, error) {
	secret, err := keyring.Get(s.service, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, session.ErrCredentialNotFound
		}
		return nil, errors.Wrap(err, "reading keyring")
	}
	return []byte(secret), nil
}

func (s *Store) Set(key string, secret []byte) error {
	return errors.Wrap(keyring.Set(s.service, key, string(secret)), "writing keyring")
}

func (s *Store) Delete(key string) error {
	if err := keyring.Delete(s.service, key); err != nil {
		if err == keyring.ErrNotFound {
			return session.ErrCredentialNotFound
		}
		return errors.Wrap(err, "deleting keyring entry")
	}
	return nil
}
