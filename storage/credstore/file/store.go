package filestore

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/trezcool/rollcall/core/session"
)

const nonceSize = 24

var errDecrypt = errors.New("decrypting credential: message authentication failed")

// Store keeps each credential in its own file under dir, sealed with
// NaCl secretbox using a key derived from the application secret.
// It is meant for hosts without an OS keychain.
type Store struct {
	dir string
	key [32]byte
}

var _ session.CredentialStore = (*Store)(nil) // interface compliance check

func New(dir, secretKey string) *Store {
	return &Store{
		dir: dir,
		key: sha256.Sum256([]byte(secretKey)),
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key)+".bin")
}

func (s *Store) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, session.ErrCredentialNotFound
		}
		return nil, errors.Wrap(err, "reading credential file")
	}
	if len(data) < nonceSize {
		return nil, errDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	secret, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errDecrypt
	}
	return secret, nil
}

func (s *Store) Set(key string, secret []byte) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return errors.Wrap(err, "generating nonce")
	}
	sealed := secretbox.Seal(nonce[:], secret, &nonce, &s.key)

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrap(err, "creating credential dir")
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return errors.Wrap(err, "writing credential file")
	}
	return errors.Wrap(os.Rename(tmp, s.path(key)), "writing credential file")
}

func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return session.ErrCredentialNotFound
		}
		return errors.Wrap(err, "deleting credential file")
	}
	return nil
}
