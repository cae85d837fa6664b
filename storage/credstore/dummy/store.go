package dummystore

import (
	"sync"

	"github.com/trezcool/rollcall/core/session"
)

// Store keeps credentials in memory. It is used by tests and the "memory" session store.
type Store struct {
	sync.RWMutex
	table map[string][]byte
	err   error
}

var _ session.CredentialStore = (*Store)(nil) // interface compliance check

func New() *Store {
	return &Store{table: make(map[string][]byte)}
}

// FailWith makes every following call return err (nil restores normal behaviour).
func (s *Store) FailWith(err error) {
	s.Lock()
	defer s.Unlock()
	s.err = err
}

func (s *Store) Get(key string) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	secret, ok := s.table[key]
	if !ok {
		return nil, session.ErrCredentialNotFound
	}
	return append([]byte(nil), secret...), nil
}

func (s *Store) Set(key string, secret []byte) error {
	s.Lock()
	defer s.Unlock()
	if s.err != nil {
		return s.err
	}
	s.table[key] = append([]byte(nil), secret...)
	return nil
}

func (s *Store) Delete(key string) error {
	s.Lock()
	defer s.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.table, key)
	return nil
}
