package session

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

var (
	// errors
	ErrCredentialNotFound = errors.New("credential not found")
	ErrNoSession          = errors.New("not signed in")
)

// CredentialStore is any secure storage able to keep the session credential blob.
type CredentialStore interface {
	// Get returns ErrCredentialNotFound when nothing is stored under key.
	Get(key string) ([]byte, error)
	Set(key string, secret []byte) error
	Delete(key string) error
}

// Store holds the current Session and publishes its transitions to subscribers.
// Persistence failures are logged, never returned.
type Store struct {
	mu      sync.RWMutex
	creds   CredentialStore
	key     string
	logger  core.Logger
	current *Session
	subs    map[int]func(*Session)
	nextSub int
}

func NewStore(creds CredentialStore, key string, logger core.Logger) *Store {
	return &Store{
		creds:  creds,
		key:    key,
		logger: logger,
		subs:   make(map[int]func(*Session)),
	}
}

// Create persists sess and publishes it.
func (s *Store) Create(sess Session) {
	data, err := json.Marshal(sess)
	if err == nil {
		err = s.creds.Set(s.key, data)
	}
	if err != nil {
		s.logger.Error("persisting session", errors.Wrap(err, "session.Create"), sess)
	}
	s.publish(&sess)
}

// Read loads a previously persisted session. A missing or unreadable credential
// publishes "no session".
func (s *Store) Read() {
	data, err := s.creds.Get(s.key)
	if err != nil {
		if errors.Cause(err) != ErrCredentialNotFound {
			s.logger.Error("reading session", errors.Wrap(err, "session.Read"))
		}
		s.publish(nil)
		return
	}

	var sess Session
	if err = json.Unmarshal(data, &sess); err != nil || sess.Token == "" {
		if err == nil {
			err = errors.New("empty token")
		}
		s.logger.Error("decoding session", errors.Wrap(err, "session.Read"))
		s.publish(nil)
		return
	}
	s.publish(&sess)
}

// Clear removes the persisted credential and publishes "no session".
func (s *Store) Clear() {
	if err := s.creds.Delete(s.key); err != nil && errors.Cause(err) != ErrCredentialNotFound {
		s.logger.Error("deleting session", errors.Wrap(err, "session.Clear"))
	}
	s.publish(nil)
}

// Current returns the signed in session, if any.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Token returns the current bearer token or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Subscribe registers fn to be called on every session transition (nil: no session).
func (s *Store) Subscribe(fn func(*Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) publish(sess *Session) {
	s.mu.Lock()
	s.current = sess
	subs := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		if sess == nil {
			fn(nil)
			continue
		}
		cp := *sess
		fn(&cp)
	}
}
