package session_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core/session"
	"github.com/trezcool/rollcall/storage/credstore/dummy"
	"github.com/trezcool/rollcall/tests"
)

const key = "userSession"

var alice = session.Session{Token: "tok", Username: "alice", Role: session.RoleLecturer, UserID: "L1"}

func setup() (*session.Store, *dummystore.Store, *testutil.Logger) {
	creds := dummystore.New()
	logger := testutil.NewLogger()
	return session.NewStore(creds, key, logger), creds, logger
}

func TestStore_CreateReadClear(t *testing.T) {
	store, creds, logger := setup()

	var published []*session.Session
	unsubscribe := store.Subscribe(func(s *session.Session) { published = append(published, s) })
	defer unsubscribe()

	store.Create(alice)
	got, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, alice, got)
	assert.Equal(t, "tok", store.Token())

	// a new store (process restart) reads it back
	restarted := session.NewStore(creds, key, logger)
	restarted.Read()
	got, ok = restarted.Current()
	require.True(t, ok)
	assert.Equal(t, alice, got)

	store.Clear()
	_, ok = store.Current()
	assert.False(t, ok)
	assert.Equal(t, "", store.Token())
	_, err := creds.Get(key)
	assert.Equal(t, session.ErrCredentialNotFound, err)

	require.Len(t, published, 2)
	assert.Equal(t, alice, *published[0])
	assert.Nil(t, published[1])
	assert.Zero(t, logger.Count("error"))
}

func TestStore_Read(t *testing.T) {
	tests := []struct {
		name       string
		stored     []byte
		failWith   error
		wantOK     bool
		wantErrLog int
	}{
		{name: "nothing persisted", wantOK: false},
		{name: "valid blob", stored: []byte(`{"token":"tok","username":"alice","userRole":"lecturer","userId":"L1"}`), wantOK: true},
		{name: "corrupt blob", stored: []byte(`{"token":`), wantErrLog: 1},
		{name: "blob without token", stored: []byte(`{"username":"alice"}`), wantErrLog: 1},
		{name: "store unavailable", failWith: errors.New("keychain locked"), wantErrLog: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, creds, logger := setup()
			if tt.stored != nil {
				require.NoError(t, creds.Set(key, tt.stored))
			}
			creds.FailWith(tt.failWith)

			var calls int
			store.Subscribe(func(*session.Session) { calls++ })
			store.Read()

			got, ok := store.Current()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, alice, got)
			}
			assert.Equal(t, 1, calls, "read always publishes")
			assert.Equal(t, tt.wantErrLog, logger.Count("error"))
		})
	}
}

func TestStore_persistenceFailureIsLogged(t *testing.T) {
	store, creds, logger := setup()
	creds.FailWith(errors.New("keychain locked"))

	store.Create(alice)
	got, ok := store.Current()
	require.True(t, ok, "session is published even when persisting fails")
	assert.Equal(t, alice, got)

	store.Clear()
	_, ok = store.Current()
	assert.False(t, ok)
	assert.Equal(t, 2, logger.Count("error"))
}

func TestStore_Unsubscribe(t *testing.T) {
	store, _, _ := setup()
	var calls int
	unsubscribe := store.Subscribe(func(*session.Session) { calls++ })
	store.Create(alice)
	unsubscribe()
	store.Clear()
	assert.Equal(t, 1, calls)
}
