package keyringstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/trezcool/rollcall/core/session"
)

func TestStore(t *testing.T) {
	keyring.MockInit()
	store := New("rollcall-test")

	_, err := store.Get("userSession")
	assert.Equal(t, session.ErrCredentialNotFound, err)

	require.NoError(t, store.Set("userSession", []byte(`{"token":"t"}`)))
	secret, err := store.Get("userSession")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"t"}`, string(secret))

	require.NoError(t, store.Delete("userSession"))
	assert.Equal(t, session.ErrCredentialNotFound, store.Delete("userSession"))
}
