package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	cryptoService "github.com/allisson/keymanager/internal/crypto/service"
)

func TestKeyFile(t *testing.T) {
	codec := cryptoService.NewZipContainer(cryptoService.NewAESCBCEnvelope())
	c := cryptoDomain.Container{ID: "key-1", Name: "alpha", Secret: RandomSecret(t)}

	t.Run("protected", func(t *testing.T) {
		path := KeyFile(t, t.TempDir(), c, Ptr("hunter2"))
		raw := ReadFile(t, path)
		assert.True(t, cryptoService.IsEnvelope(raw))

		got, err := codec.Open(raw, &cryptoService.Protection{Password: "hunter2"})
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("unprotected", func(t *testing.T) {
		path := KeyFile(t, t.TempDir(), c, nil)
		raw := ReadFile(t, path)
		assert.False(t, cryptoService.IsEnvelope(raw))

		got, err := codec.Open(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})
}

func TestRandomSecret(t *testing.T) {
	a := RandomSecret(t)
	b := RandomSecret(t)
	assert.Len(t, a, cryptoDomain.KeySize)
	assert.NotEqual(t, a, b)
}

func TestPtr(t *testing.T) {
	p := Ptr("x")
	require.NotNil(t, p)
	assert.Equal(t, "x", *p)
}
