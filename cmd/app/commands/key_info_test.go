package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	cryptoService "github.com/allisson/keymanager/internal/crypto/service"
	cryptoMocks "github.com/allisson/keymanager/internal/crypto/usecase/mocks"
)

func TestRunKeyInfo(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	digest, err := cryptoService.ContentDigest([]byte("container"))
	require.NoError(t, err)

	newKey := func() *cryptoDomain.Key {
		return cryptoDomain.RestoreKey("0123", "alpha", []byte("secret"),
			cryptoDomain.WithPath("/keys/alpha.key"),
			cryptoDomain.WithContentDigest(digest),
		)
	}

	t.Run("protected-text", func(t *testing.T) {
		key := newKey()
		mockUseCase := &cryptoMocks.MockKeyUseCase{}
		mockUseCase.On("NeedPassword", ctx, "/keys/alpha.key").Return(true, nil)
		mockUseCase.On("Load", ctx, "/keys/alpha.key", passwordIs("hunter2")).Return(key, nil)
		mockUseCase.On("IsModified", ctx, key).Return(true, true, nil)

		prompter, _ := newTestPrompter("hunter2\n")
		var out bytes.Buffer

		require.NoError(t, RunKeyInfo(ctx, mockUseCase, logger, prompter, &out, "/keys/alpha.key", "text"))
		assert.Contains(t, out.String(), "ID: 0123")
		assert.Contains(t, out.String(), "Protected: true")
		assert.Contains(t, out.String(), "Modified: true")
		assert.Contains(t, out.String(), multihash.Multihash(digest).B58String())
		assert.NotContains(t, out.String(), "secret")
		assert.True(t, key.IsTimedOut())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("unknown-modification-json", func(t *testing.T) {
		key := newKey()
		mockUseCase := &cryptoMocks.MockKeyUseCase{}
		mockUseCase.On("NeedPassword", ctx, "/keys/alpha.key").Return(false, nil)
		mockUseCase.On("Load", ctx, "/keys/alpha.key", noPassword()).Return(key, nil)
		mockUseCase.On("IsModified", ctx, key).Return(false, false, nil)

		var out bytes.Buffer
		require.NoError(t, RunKeyInfo(ctx, mockUseCase, logger, nil, &out, "/keys/alpha.key", "json"))

		var info KeyInfo
		require.NoError(t, json.Unmarshal(out.Bytes(), &info))
		assert.Equal(t, "alpha", info.Name)
		assert.False(t, info.Protected)
		assert.Nil(t, info.Modified)
	})

	t.Run("digest-lookup-failure-is-not-fatal", func(t *testing.T) {
		key := newKey()
		mockUseCase := &cryptoMocks.MockKeyUseCase{}
		mockUseCase.On("NeedPassword", ctx, "/keys/alpha.key").Return(false, nil)
		mockUseCase.On("Load", ctx, "/keys/alpha.key", noPassword()).Return(key, nil)
		mockUseCase.On("IsModified", ctx, key).Return(false, false, errors.New("disk"))

		var out bytes.Buffer
		require.NoError(t, RunKeyInfo(ctx, mockUseCase, logger, nil, &out, "/keys/alpha.key", "text"))
		assert.Contains(t, out.String(), "Modified: unknown")
	})

	t.Run("wrong-password", func(t *testing.T) {
		mockUseCase := &cryptoMocks.MockKeyUseCase{}
		mockUseCase.On("NeedPassword", ctx, "/keys/alpha.key").Return(true, nil)
		mockUseCase.On("Load", ctx, "/keys/alpha.key", passwordIs("wrong")).
			Return(nil, cryptoDomain.ErrInvalidPassword)

		prompter, _ := newTestPrompter("wrong\n")
		err := RunKeyInfo(ctx, mockUseCase, logger, prompter, &bytes.Buffer{}, "/keys/alpha.key", "text")
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidPassword)
	})
}
