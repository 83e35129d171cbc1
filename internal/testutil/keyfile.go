// Package testutil provides fixtures for tests that work with key files.
//
// Key files are written with the production codecs, so a fixture is exactly what
// the key use case would have produced, minus the recorded content digest:
//
//	path := testutil.KeyFile(t, t.TempDir(), cryptoDomain.Container{
//		ID:     "key-1",
//		Name:   "alpha",
//		Secret: testutil.RandomSecret(t),
//	}, testutil.Ptr("hunter2"))
package testutil

import (
	"crypto/rand"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	cryptoService "github.com/allisson/keymanager/internal/crypto/service"
)

// Ptr returns a pointer to s, for optional password arguments.
func Ptr(s string) *string {
	return &s
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// RandomSecret returns KeySize random bytes.
func RandomSecret(t *testing.T) []byte {
	t.Helper()
	secret := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return secret
}

// WriteFile writes data to path with owner-only permissions.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// KeyFile seals c into dir/<id>.key, protected with the legacy derivation when
// password is non-nil, and returns the path.
func KeyFile(t *testing.T, dir string, c cryptoDomain.Container, password *string) string {
	t.Helper()

	var protection *cryptoService.Protection
	if password != nil {
		protection = &cryptoService.Protection{Password: *password, KDF: cryptoDomain.KDFLegacy}
	}

	raw, err := cryptoService.NewZipContainer(cryptoService.NewAESCBCEnvelope()).Seal(c, protection)
	require.NoError(t, err)

	path := filepath.Join(dir, c.ID+".key")
	WriteFile(t, path, raw)
	return path
}
