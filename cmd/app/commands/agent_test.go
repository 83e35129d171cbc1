package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/keymanager/internal/app"
	"github.com/allisson/keymanager/internal/config"
	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/registry"
)

func agentConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:         "error",
		LogFormat:        "text",
		KeyIdleTimeout:   time.Minute,
		WatchdogInterval: 10 * time.Millisecond,
		DataDir:          t.TempDir(),
		ContainerKDF:     cryptoDomain.KDFLegacy,
		MetricsEnabled:   true,
		MetricsNamespace: "keymanager_agent_test",
		MetricsHost:      "127.0.0.1",
		MetricsPort:      0,
		ShutdownTimeout:  time.Second,
	}
}

// createKeyFile writes a key through a separate container so the agent starts
// with an empty registry.
func createKeyFile(t *testing.T, cfg *config.Config, name string, password *string) (string, string) {
	t.Helper()
	container := app.NewContainer(cfg)
	keys, err := container.KeyUseCase()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), name+".key")
	key, err := keys.Create(context.Background(), name, path, password)
	require.NoError(t, err)
	require.NoError(t, container.Shutdown(context.Background()))
	return path, key.ID()
}

func TestRunAgent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := agentConfig(t)
	password := "hunter2"
	first, firstID := createKeyFile(t, cfg, "alpha", &password)
	second, _ := createKeyFile(t, cfg, "beta", nil)

	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	prompter, _ := newTestPrompter("hunter2\n")

	errCh := make(chan error, 1)
	go func() {
		errCh <- RunAgent(ctx, container, prompter, []string{first, second})
	}()

	reg := container.Registry()
	require.Eventually(t, func() bool {
		current := reg.Current()
		return current != nil && current.ID() == firstID
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, reg.Len())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}

	wd, err := container.Watchdog()
	require.NoError(t, err)
	select {
	case <-wd.Done():
	default:
		t.Fatal("watchdog still running")
	}
}

func TestRunAgent_Errors(t *testing.T) {
	t.Run("no-keys", func(t *testing.T) {
		container := app.NewContainer(agentConfig(t))
		err := RunAgent(context.Background(), container, nil, nil)
		require.Error(t, err)
	})

	t.Run("wrong-password", func(t *testing.T) {
		cfg := agentConfig(t)
		password := "hunter2"
		path, _ := createKeyFile(t, cfg, "alpha", &password)

		container := app.NewContainer(cfg)
		defer func() { _ = container.Shutdown(context.Background()) }()

		prompter, _ := newTestPrompter("wrong\n")
		err := RunAgent(context.Background(), container, prompter, []string{path})
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidPassword)
		assert.Equal(t, 0, container.Registry().Len())
	})

	t.Run("same-key-twice", func(t *testing.T) {
		cfg := agentConfig(t)
		path, _ := createKeyFile(t, cfg, "alpha", nil)

		container := app.NewContainer(cfg)
		defer func() { _ = container.Shutdown(context.Background()) }()

		err := RunAgent(context.Background(), container, nil, []string{path, path})
		assert.ErrorIs(t, err, registry.ErrKeyAlreadyLoaded)
		assert.Equal(t, 1, container.Registry().Len())
	})
}
