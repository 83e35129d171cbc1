// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/allisson/keymanager/internal/config"
	cryptoRepository "github.com/allisson/keymanager/internal/crypto/repository"
	cryptoService "github.com/allisson/keymanager/internal/crypto/service"
	cryptoUseCase "github.com/allisson/keymanager/internal/crypto/usecase"
	apperrors "github.com/allisson/keymanager/internal/errors"
	"github.com/allisson/keymanager/internal/http"
	"github.com/allisson/keymanager/internal/metrics"
	"github.com/allisson/keymanager/internal/registry"
	"github.com/allisson/keymanager/internal/watchdog"
)

// keyFilePerm is used for key containers and for files produced by encryption.
const keyFilePerm = 0o600

// Container holds all application dependencies and provides methods to access them.
// Components are created lazily on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	clock           clockwork.Clock
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Services
	envelopeCodec  cryptoService.EnvelopeCodec
	containerCodec cryptoService.ContainerCodec

	// Repositories
	fileRepository   *cryptoRepository.FileRepository
	digestRepository *cryptoRepository.DigestRepository

	// Use cases
	keyUseCase  cryptoUseCase.KeyUseCase
	fileUseCase cryptoUseCase.FileUseCase

	// Agent
	registry   *registry.Registry
	watchdog   *watchdog.Watchdog
	httpServer *http.Server

	mu         sync.Mutex
	initErrors map[string]error

	loggerInit           sync.Once
	clockInit            sync.Once
	metricsProviderInit  sync.Once
	businessMetricsInit  sync.Once
	envelopeCodecInit    sync.Once
	containerCodecInit   sync.Once
	fileRepositoryInit   sync.Once
	digestRepositoryInit sync.Once
	keyUseCaseInit       sync.Once
	fileUseCaseInit      sync.Once
	registryInit         sync.Once
	watchdogInit         sync.Once
	httpServerInit       sync.Once
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// Clock returns the clock shared by keys and the watchdog.
func (c *Container) Clock() clockwork.Clock {
	c.clockInit.Do(func() {
		if c.clock == nil {
			c.clock = clockwork.NewRealClock()
		}
	})
	return c.clock
}

// SetClock replaces the clock. It must be called before any component using the
// clock is created.
func (c *Container) SetClock(clock clockwork.Clock) {
	c.clock = clock
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.storeInitError("metricsProvider", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("metricsProvider"); storedErr != nil {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics
// are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.storeInitError("businessMetrics", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("businessMetrics"); storedErr != nil {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// EnvelopeCodec returns the envelope codec.
func (c *Container) EnvelopeCodec() cryptoService.EnvelopeCodec {
	c.envelopeCodecInit.Do(func() {
		c.envelopeCodec = cryptoService.NewAESCBCEnvelope()
	})
	return c.envelopeCodec
}

// ContainerCodec returns the key container codec.
func (c *Container) ContainerCodec() cryptoService.ContainerCodec {
	c.containerCodecInit.Do(func() {
		c.containerCodec = cryptoService.NewZipContainer(c.EnvelopeCodec())
	})
	return c.containerCodec
}

// FileRepository returns the file repository.
func (c *Container) FileRepository() *cryptoRepository.FileRepository {
	c.fileRepositoryInit.Do(func() {
		c.fileRepository = cryptoRepository.NewFileRepository(keyFilePerm)
	})
	return c.fileRepository
}

// DigestRepository returns the content digest repository rooted at the data directory.
func (c *Container) DigestRepository() *cryptoRepository.DigestRepository {
	c.digestRepositoryInit.Do(func() {
		c.digestRepository = cryptoRepository.NewDigestRepository(c.config.DataDir)
	})
	return c.digestRepository
}

// KeyUseCase returns the key use case.
func (c *Container) KeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
		if err != nil {
			c.storeInitError("keyUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("keyUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// FileUseCase returns the file use case.
func (c *Container) FileUseCase() (cryptoUseCase.FileUseCase, error) {
	var err error
	c.fileUseCaseInit.Do(func() {
		c.fileUseCase, err = c.initFileUseCase()
		if err != nil {
			c.storeInitError("fileUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("fileUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.fileUseCase, nil
}

// Registry returns the registry of loaded keys.
func (c *Container) Registry() *registry.Registry {
	c.registryInit.Do(func() {
		c.registry = registry.New()
	})
	return c.registry
}

// Watchdog returns the idle watchdog over the registry.
func (c *Container) Watchdog() (*watchdog.Watchdog, error) {
	var err error
	c.watchdogInit.Do(func() {
		c.watchdog, err = c.initWatchdog()
		if err != nil {
			c.storeInitError("watchdog", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("watchdog"); storedErr != nil {
		return nil, storedErr
	}
	return c.watchdog, nil
}

// HTTPServer returns the agent's status server.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.storeInitError("httpServer", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("httpServer"); storedErr != nil {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Discard every secret still held in memory.
	if c.registry != nil {
		for _, key := range c.registry.Keys() {
			key.Expire()
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	return apperrors.Join(shutdownErrors...)
}

func (c *Container) storeInitError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

func (c *Container) initError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// initLogger creates and configures a structured logger based on the log level and format.
// Logs go to stderr so command output on stdout stays clean.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if c.config.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// initMetricsProvider creates the provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the recorder on top of the metrics provider.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initKeyUseCase creates the key use case, instrumented when metrics are enabled.
func (c *Container) initKeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	useCase := cryptoUseCase.NewKeyUseCase(
		c.FileRepository(),
		c.DigestRepository(),
		c.ContainerCodec(),
		c.config.ContainerKDF,
		c.Clock(),
		c.Logger(),
	)

	if !c.config.MetricsEnabled {
		return useCase, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
	}
	return cryptoUseCase.NewKeyUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initFileUseCase creates the file use case, instrumented when metrics are enabled.
func (c *Container) initFileUseCase() (cryptoUseCase.FileUseCase, error) {
	useCase := cryptoUseCase.NewFileUseCase(c.FileRepository(), c.EnvelopeCodec(), c.Logger())

	if !c.config.MetricsEnabled {
		return useCase, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for file use case: %w", err)
	}
	return cryptoUseCase.NewFileUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initWatchdog creates the watchdog and, when metrics are enabled, the loaded keys gauge.
func (c *Container) initWatchdog() (*watchdog.Watchdog, error) {
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for watchdog: %w", err)
	}

	reg := c.Registry()
	wd := watchdog.New(reg, c.config.KeyIdleTimeout,
		watchdog.WithClock(c.Clock()),
		watchdog.WithInterval(c.config.WatchdogInterval),
		watchdog.WithLogger(c.Logger()),
		watchdog.WithMetrics(businessMetrics),
	)

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for watchdog: %w", err)
	}
	if provider != nil {
		err := metrics.RegisterKeyGauge(provider.MeterProvider(), c.config.MetricsNamespace, func() metrics.KeyCounts {
			return countKeys(reg)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register loaded keys gauge: %w", err)
		}
	}

	return wd, nil
}

// initHTTPServer creates the status server over the registry.
func (c *Container) initHTTPServer() (*http.Server, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	var opts []http.Option
	if c.config.CORSEnabled {
		opts = append(opts, http.WithCORS(c.config.CORSAllowOrigins))
	}
	if c.config.RateLimitEnabled {
		opts = append(opts, http.WithRateLimit(c.config.RateLimitRequestsPerSec, c.config.RateLimitBurst))
	}

	server := http.NewServer(
		c.config.MetricsAddr(),
		c.Logger(),
		c.Registry(),
		provider,
		c.config.MetricsNamespace,
		func() bool { return c.Registry().Current() != nil },
		opts...,
	)
	return server, nil
}

func countKeys(reg *registry.Registry) metrics.KeyCounts {
	var counts metrics.KeyCounts
	for _, key := range reg.Keys() {
		if key.IsTimedOut() {
			counts.TimedOut++
			continue
		}
		counts.Active++
	}
	return counts
}
