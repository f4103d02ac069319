package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// Client talks to the configured identity agent backend. It owns the backend
// strategy and both bearer token slots.
type Client struct {
	config    Config
	backend   BackendStrategy
	transport Transport
	tokens    *TokenCache
	readiness *ReadinessProber
	sleeper   Sleeper
	logger    Logger
	metrics   MetricsRecorder
	recorder  OnboardingRecorder
}

// NewClient resolves configuration and assembles a client without contacting
// the backend. Use Connect to also wait for readiness.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("agent", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("agent"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.sleeper == nil {
		builder.sleeper = TimerSleeper{}
	}
	if builder.transport == nil {
		return nil, ConfigurationError("transport is required", nil)
	}
	if builder.tokenIssuer == nil {
		return nil, ConfigurationError("token issuer is required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(ctx, defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, ConfigurationError("resolve config", err))
	}

	backend := builder.backend
	if backend == nil {
		backend = ResolveBackend(finalConfig)
	}

	client := &Client{
		config:    finalConfig,
		backend:   backend,
		transport: builder.transport,
		sleeper:   builder.sleeper,
		logger:    logger,
		metrics:   builder.metricsRecorder,
		recorder:  builder.recorder,
	}
	client.tokens = NewTokenCache(
		backend,
		builder.transport,
		builder.tokenIssuer,
		finalConfig.Managed.InnkeeperUser,
		finalConfig.Managed.InnkeeperPassword,
		logger,
	)
	client.readiness = NewReadinessProber(
		backend,
		builder.transport,
		builder.sleeper,
		finalConfig.Readiness.Interval,
		finalConfig.Transport.Timeout,
		logger,
	)
	return client, nil
}

// Connect builds a client and blocks until the backend reports ready or ctx
// is done.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	client, err := NewClient(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.WaitUntilReady(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) Config() Config {
	return c.config
}

func (c *Client) Mode() BackendMode {
	return c.backend.Mode()
}

func (c *Client) IsManagedBackend() bool {
	return c.backend.Mode() == ModeManagedTenant
}

func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

func (c *Client) IsReady(ctx context.Context) bool {
	return c.readiness.IsReady(ctx)
}

func (c *Client) WaitUntilReady(ctx context.Context) error {
	return c.readiness.WaitUntilReady(ctx)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}
