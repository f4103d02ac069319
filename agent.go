package agent

import (
	"context"

	"github.com/goliatone/go-issuer-agent/auth"
	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/transport"
)

type Config = core.Config

type Option = core.Option

type Client = core.Client

type Registry = core.Registry

type RawConfigLoader = core.RawConfigLoader

type BackendMode = core.BackendMode

type IssuerTenant = core.IssuerTenant
type TransactionRecord = core.TransactionRecord
type OnboardingState = core.OnboardingState
type OnboardingRecord = core.OnboardingRecord
type OnboardingRecorder = core.OnboardingRecorder

const (
	ModeDirectAgent   = core.ModeDirectAgent
	ModeManagedTenant = core.ModeManagedTenant
)

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorMapper        = core.WithErrorMapper
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithTransport          = core.WithTransport
	WithTokenIssuer        = core.WithTokenIssuer
	WithSleeper            = core.WithSleeper
	WithOnboardingRecorder = core.WithOnboardingRecorder
	WithBackend            = core.WithBackend
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// StaticConfig wraps an already nested map as a configuration source.
func StaticConfig(values map[string]any) RawConfigLoader {
	return core.StaticConfig(values)
}

// DefaultOptions wires the REST transport and the password-grant token
// issuer. Options passed by callers are applied after these and win.
func DefaultOptions() []Option {
	return []Option{
		core.WithTransport(transport.NewRESTAdapter(nil)),
		core.WithTokenIssuer(auth.NewPasswordGrantStrategy()),
	}
}

// NewClient assembles a client without waiting for the backend.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	return core.NewClient(ctx, cfg, withDefaults(opts)...)
}

// Connect assembles a client and blocks until the backend is ready.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	return core.Connect(ctx, cfg, withDefaults(opts)...)
}

func NewRegistry(runtime Config, opts ...Option) *Registry {
	return core.NewRegistry(runtime, withDefaults(opts)...)
}

func withDefaults(opts []Option) []Option {
	return append(DefaultOptions(), opts...)
}
