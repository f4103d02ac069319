package core

import (
	"context"
	"sync"
)

// Registry constructs one Client per process and hands it to dependents. The
// first call must carry a configuration source; later sources are ignored.
// The first source is kept, so a failed construction is retried with it.
// Construction is serialized, so concurrent first callers share one readiness
// wait.
type Registry struct {
	mu      sync.Mutex
	client  *Client
	source  RawConfigLoader
	runtime Config
	opts    []Option
}

func NewRegistry(runtime Config, opts ...Option) *Registry {
	return &Registry{
		runtime: runtime,
		opts:    append([]Option(nil), opts...),
	}
}

func (r *Registry) Client(ctx context.Context, source RawConfigLoader) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}
	if r.source == nil {
		r.source = source
	}
	if r.source == nil {
		return nil, ConfigurationError("agent client requested before it was configured", nil)
	}

	opts := append(append([]Option(nil), r.opts...), WithConfigProvider(NewCfgxConfigProvider(r.source)))
	client, err := Connect(ctx, r.runtime, opts...)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

// Current returns the client if one has been constructed.
func (r *Registry) Current() (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client, r.client != nil
}
