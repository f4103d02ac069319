package core_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/devkit"
)

func TestRegistry_RequiresSourceOnFirstCall(t *testing.T) {
	registry := core.NewRegistry(core.Config{})
	_, err := registry.Client(context.Background(), nil)
	if !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, ok := registry.Current(); ok {
		t.Fatalf("expected no client")
	}
}

func TestRegistry_FirstSourceWins(t *testing.T) {
	fake := devkit.NewFakeTransport()
	fake.On(http.MethodGet, "http://acapy:8031/status/ready",
		devkit.Status(http.StatusServiceUnavailable),
		devkit.Status(http.StatusOK),
	)
	registry := core.NewRegistry(core.Config{},
		core.WithTransport(fake),
		core.WithTokenIssuer(devkit.NewStaticTokenIssuer(nil)),
		core.WithSleeper(&devkit.RecordingSleeper{}),
	)

	first, err := registry.Client(context.Background(), core.StaticConfig(map[string]any{
		"agent": map[string]any{"mode": "ACAPY", "admin_url": "http://acapy:8031", "admin_api_key": "k"},
	}))
	if err != nil {
		t.Fatalf("first client: %v", err)
	}
	second, err := registry.Client(context.Background(), core.StaticConfig(map[string]any{
		"agent": map[string]any{"mode": "TRACTION"},
	}))
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same client instance")
	}
	if second.IsManagedBackend() {
		t.Fatalf("expected later source to be ignored")
	}
	third, err := registry.Client(context.Background(), nil)
	if err != nil || third != first {
		t.Fatalf("expected existing instance without a source, got %v", err)
	}
	if probes := fake.Calls(http.MethodGet, "http://acapy:8031/status/ready"); probes != 2 {
		t.Fatalf("expected readiness wait on first construction only, got %d probes", probes)
	}
}

func TestRegistry_ConcurrentFirstCallersShareOneClient(t *testing.T) {
	fake := devkit.NewFakeTransport()
	fake.On(http.MethodGet, "http://acapy:8031/status/ready", devkit.Status(http.StatusOK))
	registry := core.NewRegistry(core.Config{},
		core.WithTransport(fake),
		core.WithTokenIssuer(devkit.NewStaticTokenIssuer(nil)),
		core.WithSleeper(&devkit.RecordingSleeper{}),
	)
	source := core.StaticConfig(map[string]any{"agent": map[string]any{"admin_url": "http://acapy:8031"}})

	var wg sync.WaitGroup
	clients := make([]*core.Client, 8)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := registry.Client(context.Background(), source)
			if err != nil {
				t.Errorf("client: %v", err)
				return
			}
			clients[i] = client
		}(i)
	}
	wg.Wait()
	for _, client := range clients {
		if client != clients[0] {
			t.Fatalf("expected one shared client")
		}
	}
	if probes := fake.Calls(http.MethodGet, "http://acapy:8031/status/ready"); probes != 1 {
		t.Fatalf("expected a single readiness probe, got %d", probes)
	}
}

func TestRegistry_RetriesWithFirstSourceAfterFailedConstruction(t *testing.T) {
	fake := devkit.NewFakeTransport()
	fake.On(http.MethodGet, "http://acapy:8031/status/ready", devkit.Status(http.StatusOK))
	registry := core.NewRegistry(core.Config{},
		core.WithTransport(fake),
		core.WithTokenIssuer(devkit.NewStaticTokenIssuer(nil)),
		core.WithSleeper(&devkit.RecordingSleeper{}),
	)
	source := core.StaticConfig(map[string]any{
		"agent": map[string]any{"admin_url": "http://acapy:8031", "admin_api_key": "k"},
	})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := registry.Client(cancelled, source); err == nil {
		t.Fatalf("expected construction to fail on a cancelled context")
	}
	if _, ok := registry.Current(); ok {
		t.Fatalf("expected no client after failed construction")
	}

	client, err := registry.Client(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected retry with the first source, got %v", err)
	}
	if client.Config().Agent.AdminURL != "http://acapy:8031" {
		t.Fatalf("expected first source config, got %q", client.Config().Agent.AdminURL)
	}
}
