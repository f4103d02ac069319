package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gocmd "github.com/goliatone/go-command"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	agent "github.com/goliatone/go-issuer-agent"
	"github.com/goliatone/go-issuer-agent/adapters/gocommand"
	"github.com/goliatone/go-issuer-agent/httpapi"
	"github.com/goliatone/go-issuer-agent/webhooks"
)

var flagConfig = &cli.StringFlag{
	Name:    "config",
	Value:   "agent.yaml",
	Usage:   "Path to an optional YAML config file",
	EnvVars: []string{"AGENT_CONFIG"},
}

var flagEnvFile = &cli.StringFlag{
	Name:  "env-file",
	Value: ".env",
	Usage: "Dotenv file loaded before reading the environment",
}

var flagEnv = &cli.StringFlag{
	Name:    "env",
	Value:   "dev",
	Usage:   "Logger profile: dev or prod",
	EnvVars: []string{"AGENT_ENV"},
}

var flagDebugSQL = &cli.BoolFlag{
	Name:  "debug-sql",
	Usage: "Log SQL statements issued by the onboarding ledger",
}

var flagName = &cli.StringFlag{
	Name:     "name",
	Usage:    "Issuer tenant name",
	Required: true,
}

var flagTransactionID = &cli.StringFlag{
	Name:     "id",
	Usage:    "Transaction id to wait for",
	Required: true,
}

var flagWait = &cli.BoolFlag{
	Name:  "wait",
	Usage: "Block until the backend reports ready",
}

func main() {
	app := &cli.App{
		Name:  "agentctl",
		Usage: "operate an issuer against a direct or managed identity agent",
		Flags: []cli.Flag{
			flagConfig,
			flagEnvFile,
			flagEnv,
			flagDebugSQL,
		},
		DefaultCommand: "ready",
		Commands: []*cli.Command{
			{
				Name:   "ready",
				Usage:  "Probe the configured backend once, or wait with --wait",
				Flags:  []cli.Flag{flagWait},
				Action: runReady,
			},
			{
				Name:   "onboard",
				Usage:  "Provision an issuer tenant end to end",
				Flags:  []cli.Flag{flagName},
				Action: runOnboard,
			},
			{
				Name:   "wait-tx",
				Usage:  "Poll a transaction until it is acked or the budget runs out",
				Flags:  []cli.Flag{flagTransactionID},
				Action: runWaitTransaction,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API, inbound webhooks and /metrics",
				Action: runServe,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runReady(cCtx *cli.Context) error {
	rt, err := newRuntime(cCtx)
	if err != nil {
		return err
	}
	defer rt.close()

	var (
		client *agent.Client
		ready  bool
	)
	if cCtx.Bool(flagWait.Name) {
		client, err = rt.client(cCtx.Context)
		ready = err == nil
	} else {
		client, err = rt.probeClient(cCtx.Context)
		ready = err == nil && client.IsReady(cCtx.Context)
	}
	if err != nil {
		return err
	}
	if err := printJSON(map[string]any{
		"mode":    client.Mode(),
		"managed": client.IsManagedBackend(),
		"ready":   ready,
	}); err != nil {
		return err
	}
	if !ready {
		return cli.Exit("backend is not ready", 2)
	}
	return nil
}

func runOnboard(cCtx *cli.Context) error {
	rt, err := newRuntime(cCtx)
	if err != nil {
		return err
	}
	defer rt.close()

	bindings, err := mountBus(cCtx.Context, rt)
	if err != nil {
		return err
	}
	defer bindings.Unsubscribe()

	result, err := gocommand.OnboardIssuer(cCtx.Context, cCtx.String(flagName.Name))
	if err != nil {
		return err
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Completed {
		return cli.Exit("issuer activation did not complete in time", 3)
	}
	return nil
}

func runWaitTransaction(cCtx *cli.Context) error {
	rt, err := newRuntime(cCtx)
	if err != nil {
		return err
	}
	defer rt.close()

	bindings, err := mountBus(cCtx.Context, rt)
	if err != nil {
		return err
	}
	defer bindings.Unsubscribe()

	result, err := gocommand.WaitTransaction(cCtx.Context, cCtx.String(flagTransactionID.Name))
	if err != nil {
		return err
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Acked {
		return cli.Exit("transaction was not acked in time", 3)
	}
	return nil
}

func runServe(cCtx *cli.Context) error {
	rt, err := newRuntime(cCtx)
	if err != nil {
		return err
	}
	defer rt.close()
	client, err := rt.client(cCtx.Context)
	if err != nil {
		return err
	}

	var facadeOpts []agent.FacadeOption
	serverOpts := []httpapi.Option{
		httpapi.WithLogger(rt.provider.GetLogger("httpapi")),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(rt.promReg, promhttp.HandlerOpts{})),
	}
	if rt.ledger != nil {
		facadeOpts = append(facadeOpts, agent.WithOnboardingReader(rt.ledger))
		serverOpts = append(serverOpts, httpapi.WithDB(rt.db.DB()))
	}
	facade, err := agent.NewFacade(client, facadeOpts...)
	if err != nil {
		return err
	}

	webhookLogger := rt.provider.GetLogger("webhooks")
	receiver := webhooks.NewReceiver(rt.cfg.Webhook.Key,
		webhooks.HandlerFunc(func(_ context.Context, event webhooks.Event) error {
			webhookLogger.Info("agent event", "tenant_id", event.TenantID, "topic", event.Topic)
			return nil
		}),
		webhooks.WithLogger(webhookLogger),
		webhooks.WithMetricsRecorder(rt.metrics),
	)
	serverOpts = append(serverOpts, httpapi.WithWebhooks(rt.cfg.Webhook.Route, receiver))

	server := httpapi.NewServer(facade, serverOpts...)
	return httpapi.ListenAndServe(cCtx.Context, rt.cfg.HTTP.Addr, server, rt.logger)
}

func mountBus(ctx context.Context, rt *runtime) (*gocommand.Bindings, error) {
	client, err := rt.client(ctx)
	if err != nil {
		return nil, err
	}
	adapter := gocommand.NewRegistryAdapter(gocmd.NewRegistry())
	handlers := gocommand.Handlers{
		Onboarder: client,
		Waiter:    client,
		Status:    client,
	}
	if rt.ledger != nil {
		handlers.Ledger = rt.ledger
	}
	bindings, err := adapter.Mount(handlers)
	if err != nil {
		return nil, err
	}
	if err := adapter.Initialize(); err != nil {
		bindings.Unsubscribe()
		return nil, err
	}
	return bindings, nil
}

func printJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
