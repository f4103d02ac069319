package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type OnboardingStage string

const (
	StageCreated                   OnboardingStage = "created"
	StageIssuerRequested           OnboardingStage = "issuer_requested"
	StageWebhookConfigured         OnboardingStage = "webhook_configured"
	StageIssuerActivationRequested OnboardingStage = "issuer_activation_requested"
	StageCompleted                 OnboardingStage = "completed"
)

type OnboardingState struct {
	TenantID  string
	WalletID  string
	WalletKey string
	Stage     OnboardingStage
	PublicDID string
}

// IssuerTenant is the result of a completed onboarding. ID is the check-in
// id, not the tenant's internal id.
type IssuerTenant struct {
	ID        string `json:"id"`
	WalletID  string `json:"wallet_id"`
	WalletKey string `json:"wallet_key"`
	PublicDID string `json:"public_did"`
}

const (
	issuerWorkflowStateExpr = "workflow.workflow_state"
	issuerPublicDIDExpr     = "issuer.public_did"
	issuerWorkflowCompleted = "completed"
)

type checkInResponse struct {
	ID        string `json:"id"`
	WalletID  string `json:"wallet_id"`
	WalletKey string `json:"wallet_key"`
}

type webhookConfig struct {
	Acapy bool `json:"acapy"`
}

type webhookRequest struct {
	WebhookURL string        `json:"webhook_url"`
	Config     webhookConfig `json:"config"`
	WebhookKey string        `json:"webhook_key"`
	TenantID   string        `json:"tenant_id"`
}

// CreateIssuerTenant provisions a tenant and promotes it to issuer. It returns
// ok=false without an error when the issuer never reaches the completed
// workflow state within the polling budget. Nothing is rolled back when a
// later step fails.
func (c *Client) CreateIssuerTenant(ctx context.Context, name string) (IssuerTenant, bool, error) {
	startedAt := time.Now()
	name = strings.TrimSpace(name)
	if name == "" {
		return IssuerTenant{}, false, BadInputError("tenant name is required")
	}
	run := &onboardingRun{client: c, name: name}
	result, ok, err := run.execute(ctx)
	c.observeOnboarding(ctx, startedAt, ok, err)
	return result, ok, err
}

type onboardingRun struct {
	client   *Client
	name     string
	state    OnboardingState
	recordID string
}

func (r *onboardingRun) execute(ctx context.Context) (IssuerTenant, bool, error) {
	c := r.client

	if err := c.tokens.EnsureInnkeeperToken(ctx); err != nil {
		return IssuerTenant{}, false, err
	}

	checkIn := checkInResponse{}
	resp, err := c.innkeeperPost(ctx, "/v0/check-in", map[string]any{"name": r.name})
	if err != nil {
		return IssuerTenant{}, false, err
	}
	if err := resp.Decode(&checkIn); err != nil {
		return IssuerTenant{}, false, TransportError("POST", "/v0/check-in", resp.StatusCode, err)
	}
	r.state = OnboardingState{
		WalletID:  checkIn.WalletID,
		WalletKey: checkIn.WalletKey,
		Stage:     StageCreated,
	}
	r.start(ctx)

	resp, err = c.innkeeperPost(ctx, "/v0/issuers/"+url.PathEscape(checkIn.ID), map[string]any{})
	if err != nil {
		return r.fail(ctx, err)
	}
	c.logger.Debug("issuer promotion requested", "check_in_id", checkIn.ID, "response", string(resp.Body))
	r.advance(ctx, StageIssuerRequested)

	if err := c.tokens.EnsureTenantToken(ctx, checkIn.WalletID, checkIn.WalletKey); err != nil {
		return r.fail(ctx, err)
	}

	resp, err = c.tenantGet(ctx, "/v0/admin/tenant")
	if err != nil {
		return r.fail(ctx, err)
	}
	r.state.TenantID = resp.LookupString("id")

	_, err = c.tenantPost(ctx, "/v0/admin/webhook", webhookRequest{
		WebhookURL: c.webhookURL(r.state.TenantID),
		Config:     webhookConfig{Acapy: true},
		WebhookKey: c.config.Webhook.Key,
		TenantID:   r.state.TenantID,
	})
	if err != nil {
		return r.fail(ctx, err)
	}
	r.advance(ctx, StageWebhookConfigured)

	if _, err := c.tenantPost(ctx, "/v0/admin/issuer", nil); err != nil {
		return r.fail(ctx, err)
	}
	r.advance(ctx, StageIssuerActivationRequested)

	publicDID := ""
	outcome, err := Poll(ctx, c.sleeper, c.pollPolicy(), func(ctx context.Context, _ int) (bool, error) {
		resp, err := c.tenantGet(ctx, "/v0/admin/issuer")
		if err != nil {
			return false, err
		}
		if resp.LookupString(issuerWorkflowStateExpr) != issuerWorkflowCompleted {
			return false, nil
		}
		publicDID = resp.LookupString(issuerPublicDIDExpr)
		return true, nil
	})
	if err != nil {
		return r.fail(ctx, err)
	}
	if !outcome.Done {
		c.logger.Warn("issuer activation did not complete",
			"name", r.name,
			"tenant_id", r.state.TenantID,
			"attempts", outcome.Attempts,
			"last_error", errorString(outcome.LastErr),
		)
		r.recordFailure(ctx, "issuer activation timed out")
		return IssuerTenant{}, false, nil
	}

	r.state.PublicDID = publicDID
	r.advance(ctx, StageCompleted)
	return IssuerTenant{
		ID:        checkIn.ID,
		WalletID:  checkIn.WalletID,
		WalletKey: checkIn.WalletKey,
		PublicDID: publicDID,
	}, true, nil
}

func (r *onboardingRun) start(ctx context.Context) {
	c := r.client
	c.logger.Info("onboarding stage", "name", r.name, "stage", string(r.state.Stage))
	if c.recorder == nil {
		return
	}
	id, err := c.recorder.Start(ctx, r.name, r.redacted())
	if err != nil {
		c.logger.Error("onboarding ledger start failed", "name", r.name, "error", err.Error())
		return
	}
	r.recordID = id
}

func (r *onboardingRun) advance(ctx context.Context, stage OnboardingStage) {
	c := r.client
	r.state.Stage = stage
	c.logger.Info("onboarding stage",
		"name", r.name,
		"stage", string(stage),
		"tenant_id", r.state.TenantID,
	)
	if c.recorder == nil || r.recordID == "" {
		return
	}
	if err := c.recorder.Advance(ctx, r.recordID, r.redacted()); err != nil {
		c.logger.Error("onboarding ledger update failed", "name", r.name, "stage", string(stage), "error", err.Error())
	}
}

func (r *onboardingRun) fail(ctx context.Context, err error) (IssuerTenant, bool, error) {
	r.client.logger.Error("onboarding failed",
		"name", r.name,
		"stage", string(r.state.Stage),
		"error", err.Error(),
	)
	r.recordFailure(ctx, err.Error())
	return IssuerTenant{}, false, err
}

func (r *onboardingRun) recordFailure(ctx context.Context, reason string) {
	c := r.client
	if c.recorder == nil || r.recordID == "" {
		return
	}
	if err := c.recorder.Fail(ctx, r.recordID, r.redacted(), reason); err != nil {
		c.logger.Error("onboarding ledger update failed", "name", r.name, "error", err.Error())
	}
}

func (r *onboardingRun) redacted() OnboardingState {
	state := r.state
	state.WalletKey = ""
	return state
}

func (c *Client) webhookURL(tenantID string) string {
	return fmt.Sprintf("%s/%s/%s", c.config.Webhook.URL, c.config.Webhook.Route, tenantID)
}

func (c *Client) pollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    c.config.Polling.Interval,
		MaxAttempts: c.config.Polling.Attempts,
		DelayFirst:  true,
	}
}

func (c *Client) observeOnboarding(ctx context.Context, startedAt time.Time, ok bool, err error) {
	status := "completed"
	switch {
	case err != nil:
		status = "failed"
	case !ok:
		status = "timeout"
	}
	tags := map[string]string{"status": status}
	c.metrics.IncCounter(ctx, "agent.onboarding.total", 1, tags)
	c.metrics.ObserveHistogram(ctx, "agent.onboarding.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
}
