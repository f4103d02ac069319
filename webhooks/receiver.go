package webhooks

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-issuer-agent/core"
	glog "github.com/goliatone/go-logger/glog"
)

type Event struct {
	TenantID   string         `json:"tenant_id"`
	Topic      string         `json:"topic"`
	Payload    map[string]any `json:"payload"`
	ReceivedAt time.Time      `json:"received_at"`
}

type Handler interface {
	HandleEvent(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// KeyVerifier checks the shared webhook key the agent echoes in a header. An
// empty Key disables the check.
type KeyVerifier struct {
	Header string
	Key    string
}

func (v KeyVerifier) Verify(headers http.Header) error {
	expected := strings.TrimSpace(v.Key)
	if expected == "" {
		return nil
	}
	header := strings.TrimSpace(v.Header)
	if header == "" {
		header = core.HeaderAPIKey
	}
	actual := strings.TrimSpace(headers.Get(header))
	if actual == "" {
		return verificationError(header + " header is required")
	}
	if subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) != 1 {
		return verificationError("webhook key mismatch")
	}
	return nil
}

type Receiver struct {
	verifier KeyVerifier
	handler  Handler
	logger   core.Logger
	metrics  core.MetricsRecorder
	now      func() time.Time
}

type Option func(*Receiver)

func WithLogger(logger core.Logger) Option {
	return func(r *Receiver) {
		r.logger = logger
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(r *Receiver) {
		r.metrics = metrics
	}
}

func WithHeader(header string) Option {
	return func(r *Receiver) {
		r.verifier.Header = header
	}
}

// NewReceiver builds a receiver for the configured webhook key. A nil handler
// only logs and counts events.
func NewReceiver(key string, handler Handler, opts ...Option) *Receiver {
	r := &Receiver{
		verifier: KeyVerifier{Header: core.HeaderAPIKey, Key: key},
		handler:  handler,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = glog.Ensure(r.logger)
	if r.metrics == nil {
		r.metrics = core.NopMetricsRecorder{}
	}
	return r
}

func (r *Receiver) Receive(ctx context.Context, tenantID string, topic string, headers http.Header, body []byte) (Event, error) {
	tenantID = strings.TrimSpace(tenantID)
	topic = strings.TrimSpace(topic)
	if tenantID == "" {
		return Event{}, core.BadInputError("tenant id is required")
	}
	if topic == "" {
		return Event{}, core.BadInputError("webhook topic is required")
	}
	if err := r.verifier.Verify(headers); err != nil {
		r.metrics.IncCounter(ctx, "agent.webhooks.total", 1, map[string]string{"topic": topic, "status": "rejected"})
		r.logger.Warn("webhook rejected", "tenant_id", tenantID, "topic", topic, "error", err.Error())
		return Event{}, err
	}

	payload := map[string]any{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return Event{}, core.BadInputError("webhook body must be a JSON object")
		}
	}
	event := Event{
		TenantID:   tenantID,
		Topic:      topic,
		Payload:    payload,
		ReceivedAt: r.now(),
	}
	r.logger.Debug("webhook received", "tenant_id", tenantID, "topic", topic, "state", payload["state"])

	if r.handler != nil {
		if err := r.handler.HandleEvent(ctx, event); err != nil {
			r.metrics.IncCounter(ctx, "agent.webhooks.total", 1, map[string]string{"topic": topic, "status": "failed"})
			r.logger.Error("webhook handler failed", "tenant_id", tenantID, "topic", topic, "error", err.Error())
			return event, err
		}
	}
	r.metrics.IncCounter(ctx, "agent.webhooks.total", 1, map[string]string{"topic": topic, "status": "handled"})
	return event, nil
}

func verificationError(message string) error {
	return goerrors.New("webhooks: "+message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.AgentErrorAuthentication)
}
