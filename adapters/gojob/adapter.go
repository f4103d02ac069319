package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	agentcmd "github.com/goliatone/go-issuer-agent/command"
	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/query"
	glog "github.com/goliatone/go-logger/glog"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDOnboardIssuer   = "agent.issuer.onboard"
	JobIDWaitTransaction = "agent.transaction.wait"

	paramName          = "name"
	paramTransactionID = "transaction_id"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		BaseDelay:       5 * time.Second,
		MaxDelay:        time.Minute,
		DeadLetterOnMax: true,
	}
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// backoff doubles BaseDelay per attempt; NormalizeAttempt caps it.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 1 {
		return p.BaseDelay
	}
	delay := p.BaseDelay
	for i := 1; i < attempt && (p.MaxDelay <= 0 || delay < p.MaxDelay); i++ {
		delay *= 2
	}
	return delay
}

func OnboardIssuerMessage(name string) *job.ExecutionMessage {
	name = strings.TrimSpace(name)
	return &job.ExecutionMessage{
		JobID:          JobIDOnboardIssuer,
		ScriptPath:     JobIDOnboardIssuer,
		Parameters:     map[string]any{paramName: name},
		IdempotencyKey: JobIDOnboardIssuer + ":" + strings.ToLower(name),
	}
}

func WaitTransactionMessage(transactionID string) *job.ExecutionMessage {
	transactionID = strings.TrimSpace(transactionID)
	return &job.ExecutionMessage{
		JobID:          JobIDWaitTransaction,
		ScriptPath:     JobIDWaitTransaction,
		Parameters:     map[string]any{paramTransactionID: transactionID},
		IdempotencyKey: JobIDWaitTransaction + ":" + transactionID,
	}
}

type Enqueuer struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuer(enqueuer queue.Enqueuer) *Enqueuer {
	return &Enqueuer{enqueuer: enqueuer}
}

func (e *Enqueuer) EnqueueOnboarding(ctx context.Context, name string) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return core.BadInputError("tenant name is required")
	}
	return e.enqueuer.Enqueue(ctx, OnboardIssuerMessage(name))
}

func (e *Enqueuer) EnqueueTransactionWait(ctx context.Context, transactionID string) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(transactionID) == "" {
		return core.BadInputError("transaction id is required")
	}
	return e.enqueuer.Enqueue(ctx, WaitTransactionMessage(transactionID))
}

// Processor runs queued agent jobs against a client and settles the delivery.
// Unacked transactions and transport failures are requeued with backoff. An
// onboarding run that provisioned a tenant but did not see activation finish
// is dead-lettered, as are bad input, configuration and authentication
// failures.
type Processor struct {
	onboarder agentcmd.IssuerOnboarder
	waiter    query.TransactionWaiter
	policy    RetryPolicy
	logger    core.Logger
}

type ProcessorOption func(*Processor)

func WithRetryPolicy(policy RetryPolicy) ProcessorOption {
	return func(p *Processor) {
		p.policy = policy
	}
}

func WithLogger(logger core.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

func NewProcessor(onboarder agentcmd.IssuerOnboarder, waiter query.TransactionWaiter, opts ...ProcessorOption) *Processor {
	p := &Processor{
		onboarder: onboarder,
		waiter:    waiter,
		policy:    DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.logger = glog.Ensure(p.logger)
	return p
}

// Process handles one delivery. attempt starts at 1.
func (p *Processor) Process(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if p == nil {
		return fmt.Errorf("gojob: processor is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	if msg == nil {
		return delivery.Nack(ctx, p.policy.NormalizeAttempt(queue.NackOptions{
			DeadLetter: true,
			Reason:     "missing execution message",
		}, attempt))
	}

	done, err := p.run(ctx, msg)
	switch {
	case err == nil && done:
		p.logger.Info("agent job completed", "job_id", msg.JobID, "attempt", attempt)
		return delivery.Ack(ctx)
	case err == nil && strings.TrimSpace(msg.JobID) == JobIDOnboardIssuer:
		// The tenant already exists; a rerun would check in a second one.
		p.logger.Error("issuer activation incomplete, not retrying", "job_id", msg.JobID, "attempt", attempt)
		return delivery.Nack(ctx, p.policy.NormalizeAttempt(queue.NackOptions{
			DeadLetter: true,
			Reason:     "issuer activation did not complete; tenant already provisioned",
		}, attempt))
	case err == nil:
		p.logger.Warn("agent job incomplete, requeueing", "job_id", msg.JobID, "attempt", attempt)
		return delivery.Nack(ctx, p.policy.NormalizeAttempt(queue.NackOptions{
			Delay:   p.policy.backoff(attempt),
			Requeue: true,
			Reason:  "polling budget exhausted",
		}, attempt))
	case core.IsTransportError(err):
		p.logger.Warn("agent job failed, requeueing", "job_id", msg.JobID, "attempt", attempt, "error", err.Error())
		return delivery.Nack(ctx, p.policy.NormalizeAttempt(queue.NackOptions{
			Delay:   p.policy.backoff(attempt),
			Requeue: true,
			Reason:  err.Error(),
		}, attempt))
	default:
		p.logger.Error("agent job failed permanently", "job_id", msg.JobID, "attempt", attempt, "error", err.Error())
		return delivery.Nack(ctx, p.policy.NormalizeAttempt(queue.NackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}, attempt))
	}
}

// ProcessNext dequeues and processes a single delivery.
func (p *Processor) ProcessNext(ctx context.Context, dequeuer queue.Dequeuer, attempt int) error {
	if dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	return p.Process(ctx, delivery, attempt)
}

func (p *Processor) run(ctx context.Context, msg *job.ExecutionMessage) (bool, error) {
	switch strings.TrimSpace(msg.JobID) {
	case JobIDOnboardIssuer:
		if p.onboarder == nil {
			return false, fmt.Errorf("gojob: issuer onboarder is not configured")
		}
		_, ok, err := p.onboarder.CreateIssuerTenant(ctx, readString(msg.Parameters, paramName))
		return ok, err
	case JobIDWaitTransaction:
		if p.waiter == nil {
			return false, fmt.Errorf("gojob: transaction waiter is not configured")
		}
		_, ok, err := p.waiter.WaitForTransaction(ctx, readString(msg.Parameters, paramTransactionID))
		return ok, err
	default:
		return false, core.BadInputError(fmt.Sprintf("unknown agent job %q", msg.JobID))
	}
}

// WorkerHook logs worker lifecycle events and counts them.
type WorkerHook struct {
	logger  core.Logger
	metrics core.MetricsRecorder
}

func NewWorkerHook(logger core.Logger, metrics core.MetricsRecorder) *WorkerHook {
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &WorkerHook{logger: glog.Ensure(logger), metrics: metrics}
}

func (h *WorkerHook) OnStart(ctx context.Context, event worker.Event) {
	h.observe(ctx, "start", event)
}

func (h *WorkerHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.observe(ctx, "success", event)
}

func (h *WorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	h.observe(ctx, "failure", event)
}

func (h *WorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	h.observe(ctx, "retry", event)
}

func (h *WorkerHook) observe(ctx context.Context, phase string, event worker.Event) {
	if h == nil {
		return
	}
	jobID := eventJobID(event)
	tags := map[string]string{"job_id": jobID, "phase": phase}
	h.metrics.IncCounter(ctx, "agent.jobs.events.total", 1, tags)
	if event.Duration > 0 {
		h.metrics.ObserveHistogram(ctx, "agent.jobs.duration_ms", float64(event.Duration.Milliseconds()), tags)
	}
	fields := []any{"job_id", jobID, "phase", phase, "attempt", event.Attempt}
	if event.Delay > 0 {
		fields = append(fields, "delay", event.Delay.String())
	}
	if event.Err != nil {
		h.logger.Warn("agent job event", append(fields, "error", event.Err.Error())...)
		return
	}
	h.logger.Debug("agent job event", fields...)
}

func eventJobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return strings.TrimSpace(message.JobID)
}

func readString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	value, ok := params[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

var _ worker.Hook = (*WorkerHook)(nil)
