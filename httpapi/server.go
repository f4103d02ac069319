package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"

	agent "github.com/goliatone/go-issuer-agent"
	agentcmd "github.com/goliatone/go-issuer-agent/command"
	"github.com/goliatone/go-issuer-agent/core"
	agentquery "github.com/goliatone/go-issuer-agent/query"
	sqlstore "github.com/goliatone/go-issuer-agent/store/sql"
	"github.com/goliatone/go-issuer-agent/webhooks"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	router       *chi.Mux
	facade       *agent.Facade
	db           sqlstore.Pinger
	receiver     *webhooks.Receiver
	webhookRoute string
	metrics      http.Handler
	logger       core.Logger
}

type Option func(*Server)

// WithDB enables the database section of /health.
func WithDB(db sqlstore.Pinger) Option {
	return func(s *Server) {
		s.db = db
	}
}

// WithWebhooks mounts receiver under /{route}/{tenant_id}/topic/{topic}.
func WithWebhooks(route string, receiver *webhooks.Receiver) Option {
	return func(s *Server) {
		s.webhookRoute = strings.Trim(strings.TrimSpace(route), "/")
		s.receiver = receiver
	}
}

func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(facade *agent.Facade, opts ...Option) *Server {
	s := &Server{
		router: chi.NewRouter(),
		facade: facade,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = glog.Ensure(s.logger)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	// The agent posts events to {webhook_url}/topic/{topic}/.
	s.router.Use(middleware.StripSlashes)

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/issuers", s.handleOnboardIssuer)
	s.router.Get("/transactions/{transaction_id}", s.handleWaitTransaction)
	s.router.Get("/onboardings", s.handleListOnboardings)
	s.router.Get("/onboardings/{onboarding_id}", s.handleGetOnboarding)

	if s.receiver != nil && s.webhookRoute != "" {
		s.router.Post("/"+s.webhookRoute+"/{tenant_id}/topic/{topic}", s.handleWebhook)
	}
	if s.metrics != nil {
		s.router.Get("/metrics", s.metrics.ServeHTTP)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Router() chi.Router {
	return s.router
}

type HealthResponse struct {
	Status   string                 `json:"status"`
	Agent    agentquery.AgentStatus `json:"agent"`
	Database *sqlstore.DBHealth     `json:"database,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.facade.Queries().AgentStatus.Query(r.Context(), agentquery.AgentStatusMessage{})
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := HealthResponse{Status: "ok", Agent: status}
	code := http.StatusOK
	if !status.Ready {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if s.db != nil {
		db := sqlstore.DBStatus(r.Context(), s.db)
		resp.Database = &db
		if db.HTTPStatus() != http.StatusOK {
			resp.Status = "degraded"
			code = db.HTTPStatus()
		}
	}
	writeJSON(w, code, resp)
}

type onboardRequest struct {
	Name string `json:"name"`
}

type onboardResponse struct {
	Tenant    core.IssuerTenant `json:"tenant"`
	Completed bool              `json:"completed"`
}

func (s *Server) handleOnboardIssuer(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result := gocmd.NewResult[agentcmd.OnboardIssuerResult]()
	ctx := gocmd.ContextWithResult(r.Context(), result)
	if err := s.facade.Commands().OnboardIssuer.Execute(ctx, agentcmd.OnboardIssuerMessage{Name: req.Name}); err != nil {
		s.writeError(w, err)
		return
	}
	out, _ := result.Load()

	code := http.StatusCreated
	if !out.Completed {
		code = http.StatusAccepted
	}
	writeJSON(w, code, onboardResponse{Tenant: out.Tenant, Completed: out.Completed})
}

type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
	State         string `json:"state,omitempty"`
	Acked         bool   `json:"acked"`
}

func (s *Server) handleWaitTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transaction_id")
	result, err := s.facade.Queries().WaitTransaction.Query(r.Context(), agentquery.WaitTransactionMessage{TransactionID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusOK
	if !result.Acked {
		code = http.StatusAccepted
	}
	writeJSON(w, code, transactionResponse{
		TransactionID: id,
		State:         result.Record.State,
		Acked:         result.Acked,
	})
}

func (s *Server) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	record, err := s.facade.Queries().GetOnboarding.Query(r.Context(), agentquery.GetOnboardingMessage{
		ID: chi.URLParam(r, "onboarding_id"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleListOnboardings(w http.ResponseWriter, r *http.Request) {
	records, err := s.facade.Queries().ListOnboardings.Query(r.Context(), agentquery.ListOnboardingsMessage{
		Name: r.URL.Query().Get("name"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []core.OnboardingRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"onboardings": records})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, core.BadInputError("read webhook body"))
		return
	}
	_, err = s.receiver.Receive(r.Context(),
		chi.URLParam(r, "tenant_id"),
		chi.URLParam(r, "topic"),
		r.Header,
		body,
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code     int    `json:"code"`
	TextCode string `json:"text_code"`
	Message  string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	mapped := core.MapError(err)
	if mapped.Code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "text_code", mapped.TextCode, "error", err.Error())
	}
	writeJSON(w, mapped.Code, errorBody{Error: errorPayload{
		Code:     mapped.Code,
		TextCode: mapped.TextCode,
		Message:  mapped.Message,
	}})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return core.BadInputError("request body is required")
		}
		return core.BadInputError("request body must be valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ListenAndServe serves s on addr until ctx is done, then shuts down.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger core.Logger) error {
	logger = glog.Ensure(logger)
	srv := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
