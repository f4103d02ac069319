// Package devkit provides scripted test doubles for the agent runtime.
package devkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-issuer-agent/core"
)

type TransportScript struct {
	Response core.TransportResponse
	Err      error
}

// JSON scripts a reply with the given status and a JSON encoded body.
func JSON(status int, body any) TransportScript {
	raw, err := json.Marshal(body)
	if err != nil {
		return TransportScript{Err: fmt.Errorf("devkit: encode script body: %w", err)}
	}
	return TransportScript{Response: core.TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       raw,
	}}
}

func Status(status int) TransportScript {
	return TransportScript{Response: core.TransportResponse{StatusCode: status}}
}

func Fail(err error) TransportScript {
	return TransportScript{Err: err}
}

type route struct {
	scripts []TransportScript
	calls   int
}

// FakeTransport answers requests by exact method and URL. Each route replays
// its scripts in order and repeats the last one once exhausted. Unrouted
// requests get a 404.
type FakeTransport struct {
	mu       sync.Mutex
	routes   map[string]*route
	requests []core.TransportRequest
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{routes: map[string]*route{}}
}

func (*FakeTransport) Kind() string {
	return "fake"
}

func (f *FakeTransport) On(method, url string, scripts ...TransportScript) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[routeKey(method, url)] = &route{scripts: append([]TransportScript(nil), scripts...)}
	return f
}

func (f *FakeTransport) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if f == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: fake transport is nil")
	}
	if err := ctx.Err(); err != nil {
		return core.TransportResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, cloneTransportRequest(req))
	r, ok := f.routes[routeKey(req.Method, req.URL)]
	if !ok || len(r.scripts) == 0 {
		return core.TransportResponse{StatusCode: http.StatusNotFound, Headers: map[string]string{}}, nil
	}
	index := r.calls
	if index >= len(r.scripts) {
		index = len(r.scripts) - 1
	}
	r.calls++
	script := r.scripts[index]
	return cloneTransportResponse(script.Response), script.Err
}

func (f *FakeTransport) Requests() []core.TransportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.TransportRequest, 0, len(f.requests))
	for _, item := range f.requests {
		out = append(out, cloneTransportRequest(item))
	}
	return out
}

// Calls counts recorded requests to method and url.
func (f *FakeTransport) Calls(method, url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := routeKey(method, url)
	count := 0
	for _, req := range f.requests {
		if routeKey(req.Method, req.URL) == key {
			count++
		}
	}
	return count
}

func routeKey(method, url string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + strings.TrimSpace(url)
}

func cloneTransportRequest(in core.TransportRequest) core.TransportRequest {
	out := core.TransportRequest{
		Method:   in.Method,
		URL:      in.URL,
		Headers:  map[string]string{},
		Body:     append([]byte(nil), in.Body...),
		Metadata: map[string]any{},
		Timeout:  in.Timeout,
	}
	for key, value := range in.Headers {
		out.Headers[key] = value
	}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

func cloneTransportResponse(in core.TransportResponse) core.TransportResponse {
	out := core.TransportResponse{
		StatusCode: in.StatusCode,
		Headers:    map[string]string{},
		Body:       append([]byte(nil), in.Body...),
		Metadata:   map[string]any{},
	}
	for key, value := range in.Headers {
		out.Headers[key] = value
	}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

// RecordingSleeper returns immediately and records every requested delay.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *RecordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// StaticTokenIssuer hands out fixed tokens per role and counts calls.
type StaticTokenIssuer struct {
	mu     sync.Mutex
	tokens map[core.Role]string
	calls  map[core.Role]int
	err    error
}

func NewStaticTokenIssuer(tokens map[core.Role]string) *StaticTokenIssuer {
	copied := map[core.Role]string{}
	for role, token := range tokens {
		copied[role] = token
	}
	return &StaticTokenIssuer{tokens: copied, calls: map[core.Role]int{}}
}

func (s *StaticTokenIssuer) FailWith(err error) *StaticTokenIssuer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *StaticTokenIssuer) IssueToken(_ context.Context, _ core.Transport, req core.TokenRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[req.Role]++
	if s.err != nil {
		return "", s.err
	}
	return s.tokens[req.Role], nil
}

func (s *StaticTokenIssuer) Calls(role core.Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[role]
}

var (
	_ core.Transport   = (*FakeTransport)(nil)
	_ core.Sleeper     = (*RecordingSleeper)(nil)
	_ core.TokenIssuer = (*StaticTokenIssuer)(nil)
)
