package core

import (
	"context"
	"sync"
)

type scriptedTransport struct {
	mu        sync.Mutex
	responses []TransportResponse
	errs      []error
	requests  []TransportRequest
}

func (*scriptedTransport) Kind() string { return "scripted" }

func (s *scriptedTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := len(s.requests)
	s.requests = append(s.requests, req)
	var err error
	if index < len(s.errs) {
		err = s.errs[index]
	}
	if index < len(s.responses) {
		return s.responses[index], err
	}
	return TransportResponse{StatusCode: 200}, err
}

func (s *scriptedTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubIssuer struct {
	token string
	err   error
}

func (s stubIssuer) IssueToken(context.Context, Transport, TokenRequest) (string, error) {
	return s.token, s.err
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any)                {}
func (stubLogger) Debug(string, ...any)                {}
func (stubLogger) Info(string, ...any)                 {}
func (stubLogger) Warn(string, ...any)                 {}
func (stubLogger) Error(string, ...any)                {}
func (stubLogger) Fatal(string, ...any)                {}
func (l stubLogger) WithContext(context.Context) Logger { return l }
