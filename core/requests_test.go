package core

import (
	"context"
	"net/http"
	"testing"
)

func TestInnkeeperCalls_UseInnkeeperBaseAndHeaders(t *testing.T) {
	transport := &scriptedTransport{responses: []TransportResponse{
		{StatusCode: http.StatusOK, Body: []byte(`{"results":[{"tenant_id":"t-1"}]}`)},
	}}
	client, err := NewClient(context.Background(), managedConfig(),
		WithTransport(transport),
		WithTokenIssuer(stubIssuer{token: "inn"}),
		WithLogger(stubLogger{}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.tokens.EnsureInnkeeperToken(context.Background()); err != nil {
		t.Fatalf("ensure innkeeper token: %v", err)
	}

	resp, err := client.innkeeperGet(context.Background(), "/v0/tenants")
	if err != nil {
		t.Fatalf("innkeeper get: %v", err)
	}
	if got := resp.LookupString("results[0].tenant_id"); got != "t-1" {
		t.Fatalf("expected jmespath lookup, got %q", got)
	}

	req := transport.requests[0]
	if req.URL != "https://traction.example/innkeeper/v0/tenants" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if req.Headers[HeaderAuthorization] != "Bearer inn" {
		t.Fatalf("expected innkeeper bearer, got %#v", req.Headers)
	}
	if _, ok := req.Headers[HeaderAPIKey]; ok {
		t.Fatalf("expected no api key on innkeeper call")
	}
	if len(req.Body) != 0 {
		t.Fatalf("expected no body on GET")
	}
}

func TestResponse_LookupMissingField(t *testing.T) {
	resp := Response{Body: []byte(`{"workflow":{}}`)}
	if got := resp.LookupString("workflow.workflow_state"); got != "" {
		t.Fatalf("expected empty string for missing field, got %q", got)
	}
	if got := (Response{}).LookupString("id"); got != "" {
		t.Fatalf("expected empty string for empty body, got %q", got)
	}
}

func TestResponse_LookupStringFormatsScalars(t *testing.T) {
	resp := Response{Body: []byte(`{"id":12345678,"ratio":0.25,"active":true}`)}
	if got := resp.LookupString("id"); got != "12345678" {
		t.Fatalf("expected integral number without exponent, got %q", got)
	}
	if got := resp.LookupString("ratio"); got != "0.25" {
		t.Fatalf("expected 0.25, got %q", got)
	}
	if got := resp.LookupString("active"); got != "true" {
		t.Fatalf("expected true, got %q", got)
	}
}
