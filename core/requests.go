package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jmes "github.com/jmespath/go-jmespath"
)

// Response is a successful (2xx) backend reply.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r Response) Decode(target any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("core: decode response: %w", err)
	}
	return nil
}

// Document decodes the body into generic JSON values for path queries.
func (r Response) Document() (any, error) {
	if len(r.Body) == 0 {
		return map[string]any{}, nil
	}
	var doc any
	if err := json.Unmarshal(r.Body, &doc); err != nil {
		return nil, fmt.Errorf("core: decode response: %w", err)
	}
	return doc, nil
}

// Lookup evaluates a JMESPath expression against the decoded body.
func (r Response) Lookup(expression string) (any, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	return jmes.Search(expression, doc)
}

// LookupString is Lookup for string fields; missing or non-string values
// resolve to "".
func (r Response) LookupString(expression string) string {
	value, err := r.Lookup(expression)
	if err != nil || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return ""
	}
}

// RequestConfig returns the headers sent on agent and tenant calls.
func (c *Client) RequestConfig() map[string]string {
	return c.backend.AuthHeaders(RoleTenant, c.tokens.Snapshot())
}

// InnkeeperRequestConfig returns the headers sent on innkeeper calls.
func (c *Client) InnkeeperRequestConfig() map[string]string {
	return c.backend.AuthHeaders(RoleInnkeeper, c.tokens.Snapshot())
}

func (c *Client) AgentGet(ctx context.Context, path string) (Response, error) {
	return c.do(ctx, http.MethodGet, RoleAgent, path, nil)
}

func (c *Client) AgentPost(ctx context.Context, path string, body any) (Response, error) {
	return c.do(ctx, http.MethodPost, RoleAgent, path, body)
}

func (c *Client) innkeeperGet(ctx context.Context, path string) (Response, error) {
	return c.do(ctx, http.MethodGet, RoleInnkeeper, path, nil)
}

func (c *Client) innkeeperPost(ctx context.Context, path string, body any) (Response, error) {
	return c.do(ctx, http.MethodPost, RoleInnkeeper, path, body)
}

func (c *Client) tenantGet(ctx context.Context, path string) (Response, error) {
	return c.do(ctx, http.MethodGet, RoleTenant, path, nil)
}

func (c *Client) tenantPost(ctx context.Context, path string, body any) (Response, error) {
	return c.do(ctx, http.MethodPost, RoleTenant, path, body)
}

func (c *Client) headersFor(role Role) map[string]string {
	if role == RoleInnkeeper {
		return c.InnkeeperRequestConfig()
	}
	return c.RequestConfig()
}

func (c *Client) do(ctx context.Context, method string, role Role, path string, body any) (Response, error) {
	url := c.backend.BaseURL(role) + path
	headers := c.headersFor(role)
	headers["accept"] = "application/json"

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Response{}, BadInputError(fmt.Sprintf("encode %s body: %v", path, err))
		}
		payload = encoded
		headers["Content-Type"] = "application/json"
	}

	c.logger.Debug(method + " " + url)
	startedAt := time.Now()
	resp, err := c.transport.Do(ctx, TransportRequest{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    payload,
		Timeout: c.config.Transport.Timeout,
	})
	c.observeRequest(ctx, method, role, startedAt, resp.StatusCode, err)
	if err != nil {
		if IsTransportError(err) {
			return Response{}, err
		}
		return Response{}, TransportError(method, url, 0, err)
	}
	if !isSuccessStatus(resp.StatusCode) {
		return Response{}, TransportError(method, url, resp.StatusCode, bodyError(resp.Body))
	}
	return Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

func (c *Client) observeRequest(ctx context.Context, method string, role Role, startedAt time.Time, status int, err error) {
	outcome := "success"
	if err != nil || !isSuccessStatus(status) {
		outcome = "failure"
	}
	tags := map[string]string{
		"method": strings.ToLower(method),
		"role":   string(role),
		"status": outcome,
	}
	c.metrics.IncCounter(ctx, "agent.requests.total", 1, tags)
	c.metrics.ObserveHistogram(ctx, "agent.requests.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
}

func bodyError(body []byte) error {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	if len(text) > 256 {
		text = text[:256]
	}
	return fmt.Errorf("%s", text)
}
