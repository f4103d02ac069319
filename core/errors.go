package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AgentErrorConfiguration  = "AGENT_CONFIGURATION"
	AgentErrorAuthentication = "AGENT_AUTHENTICATION"
	AgentErrorTransport      = "AGENT_TRANSPORT"
	AgentErrorBadInput       = "AGENT_BAD_INPUT"
	AgentErrorNotFound       = "AGENT_NOT_FOUND"
	AgentErrorInternal       = "AGENT_INTERNAL_ERROR"
)

func ConfigurationError(message string, cause error) *goerrors.Error {
	return newAgentError(message, goerrors.CategoryBadInput, AgentErrorConfiguration, cause)
}

// AuthenticationError is built fresh rather than wrapped so that a transport
// error underneath keeps its own category while this one reports auth.
func AuthenticationError(role Role, cause error) *goerrors.Error {
	message := fmt.Sprintf("%s authentication failed", role)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}
	return newAgentError(message, goerrors.CategoryAuth, AgentErrorAuthentication, cause).
		WithMetadata(map[string]any{"role": string(role)})
}

func TransportError(method, url string, statusCode int, cause error) *goerrors.Error {
	message := fmt.Sprintf("%s %s failed", method, url)
	if statusCode > 0 {
		message = fmt.Sprintf("%s %s returned status %d", method, url, statusCode)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}
	metadata := map[string]any{"method": method, "url": url}
	if statusCode > 0 {
		metadata["status_code"] = statusCode
	}
	return newAgentError(message, goerrors.CategoryExternal, AgentErrorTransport, cause).
		WithMetadata(metadata)
}

func BadInputError(message string) *goerrors.Error {
	return newAgentError(message, goerrors.CategoryBadInput, AgentErrorBadInput, nil)
}

func NotFoundError(message string, cause error) *goerrors.Error {
	return newAgentError(message, goerrors.CategoryNotFound, AgentErrorNotFound, cause)
}

func IsNotFoundError(err error) bool {
	return hasTextCode(err, AgentErrorNotFound)
}

func IsAuthenticationError(err error) bool {
	return hasTextCode(err, AgentErrorAuthentication)
}

func IsTransportError(err error) bool {
	return hasTextCode(err, AgentErrorTransport)
}

func IsConfigurationError(err error) bool {
	return hasTextCode(err, AgentErrorConfiguration)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func newAgentError(message string, category goerrors.Category, textCode string, cause error) *goerrors.Error {
	err := goerrors.New(message, category).WithTextCode(textCode)
	if cause != nil {
		err.Source = cause
	}
	return ensureAgentErrorEnvelope(err)
}

// MapError converts any error into an agent envelope with an HTTP status and
// text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAgentErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAgentErrorEnvelope(mapped)
}

func ensureAgentErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = agentHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAgentTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAgentTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AgentErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return AgentErrorAuthentication
	case goerrors.CategoryExternal:
		return AgentErrorTransport
	case goerrors.CategoryNotFound:
		return AgentErrorNotFound
	default:
		return AgentErrorInternal
	}
}

func agentHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
