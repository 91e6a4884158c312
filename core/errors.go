package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorConfiguration     = "CLIENT_CONFIGURATION_ERROR"
	ClientErrorAuthentication    = "AUTHENTICATION_ERROR"
	ClientErrorCircuitValidation = "CIRCUIT_VALIDATION_ERROR"
	ClientErrorAPITimeout        = "API_TIMEOUT"
	ClientErrorServer            = "SERVER_ERROR"
	ClientErrorJobExecution      = "JOB_EXECUTION_ERROR"
	ClientErrorJobAbort          = "JOB_ABORT_ERROR"
	ClientErrorProtocol          = "PROTOCOL_ERROR"
	ClientErrorInternal          = "CLIENT_INTERNAL_ERROR"
)

func clientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureClientErrorEnvelope(richErr)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ensureClientErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryOperation, "request deadline exceeded").
				WithTextCode(ClientErrorAPITimeout),
		)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return newClientError(err.Error(), goerrors.CategoryOperation, ClientErrorAPITimeout)
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "authentication"):
		return newClientError(err.Error(), goerrors.CategoryAuth, ClientErrorAuthentication)
	case strings.Contains(msg, "unrecognized"), strings.Contains(msg, "malformed"):
		return newClientError(err.Error(), goerrors.CategoryExternal, ClientErrorProtocol)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newClientError(err.Error(), goerrors.CategoryBadInput, ClientErrorConfiguration)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureClientErrorEnvelope(mapped)
}

func newClientError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureClientErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = clientHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ClientErrorConfiguration
	case goerrors.CategoryValidation:
		return ClientErrorCircuitValidation
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ClientErrorAuthentication
	case goerrors.CategoryConflict:
		return ClientErrorJobAbort
	case goerrors.CategoryOperation:
		return ClientErrorJobExecution
	case goerrors.CategoryExternal:
		return ClientErrorServer
	default:
		return ClientErrorInternal
	}
}

func clientHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryOperation:
		return http.StatusGatewayTimeout
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func circuitValidationError(reason string) error {
	return goerrors.New(reason, goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(ClientErrorCircuitValidation)
}

func clientConfigurationError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ClientErrorConfiguration)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func authenticationError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(ClientErrorAuthentication)
	}
	return goerrors.Wrap(source, goerrors.CategoryAuth, message).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ClientErrorAuthentication)
}

func apiTimeoutError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryOperation).
			WithCode(http.StatusGatewayTimeout).
			WithTextCode(ClientErrorAPITimeout)
	}
	return goerrors.Wrap(source, goerrors.CategoryOperation, message).
		WithCode(http.StatusGatewayTimeout).
		WithTextCode(ClientErrorAPITimeout)
}

func serverError(message string, statusCode int, metadata map[string]any) error {
	if statusCode == 0 {
		statusCode = http.StatusBadGateway
	}
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithCode(statusCode).
		WithTextCode(ClientErrorServer)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func jobExecutionError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryOperation).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ClientErrorJobExecution)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func runRecordConflictError(runID string) error {
	return goerrors.New("run record already exists: "+runID, goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(ClientErrorConfiguration)
}

func jobAbortError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(ClientErrorJobAbort)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func protocolError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(ClientErrorProtocol)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(ClientErrorProtocol)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// IsClientConfigurationError reports a server-side 4xx rejection or local
// misconfiguration.
func IsClientConfigurationError(err error) bool {
	return hasTextCode(err, ClientErrorConfiguration)
}

// IsAuthenticationError reports an exhausted login/renewal exchange.
func IsAuthenticationError(err error) bool {
	return hasTextCode(err, ClientErrorAuthentication)
}

// IsCircuitValidationError reports a pre-flight validator rejection.
func IsCircuitValidationError(err error) bool {
	return hasTextCode(err, ClientErrorCircuitValidation)
}

// IsAPITimeoutError reports a transport timeout or exceeded poll deadline.
func IsAPITimeoutError(err error) bool {
	return hasTextCode(err, ClientErrorAPITimeout)
}

// IsServerError reports a 5xx from the execution service.
func IsServerError(err error) bool {
	return hasTextCode(err, ClientErrorServer)
}

// IsJobExecutionError reports a job that terminated in the failed state.
func IsJobExecutionError(err error) bool {
	return hasTextCode(err, ClientErrorJobExecution)
}

// IsJobAbortError reports a rejected abort request.
func IsJobAbortError(err error) bool {
	return hasTextCode(err, ClientErrorJobAbort)
}

// IsProtocolError reports an unrecognized status or malformed body.
func IsProtocolError(err error) bool {
	return hasTextCode(err, ClientErrorProtocol)
}
