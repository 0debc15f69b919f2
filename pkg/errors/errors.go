package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeBotError = "BOT_ERROR"
	CodeAPIError = "API_ERROR"
	CodeConfig   = "CONFIG_ERROR"
	CodeGate     = "GATE_ERROR"
	CodeHandler  = "HANDLER_ERROR"
	CodeCache    = "CACHE_ERROR"
)

var (
	// ErrPayloadTooLarge marks an upload rejected by the platform for its size.
	ErrPayloadTooLarge = stderrors.New("payload too large")
	// ErrSealed is recorded when a descriptor is reconfigured after registration.
	ErrSealed = stderrors.New("descriptor is sealed after registration")
)

type BotError struct {
	Message string
	Code    string
	Context map[string]any
	Cause   error
}

func (e *BotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BotError) Unwrap() error {
	return e.Cause
}

func NewBotError(message, code string, context map[string]any) *BotError {
	return &BotError{
		Message: message,
		Code:    code,
		Context: context,
	}
}

func (e *BotError) WithCause(cause error) *BotError {
	e.Cause = cause
	return e
}

type APIError struct {
	*BotError
	StatusCode int
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		BotError: &BotError{
			Message: message,
			Code:    CodeAPIError,
			Context: context,
		},
		StatusCode: statusCode,
	}
}

// ConfigError reports a malformed descriptor or setting found while the
// process is still registering collaborators.
type ConfigError struct {
	*BotError
	Field string
	Value any
}

func NewConfigError(message, field string, value any) *ConfigError {
	return &ConfigError{
		BotError: &BotError{
			Message: message,
			Code:    CodeConfig,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// GateError reports a failure while resolving a gate predicate.
type GateError struct {
	*BotError
	Gate string
}

func NewGateError(gate string, cause error) *GateError {
	return &GateError{
		BotError: &BotError{
			Message: fmt.Sprintf("failed to evaluate %s gate", gate),
			Code:    CodeGate,
			Context: map[string]any{"gate": gate},
			Cause:   cause,
		},
		Gate: gate,
	}
}

// HandlerError wraps a failure raised by a registered handler. Service marks
// errors from infrastructure collaborators, which must not be swallowed.
type HandlerError struct {
	*BotError
	Key     string
	Module  string
	Service bool
}

func NewHandlerError(key, module string, service bool, cause error) *HandlerError {
	return &HandlerError{
		BotError: &BotError{
			Message: fmt.Sprintf("handler %s/%s failed", module, key),
			Code:    CodeHandler,
			Context: map[string]any{
				"key":     key,
				"module":  module,
				"service": service,
			},
			Cause: cause,
		},
		Key:     key,
		Module:  module,
		Service: service,
	}
}

type CacheError struct {
	*BotError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		BotError: &BotError{
			Message: message,
			Code:    CodeCache,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

// IsService reports whether err carries a service-owned handler failure.
func IsService(err error) bool {
	var handlerErr *HandlerError
	return stderrors.As(err, &handlerErr) && handlerErr.Service
}
