package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried in the error_code member of a problem response
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeBridgeUnavailable = "BRIDGE_UNAVAILABLE"
	CodeBridgeCall        = "BRIDGE_CALL_FAILED"
	CodeWebSocketUpgrade  = "WEBSOCKET_UPGRADE_FAILED"
)

// problemTypes maps an error code to its problem type URI. Unknown codes
// map to TypeInternal.
var problemTypes = map[string]string{
	CodeInvalidRequest:    TypeValidation,
	CodeValidation:        TypeValidation,
	CodeNotFound:          TypeNotFound,
	CodeRateLimit:         TypeRateLimit,
	CodeBridgeUnavailable: TypeBridgeUnavailable,
	CodeBridgeCall:        TypeBridgeCall,
	CodeWebSocketUpgrade:  TypeWebSocketUpgrade,
}

// APIError is an error with a known HTTP status and error code
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names the request field that failed validation
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every failed field of a request
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates an APIError
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates an APIError carrying details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	e := New(statusCode, errorCode, message)
	e.Details = details
	return e
}

var (
	ErrValidationFailed  = New(http.StatusBadRequest, CodeValidation, "Request validation failed")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimit, "Rate limit exceeded")
	ErrBridgeUnavailable = New(http.StatusServiceUnavailable, CodeBridgeUnavailable, "Trading process is not connected")
)

// InvalidRequestWithError reports an undecodable request body
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation reports a single invalid field
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidation, ErrValidationFailed.Message, ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors reports several invalid fields at once
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidation, ErrValidationFailed.Message, ValidationErrors{Errors: errors})
}

// NotFoundError reports an unknown strategy, backtest or analysis
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}

// BridgeCallError reports a command the trading process rejected
func BridgeCallError(err error) *APIError {
	return NewWithDetails(http.StatusBadGateway, CodeBridgeCall, "Trading process rejected the command", err.Error())
}

// WebSocketUpgradeError reports a failed /ws handshake
func WebSocketUpgradeError(status int, err error) *APIError {
	return NewWithDetails(status, CodeWebSocketUpgrade, "WebSocket upgrade failed", err.Error())
}
