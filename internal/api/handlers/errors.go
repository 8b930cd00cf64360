package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yield-service/yield_service/internal/domain/entities"
)

// Error codes as constants for consistent error responses across handlers
const (
	// Validation errors
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInvalidID      = "INVALID_ID"

	// Resource errors
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodePoolNotFound = "POOL_NOT_FOUND"

	// Operation errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Error messages as constants for consistency
const (
	MsgInvalidPoolID      = "Invalid pool ID"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgTransfersFailed    = "Failed to fetch token transfers"
	MsgFlowSummaryFailed  = "Failed to build flow summary"
)

// ErrorResponseBuilder provides a fluent interface for building error responses
type ErrorResponseBuilder struct {
	status  int
	code    string
	message string
	details map[string]interface{}
}

// NewError creates a new ErrorResponseBuilder
func NewError(status int, code string) *ErrorResponseBuilder {
	return &ErrorResponseBuilder{
		status: status,
		code:   code,
	}
}

// Message sets the error message
func (e *ErrorResponseBuilder) Message(msg string) *ErrorResponseBuilder {
	e.message = msg
	return e
}

// Detail adds a single detail to the error response
func (e *ErrorResponseBuilder) Detail(key string, value interface{}) *ErrorResponseBuilder {
	if e.details == nil {
		e.details = make(map[string]interface{})
	}
	e.details[key] = value
	return e
}

// Send sends the error response
func (e *ErrorResponseBuilder) Send(c *gin.Context) {
	c.JSON(e.status, entities.ErrorResponse{
		Code:    e.code,
		Message: e.message,
		Details: e.details,
	})
}

// SendInvalidPoolID rejects a malformed :poolId path parameter
func SendInvalidPoolID(c *gin.Context, raw string) {
	NewError(http.StatusBadRequest, ErrCodeInvalidID).
		Message(MsgInvalidPoolID).
		Detail("field", "poolId").
		Detail("value", raw).
		Send(c)
}

// SendServiceUnavailable sends a 503 Service Unavailable error
func SendServiceUnavailable(c *gin.Context, message string) {
	NewError(http.StatusServiceUnavailable, ErrCodeServiceUnavailable).Message(message).Send(c)
}
