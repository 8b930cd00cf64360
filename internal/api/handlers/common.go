package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "github.com/yield-service/yield_service/internal/domain/errors"
	"github.com/yield-service/yield_service/internal/domain/entities"
	"github.com/yield-service/yield_service/pkg/logger"
)

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// requestLogger returns the request-scoped logger set by the logging middleware
func requestLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if v, exists := c.Get("logger"); exists {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return fallback
}

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// respondBadRequest sends a bad request error
func respondBadRequest(c *gin.Context, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, message, det)
}

// respondInternalError sends an internal server error
func respondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, ErrCodeInternalError, message, map[string]interface{}{
		"request_id": getRequestID(c),
	})
}

// respondNotFound sends a not found error
func respondNotFound(c *gin.Context, code, message string) {
	respondError(c, http.StatusNotFound, code, message, nil)
}

// respondDomainError maps a domain error category to its HTTP status. Anything
// uncategorized is logged and reported with a generic message.
func respondDomainError(c *gin.Context, log *logger.Logger, err error, internalMessage string) {
	var de *domainerrors.DomainError
	switch {
	case domainerrors.IsNotFound(err):
		code := ErrCodeNotFound
		message := err.Error()
		if errors.As(err, &de) {
			code, message = de.Code, de.Message
		}
		respondNotFound(c, code, message)
	case domainerrors.IsInvalidInput(err):
		respondBadRequest(c, err.Error(), domainerrors.GetErrorDetails(err))
	case domainerrors.IsServiceUnavailable(err):
		SendServiceUnavailable(c, MsgServiceUnavailable)
	default:
		requestLogger(c, log).Error(internalMessage, "error", err, "error_code", domainerrors.GetErrorCode(err))
		respondInternalError(c, internalMessage)
	}
}

// respondSuccess sends a success response with data
func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// parseUUID parses a string to uuid.UUID
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("empty UUID string")
	}
	return uuid.Parse(s)
}

// parseIntParam parses a query parameter to int with default value
func parseIntParam(c *gin.Context, param string, defaultVal int) int {
	if val := c.Query(param); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
