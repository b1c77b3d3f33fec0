// Package httperr defines the JSON response envelope and the error taxonomy
// handlers translate into. Success bodies are {success:true, message, data},
// failures are {success:false, error, details?}.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Success sends a success envelope.
func Success(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func respondError(c *gin.Context, statusCode int, message string, details interface{}) {
	body := gin.H{
		"success": false,
		"error":   message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(statusCode, body)
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	respondError(c, http.StatusBadRequest, message, nil)
}

// ValidationFailed sends a 400 response listing each offending field.
func ValidationFailed(c *gin.Context, details []FieldError) {
	respondError(c, http.StatusBadRequest, "Validation failed", details)
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	respondError(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 response.
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	respondError(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	respondError(c, http.StatusNotFound, message, nil)
}

// Conflict sends a 409 response.
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	respondError(c, http.StatusConflict, message, nil)
}

// Internal sends a 500 response. The message is always generic; storage-layer
// detail stays in the server logs.
func Internal(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "Internal server error", nil)
}

// Binding translates a ShouldBindJSON error into a field-level 400 where
// possible, falling back to a generic bad-request body.
func Binding(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{
				Field:   strings.ToLower(fe.Field()),
				Message: fieldMessage(fe),
			})
		}
		ValidationFailed(c, details)
		return
	}
	BadRequest(c, "Invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return "is invalid"
	}
}
