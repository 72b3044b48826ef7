package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jayymeson/loomi-test/internal/apperr"
)

var validate = validator.New()

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationErrorResponse is the standard error body with per-field details
// attached, so validation failures carry the same envelope as every other
// service error.
type ValidationErrorResponse struct {
	apperr.ErrorResponse
	Details []ValidationError `json:"details"`
}

// ValidateRequest runs struct tag validation and returns one entry per failing
// field, or nil when the request is valid.
func ValidateRequest(obj any) []ValidationError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var validationErrors []ValidationError
	for _, fieldErr := range err.(validator.ValidationErrors) {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldErr.Field(),
			Message: fieldMessage(fieldErr),
			Type:    fieldErr.Tag(),
		})
	}
	return validationErrors
}

func fieldMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	default:
		return "Invalid value"
	}
}

func RespondWithValidationError(c *gin.Context, validationErrors []ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ValidationErrorResponse{
		ErrorResponse: apperr.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request data",
			Error:      "Bad Request",
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Path:       c.Request.URL.Path,
		},
		Details: validationErrors,
	})
}
