package apperr

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the structured error body returned by every service.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

var kindStatus = map[Kind]int{
	KindNotFound:                http.StatusNotFound,
	KindConflict:                http.StatusConflict,
	KindInsufficientFunds:       http.StatusUnprocessableEntity,
	KindInvalidTransaction:      http.StatusBadRequest,
	KindInvalidTransactionState: http.StatusUnprocessableEntity,
	KindValidation:              http.StatusBadRequest,
	KindInternal:                http.StatusInternalServerError,
}

var kindLabel = map[Kind]string{
	KindNotFound:                "Not Found",
	KindConflict:                "Conflict",
	KindInsufficientFunds:       "Unprocessable Entity",
	KindInvalidTransaction:      "Bad Request",
	KindInvalidTransactionState: "Unprocessable Entity",
	KindValidation:              "Bad Request",
	KindUpstream:                "Bad Gateway",
	KindInternal:                "Internal Server Error",
}

// StatusOf returns the HTTP status an error kind maps to.
func StatusOf(err error) int {
	if status, ok := kindStatus[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Respond writes the structured error body for err and aborts the request.
func Respond(c *gin.Context, err error) {
	status := StatusOf(err)
	message := "internal server error"

	var appErr *Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		StatusCode: status,
		Message:    message,
		Error:      kindLabel[KindOf(err)],
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       c.Request.URL.Path,
	})
}
