package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func abortError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}

// statusFor maps an error to the HTTP status and the message shown to the
// client. Only validation messages are passed through verbatim.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "File is too large"
	case errors.Is(err, common.ErrorValidation):
		msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
		return http.StatusBadRequest, msg
	case errors.Is(err, common.ErrorIncorrectPassword):
		return http.StatusInternalServerError, common.IncorrectPasswordMessage
	case errors.Is(err, common.ErrorLoad):
		return http.StatusInternalServerError, "Failed to load PDF document. The file may be corrupted or unsupported."
	case errors.Is(err, common.ErrorExtraction):
		return http.StatusInternalServerError, "Failed to extract text from PDF document."
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// fail writes err as JSON. Server-side failures are logged with the upload
// context.
func (s *Server) fail(c *gin.Context, err error, kv ...any) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		args := append([]any{"error", err.Error(), "status", code}, kv...)
		s.logger.Error(c.Request.Context(), "request failed", args...)
	}
	abortError(c, code, msg)
}
