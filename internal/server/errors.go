package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bomcost/internal/report"
	"bomcost/internal/schema"
	"bomcost/internal/session"
	"bomcost/internal/source"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

// invalidParam reports a malformed query parameter.
type invalidParam struct {
	Name  string
	Value string
}

func (e *invalidParam) Error() string { return "invalid value for " + e.Name + ": " + e.Value }

func (e *invalidParam) Unwrap() error { return ErrInvalidRequest }

// ErrorHandlingMiddleware renders the last handler error as JSON unless the
// response has already been written.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError records err for ErrorHandlingMiddleware and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var bad *invalidParam
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: bad.Error()}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: "invalid request"}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrBadCredentials):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}
	case errors.Is(err, report.ErrUnknownFamily):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "unknown family"}
	case errors.Is(err, source.ErrUnknownDataset):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "dataset not found in source"}
	case errors.Is(err, schema.ErrSlotMismatch), errors.Is(err, schema.ErrNoSlots):
		return http.StatusUnprocessableEntity, errorPayload{Type: "schema_mismatch", Message: err.Error()}
	case errors.Is(err, report.ErrSource):
		return http.StatusBadGateway, errorPayload{Type: "source_unavailable", Message: "source unavailable"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
