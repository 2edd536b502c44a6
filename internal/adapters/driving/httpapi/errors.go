package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/logger"
)

// ErrMissingService is returned when a required driving port is nil.
var ErrMissingService = errors.New("httpapi: build, retrieval, knowledge base and health services are required")

// Error bodies shared by several routes.
const (
	msgUnauthorized  = "Unauthorized"
	msgNotFound      = "Not found"
	msgInternalError = "Internal server error"
	msgMissingQuery  = "Missing 'query'"
	msgInvalidBody   = "Invalid JSON body"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a service error to a status code. Client errors carry
// their message; infrastructure errors are logged and hidden.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: msgNotFound})
	case domain.IsClientError(err):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, errorBody{Error: msgInternalError})
	}
}
