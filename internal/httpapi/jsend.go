package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/stallednews/internal/store"
)

type jsendStatus string

const (
	statusSuccess jsendStatus = "success"
	statusFail    jsendStatus = "fail"
	statusError   jsendStatus = "error"
)

type jsendResponse struct {
	Status  jsendStatus `json:"status"`
	Data    any         `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code,omitempty"`
}

// listPayload is the data shape of every collection endpoint. Run, Kind and Manifest
// are set only where the collection belongs to one run.
type listPayload[T any] struct {
	Run      string          `json:"run,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Manifest *store.Manifest `json:"manifest,omitempty"`
	Total    int             `json:"total"`
	Items    []T             `json:"items"`
}

func newList[T any](items []T) listPayload[T] {
	if items == nil {
		items = []T{}
	}
	return listPayload[T]{Total: len(items), Items: items}
}

func success(c echo.Context, data any) error {
	return successWithStatus(c, http.StatusOK, data)
}

func successWithStatus(c echo.Context, code int, data any) error {
	return c.JSON(code, jsendResponse{Status: statusSuccess, Data: data})
}

func fail(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, jsendResponse{Status: statusFail, Message: message, Data: data})
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, jsendResponse{
		Status:  statusError,
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}
