package common

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

const (
	MsgNotFound         = "Not found"
	MsgMethodNotAllowed = "Method not allowed"
	MsgInternal         = "Internal server error"
	MsgFileNotFound     = "File not found"
)

// ErrBadRequest returns a 400 Bad Request error.
func ErrBadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// ErrNotFound returns a 404 Not Found error.
func ErrNotFound(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, msg)
}

// ErrInternal returns a 500 Internal Server Error. The wrapped cause is kept
// for logging and never rendered.
func ErrInternal(cause error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, MsgInternal).SetInternal(cause)
}

// HTTPErrorHandler renders every error as {"error": "..."}. Router misses get
// fixed messages; 5xx bodies never carry internal detail.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = ErrInternal(err)
	}

	msg := MsgInternal
	switch {
	case he == echo.ErrNotFound:
		msg = MsgNotFound
	case he == echo.ErrMethodNotAllowed:
		msg = MsgMethodNotAllowed
	case he.Code >= http.StatusInternalServerError:
		slog.Error("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", he.Internal)
	default:
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, ErrorBody{Error: msg})
}
