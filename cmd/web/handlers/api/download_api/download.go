// Package download_api serves the download endpoint.
package download_api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/common"
	"thirdcoast.systems/vidfetch/internal/downloads"
)

const successMessage = "Video downloaded successfully!"

// Response is the 200 body of POST /download.
type Response struct {
	Message  string  `json:"message"`
	Filename string  `json:"filename"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Uploader string  `json:"uploader"`
	Size     string  `json:"size"`
}

// NewResponse renders a finished download.
func NewResponse(d *downloads.Download) Response {
	return Response{
		Message:  successMessage,
		Filename: d.Filename,
		Title:    d.Title,
		Duration: d.Duration,
		Uploader: d.Uploader,
		Size:     humanize.Bytes(uint64(d.Size)),
	}
}

// HandleDownload runs one download lifecycle and blocks until it finishes.
func HandleDownload(svc *downloads.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := downloads.DecodeRequest(c.Request().Body)
		if err != nil {
			var ve *downloads.ValidationError
			if errors.As(err, &ve) {
				return common.ErrBadRequest(ve.Message)
			}
			// Body read failures are usually the body limit tripping.
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return he
			}
			return common.ErrBadRequest("Invalid request body")
		}

		out := svc.Run(c.Request().Context(), req)
		switch out.Kind {
		case downloads.OutcomeSuccess:
			return c.JSON(http.StatusOK, NewResponse(out.Download))
		case downloads.OutcomeValidationError, downloads.OutcomeExtractionError:
			return common.ErrBadRequest(out.Err.Error())
		default:
			slog.Error("download failed", "request_id", c.Response().Header().Get(echo.HeaderXRequestID), "error", out.Err)
			return common.ErrInternal(out.Err)
		}
	}
}

// HandlePreflight answers CORS preflight for /download. The CORS middleware
// normally responds first; this covers requests without an Origin header.
func HandlePreflight() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}
}
