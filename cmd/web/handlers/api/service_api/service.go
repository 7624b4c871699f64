// Package service_api serves the service descriptor and health check.
package service_api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Index is the body of GET /.
type Index struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleIndex describes the service and its endpoints.
func HandleIndex(version string) echo.HandlerFunc {
	body := Index{
		Status:  "running",
		Message: "Video downloader API",
		Version: version,
		Endpoints: map[string]string{
			"health":   "GET /health",
			"download": "POST /download",
			"get_file": "GET /get_file/<filename>",
		},
	}
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, body)
	}
}

// HandleHealth reports liveness. It never touches yt-dlp or the disk.
func HandleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	}
}
