package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/api/download_api"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/api/file_api"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/api/fileserver"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/api/service_api"
	"thirdcoast.systems/vidfetch/cmd/web/handlers/common"
	"thirdcoast.systems/vidfetch/internal/config"
	"thirdcoast.systems/vidfetch/internal/downloads"
)

type Webserver struct {
	*echo.Echo
	conf       *config.Config
	service    *downloads.Service
	fileServer *fileserver.FileServer
	version    string
}

func NewWebserver(ctx context.Context, conf *config.Config, service *downloads.Service, version string) (*Webserver, error) {
	if conf == nil {
		return nil, errors.New("web: config is required")
	}
	if service == nil {
		return nil, errors.New("web: download service is required")
	}

	e := echo.New()

	webserver := &Webserver{
		Echo:       e,
		conf:       conf,
		service:    service,
		fileServer: fileserver.NewFileServer(),
		version:    version,
	}

	if err := webserver.registerRoutes(); err != nil {
		return nil, err
	}

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.HTTPErrorHandler = common.HTTPErrorHandler

	bodyLimit := s.conf.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}
	s.Use(middleware.BodyLimit(bodyLimit))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Files are already compressed media and may be range-requested.
			return isFileRoute(c)
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	origins := s.conf.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	return nil
}

func isFileRoute(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/get_file/")
}

func (s *Webserver) registerRoutes() error {
	s.GET("/", service_api.HandleIndex(s.version))
	s.GET("/health", service_api.HandleHealth())

	s.POST("/download", download_api.HandleDownload(s.service))
	s.OPTIONS("/download", download_api.HandlePreflight())

	s.GET("/get_file/*", file_api.HandleGetFile(s.service.Dir(), s.fileServer))

	return nil
}
