package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"thirdcoast.systems/vidfetch/cmd/web/internal/web"
	"thirdcoast.systems/vidfetch/internal/config"
	"thirdcoast.systems/vidfetch/internal/downloads"
	"thirdcoast.systems/vidfetch/pkg/ytdlp"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vidfetch",
		Short:         "HTTP service that downloads videos with yt-dlp",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		newServeCmd(),
		newFetchCmd(),
		newProbeCmd(),
		newVersionCmd(),
		newUpdateCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// setup loads configuration and installs the process logger.
func setup(ctx context.Context) (*config.Config, error) {
	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: conf.SlogLevel()})))
	return conf, nil
}

func newClient(conf *config.Config) *ytdlp.Client {
	client := ytdlp.New()
	client.Path = conf.YtDlpPath
	client.ExtraArgs = conf.YtDlpExtraArgs
	if conf.YtDlpVerbose {
		client.LogCallback = func(stream string, line string) {
			if stream == "stderr" {
				slog.Debug("yt-dlp", "line", line)
			}
		}
	}
	return client
}

func newService(conf *config.Config) (*downloads.Service, *ytdlp.Client, error) {
	client := newClient(conf)
	svc, err := downloads.NewService(conf, downloads.NewYtDlpExtractor(client))
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(svc.Dir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create downloads directory: %w", err)
	}
	return svc, client, nil
}

func runServe(ctx context.Context) error {
	conf, err := setup(ctx)
	if err != nil {
		return err
	}

	slog.Info("Starting web service", "version", Version)

	svc, client, err := newService(conf)
	if err != nil {
		slog.Error("failed to create download service", "error", err)
		return err
	}

	if v, err := client.Version(ctx); err != nil {
		slog.Warn("yt-dlp not usable; downloads will fail", "path", client.PathOrDefault(), "error", err)
	} else {
		slog.Info("yt-dlp found", "path", client.PathOrDefault(), "version", v)
	}

	e, err := web.NewWebserver(ctx, conf, svc, Version)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		return err
	}

	// Downloads hold the response open for as long as yt-dlp runs.
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.WriteTimeout = 0

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr, "downloads_dir", svc.Dir())
	if err := e.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
			return nil
		}
		// Echo returns an error on Shutdown; treat it as normal if context is done.
		if ctx.Err() != nil {
			return nil
		}
		slog.Error("server failed", "error", err)
		return err
	}
	return nil
}
