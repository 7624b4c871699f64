package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/vidfetch/internal/config"
	"thirdcoast.systems/vidfetch/pkg/utils/format"
)

// Extractor resolves a URL to media and downloads it according to opts.
type Extractor interface {
	Extract(ctx context.Context, url string, opts Options) (*Extraction, error)
}

// Extraction is what the extractor reports back. PredictedPath is the name
// computed before post-processing and may not exist on disk.
type Extraction struct {
	Title         string
	Duration      *float64
	Uploader      *string
	PredictedPath string
}

// Download describes a finished download.
type Download struct {
	Path     string
	Filename string
	Title    string
	Duration float64
	Uploader string
	Size     int64
}

const unknown = "Unknown"

// Service runs download lifecycles against one downloads directory.
type Service struct {
	extractor      Extractor
	dir            string
	container      string
	writeThumbnail bool
	timeout        time.Duration
}

// NewService builds a Service from conf. The downloads directory is resolved
// to an absolute path but not created; callers do that once at startup.
func NewService(conf *config.Config, extractor Extractor) (*Service, error) {
	if extractor == nil {
		return nil, errors.New("downloads: extractor is required")
	}
	dir, err := filepath.Abs(conf.DownloadsDir)
	if err != nil {
		return nil, fmt.Errorf("downloads: resolve directory: %w", err)
	}
	container := conf.TargetContainer
	if container == "" {
		container = "mp4"
	}
	return &Service{
		extractor:      extractor,
		dir:            dir,
		container:      container,
		writeThumbnail: conf.WriteThumbnail,
		timeout:        conf.DownloadTimeout,
	}, nil
}

// Dir returns the absolute downloads directory.
func (s *Service) Dir() string { return s.dir }

// Run executes one download and blocks until the extractor returns.
// Cancellation of ctx is not propagated to the extractor; a dispatched
// download runs to completion or to the configured timeout.
func (s *Service) Run(ctx context.Context, req *DownloadRequest) Outcome {
	if err := req.Validate(); err != nil {
		return failed(OutcomeValidationError, err)
	}

	opts := BuildOptions(s.dir, req.Quality, s.container, s.writeThumbnail)

	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	slog.Info("download started", "url", req.URL, "quality", req.Quality, "format", opts.Format)

	ext, err := s.extractor.Extract(ctx, req.URL, opts)
	if err != nil {
		var xe *ExtractionError
		if errors.As(err, &xe) {
			slog.Warn("download failed", "url", req.URL, "error", xe.Reason)
			return failed(OutcomeExtractionError, xe)
		}
		return failed(OutcomeInternalError, fmt.Errorf("extract %s: %w", req.URL, err))
	}
	if ext == nil {
		return failed(OutcomeInternalError, errors.New("extractor returned no result"))
	}

	path, err := ResolveOutput(ext.PredictedPath, s.container)
	if err != nil {
		return failed(OutcomeInternalError, err)
	}

	d := &Download{
		Path:     path,
		Filename: filepath.Base(path),
		Title:    ext.Title,
		Uploader: unknown,
	}
	if d.Title == "" {
		d.Title = unknown
	}
	if ext.Duration != nil {
		d.Duration = *ext.Duration
	}
	if ext.Uploader != nil && *ext.Uploader != "" {
		d.Uploader = *ext.Uploader
	}
	if st, err := os.Stat(path); err == nil {
		d.Size = st.Size()
	}

	slog.Info("download finished",
		"url", req.URL,
		"file", d.Filename,
		"size", humanize.Bytes(uint64(d.Size)),
		"duration", format.Duration(d.Duration),
		"elapsed", format.Elapsed(time.Since(started)),
	)
	return succeeded(d)
}
