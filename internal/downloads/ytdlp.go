package downloads

import (
	"context"
	"errors"
	"fmt"

	"thirdcoast.systems/vidfetch/pkg/ytdlp"
)

type infoDownloader interface {
	Download(ctx context.Context, url string, opts ytdlp.DownloadOptions, extraArgs ...string) (*ytdlp.Info, error)
}

// YtDlpExtractor is the Extractor backed by the yt-dlp executable.
type YtDlpExtractor struct {
	client infoDownloader
}

func NewYtDlpExtractor(client *ytdlp.Client) *YtDlpExtractor {
	return &YtDlpExtractor{client: client}
}

// Extract runs a download. A yt-dlp process that ran and exited non-zero is an
// ExtractionError; anything else (missing binary, killed process, bad JSON) is
// returned as a plain error.
func (x *YtDlpExtractor) Extract(ctx context.Context, url string, opts Options) (*Extraction, error) {
	info, err := x.client.Download(ctx, url, ytdlp.DownloadOptions{
		OutputTemplate:    opts.OutputTemplate,
		Format:            opts.Format,
		MergeOutputFormat: opts.Container,
		RemuxVideo:        opts.Container,
		WriteThumbnail:    opts.WriteThumbnail,
	})
	if err != nil {
		var ee *ytdlp.ExecError
		if errors.As(err, &ee) && ee.ExitCode > 0 {
			return nil, &ExtractionError{Reason: ee.Reason(), Cause: err}
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	return &Extraction{
		Title:         info.Title,
		Duration:      info.Duration,
		Uploader:      info.Uploader,
		PredictedPath: info.PredictedPath(),
	}, nil
}
