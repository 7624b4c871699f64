package ytdlp

import (
	"context"
	"fmt"
	"strings"
)

// DownloadOptions controls a single Download call.
type DownloadOptions struct {
	// OutputTemplate is passed to -o, e.g. "downloads/%(title)s.%(ext)s".
	OutputTemplate string

	// Format is the format-selection expression passed to --format.
	Format string

	// MergeOutputFormat is the container used when separate video and audio
	// streams are merged.
	MergeOutputFormat string

	// RemuxVideo converts single-stream downloads into this container.
	RemuxVideo string

	WriteThumbnail bool
}

// Download fetches url according to opts and returns the metadata yt-dlp
// printed for it. Info.PredictedPath is computed before post-processing, so
// callers must not assume it exists on disk.
func (c *Client) Download(ctx context.Context, url string, opts DownloadOptions, extraArgs ...string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(opts.OutputTemplate) == "" {
		return nil, fmt.Errorf("ytdlp: output template is required")
	}

	args := []string{
		"--no-simulate",
		"--dump-single-json",
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--no-colors",
		"-o", opts.OutputTemplate,
	}
	if opts.Format != "" {
		args = append(args, "--format", opts.Format)
	}
	if opts.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeOutputFormat)
	}
	if opts.RemuxVideo != "" {
		args = append(args, "--remux-video", opts.RemuxVideo)
	}
	if opts.WriteThumbnail {
		args = append(args, "--write-thumbnail")
	}
	args = append(args, extraArgs...)
	// "--" stops option parsing so a URL starting with "-" stays a URL.
	args = append(args, "--", url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	return parseInfo(stdout)
}
