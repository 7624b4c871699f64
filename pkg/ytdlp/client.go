package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// streamWriter wraps an io.Writer and calls a callback for each line.
type streamWriter struct {
	stream   string
	callback func(stream string, line string)
	buffer   *bytes.Buffer
	pending  []byte
}

func (w *streamWriter) Write(p []byte) (n int, err error) {
	// Also write to buffer for later retrieval
	if w.buffer != nil {
		w.buffer.Write(p)
	}

	w.pending = append(w.pending, p...)

	// yt-dlp progress output often uses carriage returns (\r) to update the same
	// console line. Treat both \n and \r as line boundaries.
	for {
		idx := bytes.IndexAny(w.pending, "\r\n")
		if idx < 0 {
			break
		}

		line := string(w.pending[:idx])

		// Consume delimiter(s). If this is a CRLF sequence, consume both.
		consume := 1
		if w.pending[idx] == '\r' && idx+1 < len(w.pending) && w.pending[idx+1] == '\n' {
			consume = 2
		}
		w.pending = w.pending[idx+consume:]

		if w.callback != nil {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				w.callback(w.stream, trimmed)
			}
		}
	}

	return len(p), nil
}

type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	cmdline := strings.TrimSpace(e.Cmd + " " + strings.Join(e.Args, " "))
	if e.ExitCode != 0 {
		return fmt.Sprintf("ytdlp: command failed (exit %d): %s", e.ExitCode, cmdline)
	}
	return fmt.Sprintf("ytdlp: command failed: %s", cmdline)
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Reason returns the line of yt-dlp output that explains the failure.
// yt-dlp reports fatal problems as "ERROR: ..." on stderr; the last such line
// wins. Without one, the last non-empty stderr line is used, then the cause.
func (e *ExecError) Reason() string {
	lines := strings.Split(strings.ReplaceAll(e.Stderr, "\r\n", "\n"), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
		}
		if last == "" {
			last = l
		}
	}
	if last != "" {
		return last
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Error()
}

// Client runs the yt-dlp executable. A Client holds no per-call state, so one
// instance may be shared by concurrent requests once configured.
type Client struct {
	// Path to yt-dlp executable. Defaults to "yt-dlp" (PATH lookup).
	Path string

	// ExtraArgs are always appended before per-call args.
	ExtraArgs []string

	// LogCallback is called for each line of stdout/stderr output.
	// If nil, output is buffered in memory.
	LogCallback func(stream string, line string)

	execFn func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

func New() *Client {
	return &Client{Path: "yt-dlp"}
}

func (c *Client) exec(ctx context.Context, args ...string) (stdout []byte, stderr []byte, err error) {
	name := c.PathOrDefault()

	fullArgs := make([]string, 0, len(c.ExtraArgs)+len(args)+1)
	fullArgs = append(fullArgs, c.ExtraArgs...)
	if c.LogCallback != nil {
		// Force newline progress output so logs are readable.
		fullArgs = append(fullArgs, "--newline")
	}
	fullArgs = append(fullArgs, args...)

	if c.execFn != nil {
		return c.execFn(ctx, name, fullArgs...)
	}

	slog.Debug("ytdlp: executing command", "cmd", name, "args", fullArgs)
	cmd := exec.CommandContext(ctx, name, fullArgs...)
	var outBuf, errBuf bytes.Buffer

	if c.LogCallback != nil {
		cmd.Stdout = &streamWriter{stream: "stdout", callback: c.LogCallback, buffer: &outBuf}
		cmd.Stderr = &streamWriter{stream: "stderr", callback: c.LogCallback, buffer: &errBuf}
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	if err := cmd.Run(); err != nil {
		return outBuf.Bytes(), errBuf.Bytes(), err
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// Version returns `yt-dlp --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := c.exec(ctx, "--version")
	if err != nil {
		return "", wrapExecError(c.PathOrDefault(), []string{"--version"}, stdout, stderr, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// Info is a light wrapper over yt-dlp JSON output. It intentionally models only common fields.
// The full JSON is preserved in Raw.
type Info struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	WebpageURL   string            `json:"webpage_url"`
	Extractor    string            `json:"extractor"`
	ExtractorKey string            `json:"extractor_key"`
	Uploader     *string           `json:"uploader"`
	Duration     *float64          `json:"duration"`
	Ext          string            `json:"ext"`
	Filename     string            `json:"filename"`
	LegacyName   string            `json:"_filename"`
	Requested    []RequestedFile   `json:"requested_downloads,omitempty"`
	Entries      []json.RawMessage `json:"entries,omitempty"`
	Raw          json.RawMessage   `json:"-"`
}

// RequestedFile is one entry of requested_downloads.
type RequestedFile struct {
	Filename   string `json:"filename"`
	LegacyName string `json:"_filename"`
}

// PredictedPath is the output path yt-dlp computed from metadata before any
// post-processor ran. Post-processing may leave a different extension on disk.
func (i *Info) PredictedPath() string {
	if i == nil {
		return ""
	}
	if i.Filename != "" {
		return i.Filename
	}
	if i.LegacyName != "" {
		return i.LegacyName
	}
	for _, r := range i.Requested {
		if r.Filename != "" {
			return r.Filename
		}
		if r.LegacyName != "" {
			return r.LegacyName
		}
	}
	return ""
}

// GetInfo runs yt-dlp in "metadata only" mode and parses its JSON output.
// It uses: --dump-single-json --skip-download
func (c *Client) GetInfo(ctx context.Context, url string, extraArgs ...string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}

	args := []string{"--dump-single-json", "--skip-download", "--no-playlist"}
	args = append(args, extraArgs...)
	args = append(args, "--", url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	return parseInfo(stdout)
}

func parseInfo(stdout []byte) (*Info, error) {
	raw := bytes.TrimSpace(stdout)
	// Anything printed before the JSON document (stray warnings) is skipped.
	if i := bytes.LastIndex(raw, []byte("\n{")); i >= 0 {
		raw = raw[i+1:]
	}
	info := &Info{Raw: append([]byte(nil), raw...)}
	if err := json.Unmarshal(raw, info); err != nil {
		return nil, fmt.Errorf("ytdlp: parse json: %w", err)
	}
	return info, nil
}

// PathOrDefault returns the configured path or "yt-dlp" if unset.
func (c *Client) PathOrDefault() string {
	if strings.TrimSpace(c.Path) == "" {
		return "yt-dlp"
	}
	return c.Path
}

// Update runs `yt-dlp -U` to update to the latest version.
func (c *Client) Update(ctx context.Context, extraArgs ...string) error {
	args := []string{"-U"}
	args = append(args, extraArgs...)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}

func wrapExecError(cmd string, args []string, stdout []byte, stderr []byte, cause error) error {
	exitCode := 0
	var ee *exec.ExitError
	if errors.As(cause, &ee) {
		exitCode = ee.ExitCode()
	}

	return &ExecError{
		Cmd:      cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		Cause:    cause,
	}
}
