package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/vidfetch/internal/config"
	"thirdcoast.systems/vidfetch/internal/downloads"
)

// fakeExtractor writes the given files into the directory of the output
// template and predicts predict, like yt-dlp before post-processing.
type fakeExtractor struct {
	write   []string
	predict string
	title   string
	err     error

	calls   int
	gotOpts downloads.Options
}

func (f *fakeExtractor) Extract(ctx context.Context, url string, opts downloads.Options) (*downloads.Extraction, error) {
	f.calls++
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	dir := filepath.Dir(opts.OutputTemplate)
	for _, name := range f.write {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("media"), 0o644); err != nil {
			return nil, err
		}
	}
	return &downloads.Extraction{Title: f.title, PredictedPath: filepath.Join(dir, f.predict)}, nil
}

func newTestServer(t *testing.T, ex downloads.Extractor) (*Webserver, string) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	conf := &config.Config{
		WebServerPort:      5000,
		BodyLimit:          "1M",
		CORSAllowedOrigins: []string{"*"},
		DownloadsDir:       dir,
		TargetContainer:    "mp4",
	}
	svc, err := downloads.NewService(conf, ex)
	require.NoError(t, err)

	s, err := NewWebserver(context.Background(), conf, svc, "test")
	require.NoError(t, err)
	return s, dir
}

func do(t *testing.T, s *Webserver, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestNewWebserver_RequiresDependencies(t *testing.T) {
	_, err := NewWebserver(context.Background(), nil, nil, "")
	require.Error(t, err)
	_, err = NewWebserver(context.Background(), &config.Config{}, nil, "")
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("must not be called")}
	s, _ := newTestServer(t, ex)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", decode(t, rec)["status"])
	require.Equal(t, 0, ex.calls)
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, &fakeExtractor{})

	rec := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "running", body["status"])
	require.Equal(t, "test", body["version"])
	require.NotEmpty(t, body["message"])
	require.Contains(t, body["endpoints"], "download")
}

func TestDownload_Success(t *testing.T) {
	ex := &fakeExtractor{write: []string{"title.mp4"}, predict: "title.mp4", title: "title"}
	s, dir := newTestServer(t, ex)

	rec := do(t, s, http.MethodPost, "/download", `{"url":"https://example.com/video","quality":"best"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	require.Equal(t, "Video downloaded successfully!", body["message"])
	require.Equal(t, "title.mp4", body["filename"])
	require.Equal(t, "title", body["title"])
	require.Equal(t, 0.0, body["duration"])
	require.Equal(t, "Unknown", body["uploader"])
	require.Equal(t, "5 B", body["size"])
	require.Equal(t, "best", ex.gotOpts.Format)

	_, err := os.Stat(filepath.Join(dir, "title.mp4"))
	require.NoError(t, err)

	// The reported file is retrievable.
	rec = do(t, s, http.MethodGet, "/get_file/title.mp4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "media", rec.Body.String())
	require.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
}

func TestDownload_ReconcilesConvertedFile(t *testing.T) {
	ex := &fakeExtractor{write: []string{"title.mp4"}, predict: "title.webm", title: "title"}
	s, _ := newTestServer(t, ex)

	rec := do(t, s, http.MethodPost, "/download", `{"url":"https://example.com/video","quality":"720"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "title.mp4", decode(t, rec)["filename"])
	require.Equal(t, "bestvideo[height<=720]+bestaudio/best", ex.gotOpts.Format)
}

func TestDownload_ValidationErrors(t *testing.T) {
	ex := &fakeExtractor{}
	s, _ := newTestServer(t, ex)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: "No data provided"},
		{name: "null body", body: "null", want: "No data provided"},
		{name: "missing url", body: `{"quality":"best"}`, want: "URL is required"},
		{name: "blank url", body: `{"url":"   "}`, want: "URL is required"},
		{name: "bad quality", body: `{"url":"https://example.com","quality":"4k"}`, want: "quality must be one of"},
		{name: "malformed json", body: `{"url":`, want: "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/download", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, decode(t, rec)["error"], tt.want)
		})
	}
	require.Equal(t, 0, ex.calls)
}

func TestDownload_ExtractionFailure(t *testing.T) {
	ex := &fakeExtractor{err: &downloads.ExtractionError{Reason: "Unsupported URL: https://example.com/nope"}}
	s, _ := newTestServer(t, ex)

	rec := do(t, s, http.MethodPost, "/download", `{"url":"https://example.com/nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decode(t, rec)["error"].(string)
	require.True(t, strings.HasPrefix(msg, "Download failed: "), msg)
	require.Contains(t, msg, "Unsupported URL")
}

func TestDownload_InternalFailureHidesDetail(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("exec: \"yt-dlp\": executable file not found in $PATH")}
	s, _ := newTestServer(t, ex)

	rec := do(t, s, http.MethodPost, "/download", `{"url":"https://example.com/video"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal server error", decode(t, rec)["error"])
}

func TestDownload_OutputMissingIsInternal(t *testing.T) {
	ex := &fakeExtractor{predict: "ghost.webm", title: "ghost"}
	s, _ := newTestServer(t, ex)

	rec := do(t, s, http.MethodPost, "/download", `{"url":"https://example.com/video"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal server error", decode(t, rec)["error"])
}

func TestDownload_BodyTooLarge(t *testing.T) {
	ex := &fakeExtractor{}
	s, _ := newTestServer(t, ex)

	big := `{"url":"` + strings.Repeat("a", 2<<20) + `"}`
	rec := do(t, s, http.MethodPost, "/download", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.NotEmpty(t, decode(t, rec)["error"])
	require.Equal(t, 0, ex.calls)
}

func TestGetFile(t *testing.T) {
	s, dir := newTestServer(t, &fakeExtractor{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my video.mp4"), []byte("0123456789"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "clip.mp4"), []byte("clip"), 0o644))

	t.Run("escaped name", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/get_file/my%20video.mp4", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "0123456789", rec.Body.String())
		require.Equal(t, `attachment; filename="my video.mp4"`, rec.Header().Get(echo.HeaderContentDisposition))
		require.Equal(t, "video/mp4", rec.Header().Get(echo.HeaderContentType))
	})

	t.Run("subpath", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/get_file/sub/clip.mp4", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "clip", rec.Body.String())
	})

	t.Run("range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/get_file/my%20video.mp4", nil)
		req.Header.Set("Range", "bytes=0-3")
		req.Header.Set(echo.HeaderAcceptEncoding, "gzip")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusPartialContent, rec.Code)
		require.Equal(t, "0123", rec.Body.String())
		require.Empty(t, rec.Header().Get(echo.HeaderContentEncoding))
	})

	t.Run("missing", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/get_file/nope.mp4", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "File not found", decode(t, rec)["error"])
	})

	t.Run("directory", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/get_file/sub", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "File not found", decode(t, rec)["error"])
	})
}

func TestGetFile_Traversal(t *testing.T) {
	s, dir := newTestServer(t, &fakeExtractor{})
	secret := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("top secret"), 0o644))
	t.Cleanup(func() { _ = os.Remove(secret) })

	for _, target := range []string{
		"/get_file/../../etc/passwd",
		"/get_file/../secret.txt",
		"/get_file/..%2Fsecret.txt",
		"/get_file/%2E%2E/secret.txt",
		"/get_file/sub/../../secret.txt",
	} {
		rec := do(t, s, http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, target)
		require.NotContains(t, rec.Body.String(), "top secret", target)
		require.Equal(t, "File not found", decode(t, rec)["error"], target)
	}
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t, &fakeExtractor{})

	req := httptest.NewRequest(http.MethodOptions, "/download", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "Content-Type")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	require.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)

	// Without an Origin the route handler answers.
	rec = do(t, s, http.MethodOptions, "/download", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSOnSimpleRequest(t *testing.T) {
	s, _ := newTestServer(t, &fakeExtractor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	s, _ := newTestServer(t, &fakeExtractor{})

	rec := do(t, s, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not found", decode(t, rec)["error"])

	rec = do(t, s, http.MethodGet, "/download", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "Method not allowed", decode(t, rec)["error"])
}

func TestRequestIDIsSet(t *testing.T) {
	s, _ := newTestServer(t, &fakeExtractor{})
	rec := do(t, s, http.MethodGet, "/health", "")
	require.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}
