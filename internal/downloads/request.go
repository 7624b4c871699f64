// Package downloads implements the download request lifecycle: decode and
// validate a request, build extraction options, run the extractor, and work
// out which file on disk is the real result.
package downloads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Quality is the requested maximum video height, or "best".
type Quality string

const (
	QualityBest Quality = "best"
	Quality1080 Quality = "1080"
	Quality720  Quality = "720"
	Quality480  Quality = "480"
	Quality360  Quality = "360"
)

// Qualities lists the accepted quality tokens in display order.
var Qualities = []Quality{QualityBest, Quality1080, Quality720, Quality480, Quality360}

// UnmarshalJSON accepts both "720" and 720.
func (q *Quality) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = Quality(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("quality must be a string or number")
	}
	if _, err := strconv.Atoi(n.String()); err != nil {
		return fmt.Errorf("quality must be a whole number")
	}
	*q = Quality(n.String())
	return nil
}

// DownloadRequest is the body of POST /download.
type DownloadRequest struct {
	URL     string  `json:"url" validate:"required"`
	Quality Quality `json:"quality" validate:"oneof=best 1080 720 480 360"`
}

// ValidationError is a client mistake in the request itself.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	errNoData      = &ValidationError{Message: "No data provided"}
	errInvalidJSON = &ValidationError{Message: "Invalid JSON body"}
)

var validate = validator.New()

// DecodeRequest reads a JSON request body. An empty body or a JSON null
// yields (nil, nil); the lifecycle reports that as "No data provided".
func DecodeRequest(r io.Reader) (*DownloadRequest, error) {
	if r == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var req *DownloadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errInvalidJSON
	}
	return req, nil
}

// Validate trims the request, fills in the default quality, and checks it.
func (r *DownloadRequest) Validate() error {
	if r == nil {
		return errNoData
	}
	r.URL = strings.TrimSpace(r.URL)
	if r.Quality == "" {
		r.Quality = QualityBest
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	switch verrs[0].Field() {
	case "URL":
		return &ValidationError{Field: "url", Message: "URL is required"}
	case "Quality":
		return &ValidationError{Field: "quality", Message: "quality must be one of: " + qualityList()}
	default:
		return &ValidationError{Field: verrs[0].Field(), Message: verrs[0].Error()}
	}
}

func qualityList() string {
	parts := make([]string, len(Qualities))
	for i, q := range Qualities {
		parts[i] = string(q)
	}
	return strings.Join(parts, ", ")
}
