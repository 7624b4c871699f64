package downloads

// OutcomeKind says how a download lifecycle ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeValidationError
	OutcomeExtractionError
	OutcomeInternalError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationError:
		return "validation_error"
	case OutcomeExtractionError:
		return "extraction_error"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of Service.Run. Download is set only on success;
// Err is set for every other kind.
type Outcome struct {
	Kind     OutcomeKind
	Download *Download
	Err      error
}

// OK reports whether the lifecycle succeeded.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// ExtractionError is a failure reported by the extractor itself: unsupported
// URL, network error, restricted or unavailable format.
type ExtractionError struct {
	Reason string
	Cause  error
}

func (e *ExtractionError) Error() string { return "Download failed: " + e.Reason }

func (e *ExtractionError) Unwrap() error { return e.Cause }

func succeeded(d *Download) Outcome {
	return Outcome{Kind: OutcomeSuccess, Download: d}
}

func failed(kind OutcomeKind, err error) Outcome {
	return Outcome{Kind: kind, Err: err}
}
