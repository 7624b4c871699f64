package downloads

import (
	"fmt"
	"path/filepath"
)

// OutputTemplate names files after the source title, in the downloads directory.
const OutputTemplate = "%(title)s.%(ext)s"

// Options is everything the extractor needs for one download. It is built
// fresh for each request.
type Options struct {
	OutputTemplate string
	Format         string

	// Container is the fixed target container. It is used both when merging
	// separate streams and for the convert step applied to single streams.
	Container      string
	WriteThumbnail bool
}

// FormatSelector returns the format-selection expression for q. "best" picks
// the single best combined stream. A height picks the best video stream no
// taller than it plus the best audio, falling back to the overall best.
func FormatSelector(q Quality) string {
	if q == "" || q == QualityBest {
		return "best"
	}
	return fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best", q)
}

// BuildOptions assembles the extractor options for a validated request.
func BuildOptions(dir string, q Quality, container string, writeThumbnail bool) Options {
	return Options{
		OutputTemplate: filepath.Join(dir, OutputTemplate),
		Format:         FormatSelector(q),
		Container:      container,
		WriteThumbnail: writeThumbnail,
	}
}
