package downloads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutputMissing means neither the predicted file nor its converted sibling
// exists after a download that the extractor reported as successful.
var ErrOutputMissing = errors.New("downloaded file not found on disk")

// ResolveOutput finds the file the extractor actually left on disk.
//
// The extractor predicts its output name before post-processing runs, and the
// container conversion can change the extension afterwards. Resolution is:
//
//  1. the predicted path, if it is a regular file;
//  2. otherwise the predicted path with its extension replaced by container,
//     if that is a regular file;
//  3. otherwise ErrOutputMissing.
func ResolveOutput(predicted string, container string) (string, error) {
	if strings.TrimSpace(predicted) == "" {
		return "", fmt.Errorf("%w: extractor did not report a filename", ErrOutputMissing)
	}

	if isRegularFile(predicted) {
		return predicted, nil
	}

	container = strings.TrimPrefix(container, ".")
	if container != "" {
		stem := strings.TrimSuffix(predicted, filepath.Ext(predicted))
		sibling := stem + "." + container
		if isRegularFile(sibling) {
			return sibling, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrOutputMissing, filepath.Base(predicted))
}

func isRegularFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
