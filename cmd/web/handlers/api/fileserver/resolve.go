package fileserver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrOutsideRoot means the requested name resolves outside the served directory.
	ErrOutsideRoot = errors.New("fileserver: path escapes root")
	// ErrNotFound means no regular file exists under the requested name.
	ErrNotFound = errors.New("fileserver: file not found")
)

// Resolve maps a client-supplied, slash-separated name onto a regular file
// under root. The result is always inside root, after cleaning and after
// following symlinks.
//
// When the literal name is missing, the NFC and NFD forms of the name are
// tried, since a title-derived name may be stored in either normalization.
func Resolve(root string, name string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsRune(name, 0) {
		return "", ErrNotFound
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	// The root itself may be a symlink (e.g. a mounted volume).
	if r, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = r
	}

	var firstErr error
	for _, candidate := range nameForms(name) {
		p, err := resolveOne(absRoot, candidate)
		if err == nil {
			return p, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if errors.Is(err, ErrOutsideRoot) {
			return "", err
		}
	}
	return "", firstErr
}

func resolveOne(absRoot, name string) (string, error) {
	joined := filepath.Join(absRoot, filepath.FromSlash(name))
	if !within(absRoot, joined) {
		return "", ErrOutsideRoot
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", ErrNotFound
	}
	if !within(absRoot, resolved) {
		return "", ErrOutsideRoot
	}

	st, err := os.Stat(resolved)
	if err != nil || !st.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return resolved, nil
}

// within reports whether path is strictly below root. Both must be absolute
// and clean.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func nameForms(name string) []string {
	forms := []string{name}
	for _, f := range []string{norm.NFC.String(name), norm.NFD.String(name)} {
		if f != forms[len(forms)-1] && f != name {
			forms = append(forms, f)
		}
	}
	return forms
}
