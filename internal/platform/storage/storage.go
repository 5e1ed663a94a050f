package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// Local saves generated artifacts (error reports, PDF summaries)
// under a base directory on disk.
type Local struct {
	BaseDir string
}

func NewLocal(baseDir string) *Local {
	return &Local{BaseDir: baseDir}
}

// Save writes data under baseDir/subdir/name and returns the stored
// path. The name is sanitized to its base component so uploaded
// filenames cannot escape the directory.
func (l *Local) Save(subdir, name string, data []byte) (string, error) {
	dir := filepath.Join(l.BaseDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Path resolves a stored artifact path, refusing anything outside the
// base directory.
func (l *Local) Path(stored string) (string, bool) {
	cleaned := filepath.Clean(stored)
	base := filepath.Clean(l.BaseDir)
	rel, err := filepath.Rel(base, cleaned)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return cleaned, true
}
