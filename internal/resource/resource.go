// Package resource resolves bundled plugin data files to absolute paths.
// It is the path side of the resource locator: plugins declare a data
// root, and lookups join relative names beneath it while refusing
// traversal outside the root.
package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sanitize rejects relative names that would escape the data root.
func sanitize(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("empty resource name")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid absolute resource name %q", rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid resource name %q escapes the data root", rel)
	}
	return clean, nil
}

// Filename resolves a relative resource name beneath root to an absolute
// path. The path is returned even when nothing exists there yet; callers
// staging write targets rely on that.
func Filename(root, rel string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("plugin does not declare a data root")
	}
	clean, err := sanitize(rel)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Join(root, clean))
	if err != nil {
		return "", err
	}
	return abs, nil
}

// Exists reports whether the resolved resource is present on disk.
func Exists(root, rel string) (bool, error) {
	path, err := Filename(root, rel)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
