package fsutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// CreateDir creates a directory (and parents) if it doesn't exist.
func CreateDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteToFile writes content to a file, overwriting if it exists. The data is
// written to a temporary file in the same directory first and renamed into
// place, so readers never see a partial file.
func WriteToFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %q: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %q into place: %w", path, err)
	}
	return nil
}

// ReadFile reads the content of a file.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// FileExists checks if a path exists and is a regular file (not a directory).
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		// Not found, permissions, etc. all count as "no file".
		return false
	}
	return !info.IsDir()
}

// --- Slug Generation ---
var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`) // For slugs, allow only lowercase alphanum and hyphen
var multiHyphen = regexp.MustCompile(`-+`)             // To collapse multiple hyphens

// Slug creates a filename- and URL-friendly key from a name.
// Slug(Slug(x)) == Slug(x).
func Slug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonAlphanumeric.ReplaceAllString(slug, "-") // Replace non-alphanum with hyphens
	slug = multiHyphen.ReplaceAllString(slug, "-")     // Collapse multiple hyphens
	slug = strings.Trim(slug, "-")                     // Trim leading/trailing hyphens
	if slug == "" {
		return "toolbox"
	}
	return slug
}
