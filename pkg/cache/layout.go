package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrMissingRoot is returned when an expected cache directory does not exist
	ErrMissingRoot = errors.New("cache root not found")
	// ErrAmbiguousRoot is returned when a cache directory pattern matches more than once
	ErrAmbiguousRoot = errors.New("more than one cache root matches")
)

// Layout holds the discovered cache directories under a Gradle home.
// Transforms and Metadata are empty when the cache has none.
type Layout struct {
	Caches     string // <gradle home>/caches
	Files      string // caches/modules-2/files-*
	Metadata   string // caches/modules-2/metadata-*
	Transforms string // caches/transforms-*
}

// Discover finds the active cache generation directories by pattern
func Discover(gradleHome string) (*Layout, error) {
	caches := filepath.Join(gradleHome, "caches")
	if info, err := os.Stat(caches); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingRoot, caches)
	}

	layout := &Layout{Caches: caches}
	modules := filepath.Join(caches, "modules-2")

	var err error
	if layout.Files, err = single(modules, "files-*"); err != nil {
		return nil, err
	}
	if layout.Files == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRoot, filepath.Join(modules, "files-*"))
	}
	if layout.Metadata, err = single(modules, "metadata-*"); err != nil {
		return nil, err
	}
	if layout.Transforms, err = single(caches, "transforms-*"); err != nil {
		return nil, err
	}

	return layout, nil
}

// single returns the only directory in dir matching pattern, or "" if none
func single(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("failed to match %s: %w", pattern, err)
	}

	var dirs []string
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.IsDir() {
			dirs = append(dirs, match)
		}
	}
	sort.Strings(dirs)

	switch len(dirs) {
	case 0:
		return "", nil
	case 1:
		return dirs[0], nil
	default:
		return "", fmt.Errorf("%w: %v", ErrAmbiguousRoot, dirs)
	}
}

// RequireMetadata fails when the metadata descriptor cache is absent
func (l *Layout) RequireMetadata() error {
	if l.Metadata == "" {
		return fmt.Errorf("%w: %s", ErrMissingRoot, filepath.Join(l.Caches, "modules-2", "metadata-*"))
	}
	return nil
}

// Descriptors returns the directory holding binary metadata descriptors
func (l *Layout) Descriptors() string {
	return filepath.Join(l.Metadata, "descriptors")
}
