package cache

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Lister returns a flat list of absolute file paths under root.
// A non-empty pattern filters by base name using filepath.Match syntax.
// A missing root yields an empty list.
type Lister interface {
	List(ctx context.Context, root, pattern string) ([]string, error)
}

// NewLister returns the lister registered under name
func NewLister(name string) (Lister, error) {
	switch name {
	case "", "walk":
		return WalkLister{}, nil
	case "find":
		return FindLister{}, nil
	default:
		return nil, fmt.Errorf("unknown lister %q", name)
	}
}

// WalkLister lists files in-process
type WalkLister struct{}

// List walks root and collects regular files
func (WalkLister) List(ctx context.Context, root, pattern string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if pattern != "" {
			matched, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	return paths, nil
}

// FindLister shells out to find(1)
type FindLister struct{}

// List runs find on root and returns its output lines
func (FindLister) List(ctx context.Context, root, pattern string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	args := []string{root, "-type", "f"}
	if pattern != "" {
		args = append(args, "-name", pattern)
	}

	cmd := exec.CommandContext(ctx, "find", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("find %s failed: %w: %s", root, err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	sort.Strings(paths)
	return paths, scanner.Err()
}
