package classpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// FileSuffix is appended to the module name to form the output file name
const FileSuffix = ".classpath"

// Writer stores classpaths as one file per module
type Writer struct {
	Dir string
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Path returns the output file of a module. Nested module names map to
// nested directories, so distinct names never share a file.
func (w *Writer) Path(module string) string {
	return filepath.Join(w.Dir, filepath.FromSlash(module)+FileSuffix)
}

// Format joins entries with the OS list separator
func Format(entries []string) []byte {
	return []byte(strings.Join(entries, string(os.PathListSeparator)) + "\n")
}

// Write stores the classpath unless the file already has the same content.
// It reports whether the file was written.
func (w *Writer) Write(cp *Classpath) (bool, error) {
	path := w.Path(cp.Module)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create output directory: %w", err)
	}

	fileLock := flock.New(path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return false, fmt.Errorf("failed to acquire lock for %s: %w", path, err)
	}
	defer func() { _ = fileLock.Unlock() }()

	content := Format(cp.Entries)
	existing, err := fileHash(path)
	if err != nil {
		return false, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	if existing == ContentHash(content) {
		return false, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return false, fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return true, nil
}

// Read loads a classpath file written by Write
func (w *Writer) Read(module string) ([]string, error) {
	data, err := os.ReadFile(w.Path(module))
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, string(os.PathListSeparator)), nil
}
