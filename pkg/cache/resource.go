package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resource is one file of the package cache's group/artifact/version/hash/file layout
type Resource struct {
	Group    string
	Artifact string
	Version  string
	FileName string
	FullPath string
}

// ParseResource splits a path under the files-* root into its layout segments
func ParseResource(root, path string) (Resource, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Resource{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 5 || parts[0] == ".." {
		return Resource{}, false
	}
	return Resource{
		Group:    parts[0],
		Artifact: parts[1],
		Version:  parts[2],
		FileName: parts[4],
		FullPath: path,
	}, true
}

// IsArchive reports whether path names a jar or aar file
func IsArchive(path string) bool {
	return strings.HasSuffix(path, ".jar") || strings.HasSuffix(path, ".aar")
}

// IsAuxiliary reports whether path is a sources or javadoc jar
func IsAuxiliary(path string) bool {
	return strings.HasSuffix(path, "-sources.jar") || strings.HasSuffix(path, "-javadoc.jar")
}

// Archives keeps the jar and aar paths that are not sources or javadoc
func Archives(paths []string) []string {
	var out []string
	for _, path := range paths {
		if IsArchive(path) && !IsAuxiliary(path) {
			out = append(out, path)
		}
	}
	return out
}

// SubDirs returns the names of the directories directly inside dir, sorted.
// A missing dir yields nil.
func SubDirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
