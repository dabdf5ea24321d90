package classpath

import (
	"os"
	"path/filepath"
	"strings"
)

const transformedSegment = "/transformed/"

var droppedSuffixes = []string{"/lint.jar", "-api.jar", "-sources.jar", "-javadoc.jar"}

// Optimize drops missing paths, empty directories, lint, api, sources and
// javadoc archives, and duplicates. Transformed cache entries are compared by
// what follows their transformed/ segment, so the same artifact under two
// hash directories is kept once. Paths under root are made relative to it.
// Order is preserved.
func Optimize(root string, paths []string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, path := range paths {
		if hasDroppedSuffix(path) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() && isEmptyDir(path) {
			continue
		}

		id := identity(path)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, relativeTo(root, path))
	}
	return out
}

func hasDroppedSuffix(path string) bool {
	for _, suffix := range droppedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func identity(path string) string {
	slashed := filepath.ToSlash(path)
	if i := strings.LastIndex(slashed, transformedSegment); i != -1 {
		return slashed[i+len(transformedSegment):]
	}
	return slashed
}

func isEmptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	return err != nil || len(entries) == 0
}

func relativeTo(root, path string) string {
	if root == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
