// Package imports reads the import statements of Java and Kotlin sources and
// looks them up in scanned package indexes.
package imports

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gradlecp/pkg/trie"
)

// ErrUnsupported is returned for source files that are neither Java nor Kotlin
var ErrUnsupported = errors.New("unsupported source file")

// Import is one import statement
type Import struct {
	Name     string // without the trailing .* of a wildcard import
	Static   bool
	Wildcard bool
}

// Lookup returns the name to search for: a static member import is looked
// up by its enclosing class
func (i Import) Lookup() string {
	if !i.Static || i.Wildcard {
		return i.Name
	}
	route, err := trie.Split(i.Name, 1)
	if err != nil || len(route) == 0 {
		return i.Name
	}
	return strings.Join(route, ".")
}

func (i Import) String() string {
	name := i.Name
	if i.Wildcard {
		name += ".*"
	}
	if i.Static {
		return "import static " + name
	}
	return "import " + name
}

// ParseImport recognizes import [static] a.b.C[.*][;] with an optional
// trailing comment or Kotlin alias
func ParseImport(line string) (Import, bool) {
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, "import ")
	if !ok {
		return Import{}, false
	}
	if i := strings.Index(rest, "//"); i != -1 {
		rest = rest[:i]
	}
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ";"))

	var imp Import
	if after, ok := strings.CutPrefix(rest, "static "); ok {
		imp.Static = true
		rest = strings.TrimSpace(after)
	}
	if before, _, ok := strings.Cut(rest, " as "); ok {
		rest = strings.TrimSpace(before)
	}
	if before, ok := strings.CutSuffix(rest, ".*"); ok {
		imp.Wildcard = true
		rest = before
	}
	if rest == "" || strings.ContainsAny(rest, " \t*") {
		return Import{}, false
	}
	imp.Name = strings.Trim(rest, "`")
	return imp, true
}

// ReadImports returns the imports of a .java or .kt file in source order
func ReadImports(path string) ([]Import, error) {
	switch filepath.Ext(path) {
	case ".java", ".kt":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	var imports []Import
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if imp, ok := ParseImport(scanner.Text()); ok {
			imports = append(imports, imp)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return imports, nil
}
