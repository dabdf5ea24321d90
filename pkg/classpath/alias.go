package classpath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"gradlecp/pkg/cache"
)

// Alias modes
const (
	AliasCanonical = "canonical"
	AliasSymlink   = "symlink"
	AliasNone      = "none"
)

type prefix struct {
	from string
	to   string
}

// Alias rewrites cache paths so that one resource reached through different
// absolute prefixes ends up with a single spelling
type Alias struct {
	prefixes []prefix
}

// NewAlias prepares the rewriting for mode. In symlink mode it creates
// <root>/<aliasDir>/transforms and <root>/<aliasDir>/files pointing at the
// caches, holding a file lock while doing so.
func NewAlias(mode, root, aliasDir string, layout *cache.Layout) (*Alias, error) {
	alias := &Alias{}
	switch mode {
	case AliasNone:
		return alias, nil

	case "", AliasCanonical:
		for _, dir := range []string{layout.Transforms, layout.Files} {
			if dir == "" {
				continue
			}
			canonical, err := filepath.EvalSymlinks(dir)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
			}
			if canonical != dir {
				alias.add(dir, canonical)
			}
		}
		return alias, nil

	case AliasSymlink:
		base := filepath.Join(root, aliasDir)
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create alias directory: %w", err)
		}

		fileLock := flock.New(filepath.Join(base, ".lock"))
		if err := fileLock.Lock(); err != nil {
			return nil, fmt.Errorf("failed to acquire alias lock: %w", err)
		}
		defer func() { _ = fileLock.Unlock() }()

		links := map[string]string{"transforms": layout.Transforms, "files": layout.Files}
		for name, target := range links {
			if target == "" {
				continue
			}
			link := filepath.Join(base, name)
			if err := ensureSymlink(link, target); err != nil {
				return nil, err
			}
			alias.add(target, link)
			if canonical, err := filepath.EvalSymlinks(target); err == nil && canonical != target {
				alias.add(canonical, link)
			}
		}
		return alias, nil

	default:
		return nil, fmt.Errorf("unknown alias mode %q", mode)
	}
}

func (a *Alias) add(from, to string) {
	a.prefixes = append(a.prefixes, prefix{from: filepath.Clean(from), to: to})
	sort.SliceStable(a.prefixes, func(i, j int) bool {
		return len(a.prefixes[i].from) > len(a.prefixes[j].from)
	})
}

// Rewrite returns path with its cache prefix replaced by the alias
func (a *Alias) Rewrite(path string) string {
	if a == nil {
		return path
	}
	for _, p := range a.prefixes {
		if path == p.from {
			return p.to
		}
		if strings.HasPrefix(path, p.from+string(filepath.Separator)) {
			return p.to + path[len(p.from):]
		}
	}
	return path
}

func ensureSymlink(link, target string) error {
	existing, err := os.Readlink(link)
	switch {
	case err == nil && existing == target:
		return nil
	case err == nil:
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("failed to replace alias %s: %w", link, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("alias %s exists and is not a symlink: %w", link, err)
	}

	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to create alias %s: %w", link, err)
	}
	return nil
}
