package scan

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gradlecp/pkg/cache"
	"gradlecp/pkg/decode"
	"gradlecp/pkg/report"
)

// BuildOutputDirs are the module-relative directories holding compiled classes
var BuildOutputDirs = []string{
	"build/intermediates/javac/debug/classes",
	"build/classes/java/main",
	"build/classes/kotlin/main",
	"build/tmp/kotlin-classes/debug",
	"build/tmp/kotlin-classes/main",
}

// Options are shared by all scanners
type Options struct {
	Lister   cache.Lister
	Workers  int
	Reporter report.Reporter
}

func (o Options) withDefaults() Options {
	if o.Lister == nil {
		o.Lister = cache.WalkLister{}
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Reporter == nil {
		o.Reporter = report.Nop()
	}
	return o
}

// collector merges task-local results under one lock
type collector struct {
	mu      sync.Mutex
	entries map[string]Resource
}

func newCollector() *collector {
	return &collector{entries: make(map[string]Resource)}
}

func (c *collector) merge(local map[string]Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.entries, local)
}

// ClassScanner indexes the class files of module build outputs
type ClassScanner struct {
	Root    string
	Modules []string // module paths relative to Root
	opts    Options
}

// NewClassScanner creates a scanner over every module's build output dirs
func NewClassScanner(root string, modules []string, opts Options) *ClassScanner {
	return &ClassScanner{Root: root, Modules: modules, opts: opts.withDefaults()}
}

// Scan runs one task per module and output directory
func (s *ClassScanner) Scan(ctx context.Context) (*Repository, error) {
	start := time.Now()
	result := newCollector()

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for _, module := range s.Modules {
		for _, dir := range BuildOutputDirs {
			buildDir := filepath.Join(s.Root, module, dir)
			g.Go(func() error {
				files, err := s.opts.Lister.List(ctx, buildDir, "*"+classSuffix)
				if err != nil {
					return err
				}
				local := make(map[string]Resource, len(files))
				for _, file := range files {
					rel, err := filepath.Rel(buildDir, file)
					if err != nil {
						return fmt.Errorf("failed to relativize %s: %w", file, err)
					}
					name := packageName(filepath.ToSlash(rel))
					local[name] = Resource{PackageName: name, Path: file, BuildDir: buildDir}
				}
				result.merge(local)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to scan class files: %w", err)
	}

	repo := newRepository("classes", result.entries)
	report.Elapsed(s.opts.Reporter, "Scanned class files", start)
	s.opts.Reporter.Debug("Class index", "size", repo.Size())
	return repo, nil
}

// TransformedIndex is the package index of the post-processing cache plus
// the archives found for each artifact id and version
type TransformedIndex struct {
	*Repository
	artifacts map[string][]string
}

// ArtifactPaths returns the transformed archives (and res directories) of an artifact
func (i *TransformedIndex) ArtifactPaths(artifactID, version string) []string {
	if i == nil {
		return nil
	}
	return i.artifacts[decode.Entry{ArtifactID: artifactID, Version: version}.Key()]
}

// TransformedScanner indexes transforms-N/<hash>/transformed/
type TransformedScanner struct {
	Root string
	opts Options
}

// NewTransformedScanner creates a scanner over the post-processing cache root
func NewTransformedScanner(root string, opts Options) *TransformedScanner {
	return &TransformedScanner{Root: root, opts: opts.withDefaults()}
}

// Scan runs one task per hash directory. An empty root yields an empty index.
func (s *TransformedScanner) Scan(ctx context.Context) (*TransformedIndex, error) {
	start := time.Now()
	result := newCollector()
	artifacts := make(map[string][]string)
	var artifactsMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	var hashes []string
	if s.Root != "" {
		hashes = cache.SubDirs(s.Root)
	}
	for _, hash := range hashes {
		transformed := filepath.Join(s.Root, hash, "transformed")
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := make(map[string]Resource)
			localArtifacts := make(map[string][]string)

			for _, entry := range transformedEntries(transformed) {
				for _, archive := range entry.archives {
					s.index(archive, local)
				}
				localArtifacts[entry.key] = append(localArtifacts[entry.key], entry.paths()...)
			}

			result.merge(local)
			artifactsMu.Lock()
			for key, paths := range localArtifacts {
				artifacts[key] = append(artifacts[key], paths...)
			}
			artifactsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to scan transformed cache: %w", err)
	}

	index := &TransformedIndex{
		Repository: newRepository("transformed", result.entries),
		artifacts:  artifacts,
	}
	report.Elapsed(s.opts.Reporter, "Scanned transformed cache", start)
	s.opts.Reporter.Debug("Transformed index", "size", index.Size(), "artifacts", len(artifacts))
	return index, nil
}

func (s *TransformedScanner) index(archive string, local map[string]Resource) {
	names, err := archiveClasses(archive)
	if err != nil {
		s.opts.Reporter.Warn("Skipping unreadable archive", "path", archive, "err", err)
		return
	}
	for _, name := range names {
		local[name] = Resource{PackageName: name, Path: archive}
	}
}

type transformedEntry struct {
	key      string
	archives []string
	res      string
}

func (e transformedEntry) paths() []string {
	paths := append([]string(nil), e.archives...)
	if e.res != "" {
		paths = append(paths, e.res)
	}
	return paths
}

// transformedEntries lists the archives directly inside dir and the
// <name>/jars/*.jar, <name>/jars/libs/*.jar and <name>/res of each subdirectory
func transformedEntries(dir string) []transformedEntry {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var entries []transformedEntry
	for _, item := range items {
		path := filepath.Join(dir, item.Name())
		if !item.IsDir() {
			if !cache.IsArchive(path) {
				continue
			}
			decoded, err := decode.DecodeTransformedCacheEntry(filepath.ToSlash(path))
			if err != nil {
				continue
			}
			entries = append(entries, transformedEntry{key: decoded.Key(), archives: []string{path}})
			continue
		}

		// the decoder names jars/ content after the enclosing directory
		decoded, err := decode.DecodeTransformedCacheEntry(filepath.ToSlash(filepath.Join(path, "jars", "classes.jar")))
		if err != nil {
			continue
		}
		entry := transformedEntry{key: decoded.Key()}
		for _, pattern := range []string{"jars/*.jar", "jars/libs/*.jar"} {
			matches, _ := filepath.Glob(filepath.Join(path, pattern))
			entry.archives = append(entry.archives, matches...)
		}
		if info, err := os.Stat(filepath.Join(path, "res")); err == nil && info.IsDir() {
			entry.res = filepath.Join(path, "res")
		}
		if len(entry.archives) > 0 || entry.res != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}

// SupportScanner indexes the jars of the package cache (files-*)
type SupportScanner struct {
	Root string
	opts Options
}

// NewSupportScanner creates a scanner over the files-* root
func NewSupportScanner(root string, opts Options) *SupportScanner {
	return &SupportScanner{Root: root, opts: opts.withDefaults()}
}

// Scan runs one task per group directory
func (s *SupportScanner) Scan(ctx context.Context) (*Repository, error) {
	start := time.Now()
	result := newCollector()

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for _, group := range cache.SubDirs(s.Root) {
		groupDir := filepath.Join(s.Root, group)
		g.Go(func() error {
			files, err := s.opts.Lister.List(ctx, groupDir, "*.jar")
			if err != nil {
				return err
			}
			local := make(map[string]Resource)
			for _, file := range files {
				if cache.IsAuxiliary(file) {
					continue
				}
				if _, ok := cache.ParseResource(s.Root, file); !ok {
					continue
				}
				names, err := archiveClasses(file)
				if err != nil {
					s.opts.Reporter.Warn("Skipping unreadable archive", "path", file, "err", err)
					continue
				}
				for _, name := range names {
					local[name] = Resource{PackageName: name, Path: file}
				}
			}
			result.merge(local)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to scan package cache: %w", err)
	}

	repo := newRepository("support", result.entries)
	report.Elapsed(s.opts.Reporter, "Scanned package cache", start)
	s.opts.Reporter.Debug("Package cache index", "size", repo.Size())
	return repo, nil
}
