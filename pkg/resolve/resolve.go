// Package resolve turns a library coordinate into the archive paths of the
// library and its transitive dependencies, using what a previous build left
// in the Gradle cache.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gradlecp/pkg/cache"
	"gradlecp/pkg/report"
)

// ErrFormat is returned when cache content cannot be interpreted safely
var ErrFormat = errors.New("malformed cache entry")

// Coordinate identifies a library. An empty Version means "latest".
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%s:%s", c.GroupID, c.ArtifactID, c.Version)
}

func (c Coordinate) gapKey() string {
	return fmt.Sprintf("%s:%s (%s)", c.GroupID, c.ArtifactID, c.Version)
}

// ParseArtifact builds a coordinate from "group:name" and a version
func ParseArtifact(artifact, version string) (Coordinate, error) {
	group, name, ok := strings.Cut(artifact, ":")
	if !ok || group == "" || name == "" || strings.Contains(name, ":") {
		return Coordinate{}, fmt.Errorf("%w: invalid artifact %q", ErrFormat, artifact)
	}
	return Coordinate{GroupID: group, ArtifactID: name, Version: version}, nil
}

// Resolution is the outcome of resolving one root coordinate
type Resolution struct {
	Root     Coordinate
	Archives map[Coordinate][]string
	// Order lists the resolved coordinates in visiting order
	Order []Coordinate
	// LowConfidence is set when an edge was followed on heuristic evidence
	LowConfidence bool
}

func newResolution(root Coordinate) *Resolution {
	return &Resolution{Root: root, Archives: make(map[Coordinate][]string)}
}

func (r *Resolution) add(c Coordinate, paths []string) {
	if _, ok := r.Archives[c]; !ok {
		r.Order = append(r.Order, c)
	}
	r.Archives[c] = paths
}

// Paths returns every archive of the resolution once, in visiting order
func (r *Resolution) Paths() []string {
	var paths []string
	seen := make(map[string]bool)
	for _, c := range r.Order {
		for _, path := range r.Archives[c] {
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}
	return paths
}

// Strategy resolves a root coordinate and its transitive dependencies
type Strategy interface {
	Resolve(ctx context.Context, root Coordinate) (*Resolution, error)
}

// Transformed finds post-processed archives for an artifact id and version
type Transformed interface {
	ArtifactPaths(artifactID, version string) []string
}

// Options are shared by both strategies
type Options struct {
	Layout      *cache.Layout
	Lister      cache.Lister
	Compare     Comparator
	Transformed Transformed // optional
	Reporter    report.Reporter
	Gaps        *report.Once // optional, shared across resolvers to deduplicate
}

func (o *Options) defaults() {
	if o.Lister == nil {
		o.Lister = cache.WalkLister{}
	}
	if o.Compare == nil {
		o.Compare = Lexical
	}
	if o.Reporter == nil {
		o.Reporter = report.Nop()
	}
	if o.Gaps == nil {
		o.Gaps = report.NewOnce(o.Reporter)
	}
}

// NewStrategy returns the resolver registered under name
func NewStrategy(name string, opts Options) (Strategy, error) {
	switch name {
	case "", "pom":
		return NewPomResolver(opts), nil
	case "metadata":
		if err := opts.Layout.RequireMetadata(); err != nil {
			return nil, err
		}
		return NewMetadataResolver(opts), nil
	default:
		return nil, fmt.Errorf("unknown resolution strategy %q", name)
	}
}

// transformedPaths returns post-processed archives without sources or javadoc
func (o *Options) transformedPaths(c Coordinate) []string {
	if o.Transformed == nil {
		return nil
	}
	var paths []string
	for _, path := range o.Transformed.ArtifactPaths(c.ArtifactID, c.Version) {
		if !cache.IsAuxiliary(path) {
			paths = append(paths, path)
		}
	}
	return paths
}

// supportArchives looks the coordinate up in files-*/group/artifact, selecting
// a version with Select. It returns the resolved coordinate and its archives.
func (o *Options) supportArchives(ctx context.Context, c Coordinate) (Coordinate, []string, error) {
	artifactDir := filepath.Join(o.Layout.Files, c.GroupID, c.ArtifactID)
	version, ok := Select(c.Version, cache.SubDirs(artifactDir), o.Compare)
	if !ok {
		return c, nil, nil
	}
	resolved := Coordinate{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: version}
	files, err := o.Lister.List(ctx, filepath.Join(artifactDir, version), "")
	if err != nil {
		return resolved, nil, fmt.Errorf("failed to list %s: %w", resolved, err)
	}
	return resolved, cache.Archives(files), nil
}

// reportGaps reports every coordinate left without archives
func (o *Options) reportGaps(res *Resolution) {
	for _, c := range res.Order {
		if len(res.Archives[c]) == 0 {
			o.Gaps.Warn(c.gapKey(), "No archives in cache", "artifact", c.String())
		}
	}
}
