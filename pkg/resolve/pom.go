package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gradlecp/pkg/cache"
	"gradlecp/pkg/decode"
)

// PomResolver follows compile-scope dependencies declared in cached POM files
type PomResolver struct {
	opts Options

	mu      sync.Mutex
	results map[Coordinate]*Resolution
}

// NewPomResolver creates a POM-based resolver
func NewPomResolver(opts Options) *PomResolver {
	opts.defaults()
	return &PomResolver{opts: opts, results: make(map[Coordinate]*Resolution)}
}

// Resolve walks the POM graph from root. Post-processed archives replace the
// raw cache archives of every coordinate that has them.
func (p *PomResolver) Resolve(ctx context.Context, root Coordinate) (*Resolution, error) {
	p.mu.Lock()
	cached, ok := p.results[root]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	res := newResolution(root)
	if err := p.walk(ctx, root, res, make(map[Coordinate]bool)); err != nil {
		return nil, err
	}
	for _, c := range res.Order {
		if paths := p.opts.transformedPaths(c); len(paths) > 0 {
			res.Archives[c] = paths
		}
	}
	p.opts.reportGaps(res)

	p.mu.Lock()
	p.results[root] = res
	p.mu.Unlock()
	return res, nil
}

func (p *PomResolver) walk(ctx context.Context, c Coordinate, res *Resolution, visited map[Coordinate]bool) error {
	if visited[c] {
		return nil
	}
	visited[c] = true

	if err := ctx.Err(); err != nil {
		return err
	}

	artifactDir := filepath.Join(p.opts.Layout.Files, c.GroupID, c.ArtifactID)

	// Post-processed archives of the requested version win over any raw version
	if transformed := p.opts.transformedPaths(c); c.Version != "" && len(transformed) > 0 {
		res.add(c, transformed)
		_, pom, err := p.versionFiles(ctx, artifactDir, c)
		if err != nil || pom == "" {
			return err
		}
		return p.follow(ctx, c, pom, res, visited)
	}

	version, ok := Select(c.Version, cache.SubDirs(artifactDir), p.opts.Compare)
	if !ok {
		p.opts.Gaps.Warn(c.gapKey(), "Artifact not found in cache", "artifact", c.String())
		return nil
	}
	resolved := Coordinate{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: version}
	if resolved != c {
		if visited[resolved] {
			return nil
		}
		visited[resolved] = true
	}

	files, pom, err := p.versionFiles(ctx, artifactDir, resolved)
	if err != nil {
		return err
	}
	res.add(resolved, cache.Archives(files))

	if pom == "" {
		p.opts.Reporter.Debug("No POM", "artifact", resolved.String())
		return nil
	}
	return p.follow(ctx, resolved, pom, res, visited)
}

// versionFiles lists files-*/group/artifact/version and returns its only POM,
// or "" when there is none
func (p *PomResolver) versionFiles(ctx context.Context, artifactDir string, c Coordinate) ([]string, string, error) {
	files, err := p.opts.Lister.List(ctx, filepath.Join(artifactDir, c.Version), "")
	if err != nil {
		return nil, "", fmt.Errorf("failed to list %s: %w", c, err)
	}

	var poms []string
	for _, file := range files {
		if strings.HasSuffix(file, ".pom") {
			poms = append(poms, file)
		}
	}
	switch len(poms) {
	case 0:
		return files, "", nil
	case 1:
		return files, poms[0], nil
	default:
		return nil, "", fmt.Errorf("%w: more than one POM for %s: %v", ErrFormat, c, poms)
	}
}

func (p *PomResolver) follow(ctx context.Context, c Coordinate, pomPath string, res *Resolution, visited map[Coordinate]bool) error {
	pom, err := decode.ParsePomFile(pomPath)
	if err != nil {
		return fmt.Errorf("failed to parse POM of %s: %w", c, err)
	}

	for _, dep := range pom.Dependencies {
		if !dep.Scope.Transitive() {
			continue
		}
		child := Coordinate{GroupID: dep.GroupID, ArtifactID: dep.ArtifactID, Version: dep.Version}
		if err := p.walk(ctx, child, res, visited); err != nil {
			return err
		}
	}
	return nil
}
