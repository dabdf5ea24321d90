package resolve

import (
	"context"
	"path/filepath"
	"sync"
	"unicode"

	"gradlecp/pkg/cache"
	"gradlecp/pkg/decode"
)

const descriptorFile = "descriptor.bin"

// MetadataResolver follows the edges recorded in binary metadata descriptors.
// Descriptors and resolutions are memoized, so the resolver is meant to be
// shared between modules.
type MetadataResolver struct {
	opts Options

	mu          sync.Mutex
	descriptors map[Coordinate][]decode.MetadataArtifact
	results     map[Coordinate]*Resolution
}

// NewMetadataResolver creates a descriptor-based resolver
func NewMetadataResolver(opts Options) *MetadataResolver {
	opts.defaults()
	return &MetadataResolver{
		opts:        opts,
		descriptors: make(map[Coordinate][]decode.MetadataArtifact),
		results:     make(map[Coordinate]*Resolution),
	}
}

// Resolve collects the root and every artifact listed in its descriptor,
// recursing through artifacts flagged transitive. A root without a
// descriptor is looked up in the package cache directly.
func (m *MetadataResolver) Resolve(ctx context.Context, root Coordinate) (*Resolution, error) {
	m.mu.Lock()
	cached, ok := m.results[root]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	res := newResolution(root)
	found, err := m.collect(ctx, root, res, make(map[Coordinate]bool))
	if err != nil {
		return nil, err
	}
	if !found {
		m.opts.Reporter.Debug("No metadata, using package cache", "artifact", root.String())
		if err := m.addArtifact(ctx, root, res); err != nil {
			return nil, err
		}
	}
	m.opts.reportGaps(res)

	m.mu.Lock()
	m.results[root] = res
	m.mu.Unlock()
	return res, nil
}

func (m *MetadataResolver) collect(ctx context.Context, c Coordinate, res *Resolution, visited map[Coordinate]bool) (bool, error) {
	if visited[c] {
		return true, nil
	}
	visited[c] = true

	if err := ctx.Err(); err != nil {
		return false, err
	}

	artifactDir := filepath.Join(m.opts.Layout.Descriptors(), c.GroupID, c.ArtifactID)
	version, ok := Select(c.Version, versionDirs(artifactDir), m.opts.Compare)
	if !ok {
		return false, nil
	}
	resolved := Coordinate{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: version}

	artifacts, err := m.descriptor(resolved, filepath.Join(artifactDir, version))
	if err != nil {
		return false, err
	}

	if err := m.addArtifact(ctx, resolved, res); err != nil {
		return false, err
	}
	for _, artifact := range artifacts {
		child := Coordinate{GroupID: artifact.GroupID, ArtifactID: artifact.ArtifactID, Version: artifact.Version}
		if err := m.addArtifact(ctx, child, res); err != nil {
			return false, err
		}
		if !artifact.Transitive || visited[child] {
			continue
		}
		res.LowConfidence = true
		if _, err := m.collect(ctx, child, res, visited); err != nil {
			return false, err
		}
	}
	return true, nil
}

// descriptor reads <versionDir>/<first hash>/descriptor.bin once per coordinate
func (m *MetadataResolver) descriptor(c Coordinate, versionDir string) ([]decode.MetadataArtifact, error) {
	m.mu.Lock()
	artifacts, ok := m.descriptors[c]
	m.mu.Unlock()
	if ok {
		return artifacts, nil
	}

	hash := ""
	if hashes := cache.SubDirs(versionDir); len(hashes) > 0 {
		hash = hashes[0]
	}
	artifacts, err := decode.ReadMetadataDescriptor(filepath.Join(versionDir, hash, descriptorFile))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.descriptors[c] = artifacts
	m.mu.Unlock()
	return artifacts, nil
}

// addArtifact records the archives of one artifact, preferring
// post-processed archives over the package cache
func (m *MetadataResolver) addArtifact(ctx context.Context, c Coordinate, res *Resolution) error {
	if _, done := res.Archives[c]; done {
		return nil
	}
	if paths := m.opts.transformedPaths(c); len(paths) > 0 {
		res.add(c, paths)
		return nil
	}
	resolved, archives, err := m.opts.supportArchives(ctx, c)
	if err != nil {
		return err
	}
	if resolved != c && len(archives) > 0 {
		m.opts.Reporter.Debug("Using fallback version", "artifact", c.String(), "version", resolved.Version)
	}
	res.add(c, archives)
	return nil
}

// versionDirs lists the subdirectories of dir whose names start with a digit
func versionDirs(dir string) []string {
	var versions []string
	for _, name := range cache.SubDirs(dir) {
		if name != "" && unicode.IsDigit(rune(name[0])) {
			versions = append(versions, name)
		}
	}
	return versions
}
