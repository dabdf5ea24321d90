package decode

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// descriptorSeparator is what the descriptor's non-UTF-8 field separator decodes to
const descriptorSeparator = '\uFFFD'

// MetadataArtifact is a coordinate found in a binary metadata descriptor.
// Transitive is set when the coordinate occurs more than once; this is an
// observed property of descriptor files rather than a documented one.
type MetadataArtifact struct {
	GroupID    string
	ArtifactID string
	Version    string
	Transitive bool
}

func (a MetadataArtifact) String() string {
	return fmt.Sprintf("%s:%s:%s", a.GroupID, a.ArtifactID, a.Version)
}

// DecodeMetadataDescriptor extracts (group, artifact, version) triples from
// descriptor.bin content, in order of first appearance.
func DecodeMetadataDescriptor(data []byte) []MetadataArtifact {
	fragments := strings.Split(strings.ToValidUTF8(string(data), string(descriptorSeparator)), string(descriptorSeparator))
	for i := range fragments {
		fragments[i] = strings.TrimSpace(fragments[i])
	}

	var artifacts []MetadataArtifact
	index := make(map[[3]string]int)

	for i := 2; i < len(fragments); i++ {
		if !looksLikeVersion(fragments[i]) {
			continue
		}
		groupID, artifactID := fragments[i-2], fragments[i-1]
		if !looksLikeIdentifier(groupID) || !looksLikeIdentifier(artifactID) {
			continue
		}

		key := [3]string{groupID, artifactID, fragments[i]}
		if pos, seen := index[key]; seen {
			artifacts[pos].Transitive = true
			continue
		}
		index[key] = len(artifacts)
		artifacts = append(artifacts, MetadataArtifact{
			GroupID:    groupID,
			ArtifactID: artifactID,
			Version:    fragments[i],
		})
	}

	return artifacts
}

// ReadMetadataDescriptor decodes the descriptor file at path
func ReadMetadataDescriptor(path string) ([]MetadataArtifact, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: metadata descriptor file doesn't exist: %s", ErrFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata descriptor: %w", err)
	}
	return DecodeMetadataDescriptor(data), nil
}

func looksLikeVersion(text string) bool {
	if text == "" || !unicode.IsDigit([]rune(text)[0]) {
		return false
	}
	return allowedChars(text)
}

func looksLikeIdentifier(text string) bool {
	if text == "" || !unicode.IsLetter([]rune(text)[0]) {
		return false
	}
	return allowedChars(text)
}

func allowedChars(text string) bool {
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' {
			return false
		}
	}
	return true
}
