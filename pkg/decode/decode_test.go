package decode

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const transformsRoot = "/Users/dev/.gradle/caches/transforms-3/0a1b2c3d/transformed"

func TestDecodeTransformedCacheEntry(t *testing.T) {
	tests := []struct {
		path string
		want Entry
	}{
		{transformsRoot + "/jetified-play-services-ads-identifier-18.0.1-api.jar", Entry{"play-services-ads-identifier", "18.0.1"}},
		{transformsRoot + "/jetified-kotlin-stdlib-1.5.31.jar", Entry{"kotlin-stdlib", "1.5.31"}},
		{transformsRoot + "/ads-identifier-1.0.0-alpha03-api.jar", Entry{"ads-identifier", "1.0.0-alpha03"}},
		{transformsRoot + "/media-1.4.1.aar", Entry{"media", "1.4.1"}},
		{transformsRoot + "/jetified-core-icons-generated-25-1.54.4-oldlibverify-SNAPSHOT-api/jars/classes.jar", Entry{"core-icons-generated-25", "1.54.4-oldlibverify-SNAPSHOT"}},
		{transformsRoot + "/jetified-cameraview-5b2f0fff93-api.aar", Entry{"cameraview", "5b2f0fff93"}},
		{transformsRoot + "/appcompat-1.3.1/jars/libs/repackaged.jar", Entry{"appcompat", "1.3.1"}},
	}

	for _, tt := range tests {
		got, err := DecodeTransformedCacheEntry(tt.path)
		if err != nil {
			t.Fatalf("DecodeTransformedCacheEntry(%q) failed: %v", tt.path, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("DecodeTransformedCacheEntry(%q) mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestDecodeTransformedCacheEntry_PrefixSuffixIndependent(t *testing.T) {
	bases := []string{"recyclerview-1.2.1", "lifecycle-runtime-ktx-2.4.0-rc01", "cameraview-5b2f0fff93"}
	for _, base := range bases {
		variants := []string{
			base + ".jar",
			"jetified-" + base + ".jar",
			base + "-api.jar",
			"jetified-" + base + "-api.jar",
		}
		first, err := DecodeTransformedCacheEntry(transformsRoot + "/" + variants[0])
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		for _, variant := range variants[1:] {
			got, err := DecodeTransformedCacheEntry(transformsRoot + "/" + variant)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != first {
				t.Errorf("Variant %q decoded to %+v, expected %+v", variant, got, first)
			}
		}
	}
}

func TestDecodeTransformedCacheEntry_UnknownExtension(t *testing.T) {
	_, err := DecodeTransformedCacheEntry(transformsRoot + "/something.zip")
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestDecodePomPath(t *testing.T) {
	got, err := DecodePomPath("/home/dev/.gradle/caches/modules-2/files-2.1/com.squareup.okio/okio/2.10.0/abcdef/okio-2.10.0.pom")
	if err != nil {
		t.Fatalf("DecodePomPath failed: %v", err)
	}
	want := PomDescriptor{GroupID: "com.squareup.okio", ArtifactID: "okio", Version: "2.10.0"}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if _, err := DecodePomPath("okio/2.10.0/okio.pom"); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for short path, got %v", err)
	}
}

const samplePom = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <groupId>com.example</groupId>
  <artifactId>lib</artifactId>
  <version>1.2.3</version>
  <dependencies>
    <dependency>
      <groupId>org.jetbrains.kotlin</groupId>
      <artifactId>kotlin-stdlib</artifactId>
      <version>1.5.31</version>
      <exclusions>
        <exclusion>
          <groupId>org.jetbrains</groupId>
          <artifactId>annotations</artifactId>
        </exclusion>
      </exclusions>
    </dependency>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13</version>
      <scope>test</scope>
    </dependency>
    <dependency>
      <groupId>androidx.annotation</groupId>
      <artifactId>annotation</artifactId>
      <scope>RUNTIME</scope>
    </dependency>
  </dependencies>
</project>`

func TestParsePom(t *testing.T) {
	desc := PomDescriptor{GroupID: "com.example", ArtifactID: "lib", Version: "1.2.3"}
	pom, err := ParsePom(strings.NewReader(samplePom), desc)
	if err != nil {
		t.Fatalf("ParsePom failed: %v", err)
	}

	want := &Pom{
		Descriptor: desc,
		Dependencies: []PomDependency{
			{PomDescriptor{"org.jetbrains.kotlin", "kotlin-stdlib", "1.5.31"}, ScopeCompile},
			{PomDescriptor{"junit", "junit", "4.13"}, ScopeTest},
			{PomDescriptor{"androidx.annotation", "annotation", ""}, ScopeRuntime},
		},
	}
	if diff := cmp.Diff(want, pom); diff != "" {
		t.Errorf("Pom mismatch (-want +got):\n%s", diff)
	}
	if !pom.Dependencies[0].Scope.Transitive() || pom.Dependencies[1].Scope.Transitive() {
		t.Error("Only compile scope should be transitive")
	}
}

func TestParsePom_FormatViolations(t *testing.T) {
	tests := map[string]string{
		"missing groupId":    `<project><dependencies><dependency><artifactId>a</artifactId></dependency></dependencies></project>`,
		"missing artifactId": `<project><dependencies><dependency><groupId>g</groupId></dependency></dependencies></project>`,
		"unknown scope":      `<project><dependencies><dependency><groupId>g</groupId><artifactId>a</artifactId><scope>weird</scope></dependency></dependencies></project>`,
		"not xml":            `this is not a pom`,
	}
	for name, content := range tests {
		_, err := ParsePom(strings.NewReader(content), PomDescriptor{"g", "a", "1"})
		if !errors.Is(err, ErrFormat) {
			t.Errorf("%s: expected ErrFormat, got %v", name, err)
		}
	}
}

func TestParsePomFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "com.example", "lib", "1.2.3", "hash")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	path := filepath.Join(dir, "lib-1.2.3.pom")
	if err := os.WriteFile(path, []byte(samplePom), 0644); err != nil {
		t.Fatalf("Failed to write POM: %v", err)
	}

	pom, err := ParsePomFile(path)
	if err != nil {
		t.Fatalf("ParsePomFile failed: %v", err)
	}
	if pom.Descriptor.String() != "com.example:lib:1.2.3" {
		t.Errorf("Unexpected descriptor %s", pom.Descriptor)
	}
	if len(pom.Dependencies) != 3 {
		t.Errorf("Expected 3 dependencies, got %d", len(pom.Dependencies))
	}
}

func descriptorBytes(fields ...string) []byte {
	return []byte("\xff" + strings.Join(fields, "\xff") + "\xff")
}

func TestDecodeMetadataDescriptor(t *testing.T) {
	data := descriptorBytes(
		"com.example", "lib", "1.0.0",
		"junit", "junit", "4.13",
		" com.example ", "lib", "1.0.0",
		"not valid!", "x", "2.0",
		"1.0", "2.0", "3.0",
	)

	got := DecodeMetadataDescriptor(data)
	want := []MetadataArtifact{
		{GroupID: "com.example", ArtifactID: "lib", Version: "1.0.0", Transitive: true},
		{GroupID: "junit", ArtifactID: "junit", Version: "4.13"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMetadataDescriptor_Missing(t *testing.T) {
	_, err := ReadMetadataDescriptor(filepath.Join(t.TempDir(), "descriptor.bin"))
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}
