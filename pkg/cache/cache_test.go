package cache

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestDiscover(t *testing.T) {
	home := t.TempDir()
	for _, dir := range []string{
		"caches/modules-2/files-2.1",
		"caches/modules-2/metadata-2.97",
		"caches/transforms-3",
	} {
		if err := os.MkdirAll(filepath.Join(home, dir), 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	layout, err := Discover(home)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := &Layout{
		Caches:     filepath.Join(home, "caches"),
		Files:      filepath.Join(home, "caches/modules-2/files-2.1"),
		Metadata:   filepath.Join(home, "caches/modules-2/metadata-2.97"),
		Transforms: filepath.Join(home, "caches/transforms-3"),
	}
	if diff := cmp.Diff(want, layout); diff != "" {
		t.Errorf("Layout mismatch (-want +got):\n%s", diff)
	}
	if err := layout.RequireMetadata(); err != nil {
		t.Errorf("Expected metadata to be present: %v", err)
	}
}

func TestDiscover_Errors(t *testing.T) {
	if _, err := Discover(t.TempDir()); !errors.Is(err, ErrMissingRoot) {
		t.Errorf("Expected ErrMissingRoot for empty home, got %v", err)
	}

	home := t.TempDir()
	for _, dir := range []string{
		"caches/modules-2/files-2.1",
		"caches/transforms-2",
		"caches/transforms-3",
	} {
		if err := os.MkdirAll(filepath.Join(home, dir), 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	if _, err := Discover(home); !errors.Is(err, ErrAmbiguousRoot) {
		t.Errorf("Expected ErrAmbiguousRoot, got %v", err)
	}
}

func TestDiscover_OptionalRoots(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "caches/modules-2/files-2.1"), 0755); err != nil {
		t.Fatalf("Failed to create files dir: %v", err)
	}

	layout, err := Discover(home)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if layout.Transforms != "" || layout.Metadata != "" {
		t.Errorf("Expected optional roots to be empty, got %+v", layout)
	}
	if err := layout.RequireMetadata(); !errors.Is(err, ErrMissingRoot) {
		t.Errorf("Expected ErrMissingRoot for metadata, got %v", err)
	}
}

func listerFixture(t *testing.T) string {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "one.jar"))
	touch(t, filepath.Join(root, "a", "b", "two.jar"))
	touch(t, filepath.Join(root, "a", "b", "three.pom"))
	return root
}

func TestWalkLister(t *testing.T) {
	root := listerFixture(t)
	ctx := context.Background()

	jars, err := WalkLister{}.List(ctx, root, "*.jar")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{
		filepath.Join(root, "a", "b", "two.jar"),
		filepath.Join(root, "a", "one.jar"),
	}
	if diff := cmp.Diff(want, jars); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	all, err := WalkLister{}.List(ctx, root, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 files, got %d", len(all))
	}

	missing, err := WalkLister{}.List(ctx, filepath.Join(root, "missing"), "")
	if err != nil || missing != nil {
		t.Errorf("Expected empty result for missing root, got %v, %v", missing, err)
	}
}

func TestFindLister(t *testing.T) {
	if _, err := exec.LookPath("find"); err != nil {
		t.Skip("find not available")
	}
	root := listerFixture(t)

	walk, err := WalkLister{}.List(context.Background(), root, "*.jar")
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	found, err := FindLister{}.List(context.Background(), root, "*.jar")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if diff := cmp.Diff(walk, found); diff != "" {
		t.Errorf("Listers disagree (-walk +find):\n%s", diff)
	}
}

func TestParseResource(t *testing.T) {
	root := "/cache/files-2.1"
	res, ok := ParseResource(root, "/cache/files-2.1/com.example/lib/1.2.3/abc123/lib-1.2.3.jar")
	if !ok {
		t.Fatal("Expected path to parse")
	}
	want := Resource{
		Group:    "com.example",
		Artifact: "lib",
		Version:  "1.2.3",
		FileName: "lib-1.2.3.jar",
		FullPath: "/cache/files-2.1/com.example/lib/1.2.3/abc123/lib-1.2.3.jar",
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Resource mismatch (-want +got):\n%s", diff)
	}

	if _, ok := ParseResource(root, "/cache/files-2.1/com.example/lib/1.2.3/x.jar"); ok {
		t.Error("Expected short path to be rejected")
	}
	if _, ok := ParseResource(root, "/elsewhere/a/b/c/d/e.jar"); ok {
		t.Error("Expected path outside root to be rejected")
	}
}

func TestArchives(t *testing.T) {
	paths := []string{
		"/x/lib.jar",
		"/x/lib.aar",
		"/x/lib-sources.jar",
		"/x/lib-javadoc.jar",
		"/x/lib.pom",
	}
	if diff := cmp.Diff([]string{"/x/lib.jar", "/x/lib.aar"}, Archives(paths)); diff != "" {
		t.Errorf("Archives mismatch (-want +got):\n%s", diff)
	}
}
