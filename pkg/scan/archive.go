package scan

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

const classSuffix = ".class"

// packageName turns a class file path relative to its root into a dotted name
func packageName(rel string) string {
	return strings.ReplaceAll(strings.TrimSuffix(rel, classSuffix), "/", ".")
}

// archiveClasses lists the class names inside a jar, or inside the
// classes.jar and libs/*.jar nested in an aar
func archiveClasses(archivePath string) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer reader.Close()

	if strings.HasSuffix(archivePath, ".aar") {
		return aarClasses(&reader.Reader)
	}
	return zipClasses(&reader.Reader), nil
}

func zipClasses(r *zip.Reader) []string {
	var names []string
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, classSuffix) || strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		names = append(names, packageName(f.Name))
	}
	return names
}

func aarClasses(r *zip.Reader) ([]string, error) {
	var names []string
	for _, f := range r.File {
		if !isNestedJar(f.Name) {
			continue
		}
		nested, err := openNested(f)
		if err != nil {
			return nil, err
		}
		names = append(names, zipClasses(nested)...)
	}
	return names, nil
}

func isNestedJar(name string) bool {
	if name == "classes.jar" {
		return true
	}
	dir, file := path.Split(name)
	return dir == "libs/" && strings.HasSuffix(file, ".jar")
}

func openNested(f *zip.File) (*zip.Reader, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	nested, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read nested archive %s: %w", f.Name, err)
	}
	return nested, nil
}
