// Package archive builds Walk abstraction on top of "archive/zip" for OPC
// packages.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each part in archive
// visited by Walk. If an error is returned, processing stops.
type WalkFunc func(file *zip.File) error

// MatchFunc decides if part with a given name should be visited.
type MatchFunc func(name string) bool

// Prefix returns MatchFunc selecting parts under the given path.
func Prefix(pattern string) MatchFunc {
	return func(name string) bool {
		return strings.HasPrefix(name, pattern)
	}
}

// All selects every part.
func All(string) bool { return true }

// Walk walks all files in the archive at path which satisfy match condition,
// calling walkFn for each item.
func Walk(archive string, match MatchFunc, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()
	return walk(&r.Reader, match, walkFn)
}

// WalkReader is Walk for archives already in memory or otherwise randomly
// accessible.
func WalkReader(ra io.ReaderAt, size int64, match MatchFunc, walkFn WalkFunc) error {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return err
	}
	return walk(r, match, walkFn)
}

func walk(r *zip.Reader, match MatchFunc, walkFn WalkFunc) error {
	for _, f := range r.File {
		name := f.FileHeader.Name
		// Zip Slip, parts never legitimately escape package root
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !match(name) {
			continue
		}
		if err := walkFn(f); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile returns complete content of archive entry.
func ReadFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", f.Name, err)
	}
	return data, nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
