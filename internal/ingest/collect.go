package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Collect returns the PDF files under root that match include and none of
// exclude. Patterns are doublestar globs matched against the slash
// separated path relative to root and against the base name.
func Collect(root string, include, exclude []string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if path != root && matchesAny(rel, exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && Matches(rel, include, exclude) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Resolve expands command line arguments: directories are collected,
// files are taken as given.
func Resolve(args []string, include, exclude []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		files, err := Collect(arg, include, exclude)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// Matches reports whether rel is a PDF selected by the filters. An empty
// include list selects every PDF.
func Matches(rel string, include, exclude []string) bool {
	if !strings.EqualFold(filepath.Ext(rel), ".pdf") {
		return false
	}
	if len(include) > 0 && !matchesAny(rel, include) {
		return false
	}
	return !matchesAny(rel, exclude)
}

func matchesAny(rel string, patterns []string) bool {
	normalized := filepath.ToSlash(rel)
	base := filepath.Base(normalized)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.PathMatch(pattern, normalized); err == nil && ok {
			return true
		}
		if ok, err := doublestar.PathMatch(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
