package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MissingFileError reports a log file argument that does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("The specified syslog file %q does not exist", e.Path)
}

// ExpandGlobs expands file paths and glob patterns into a sorted unique list.
// A literal path that does not exist yields a *MissingFileError.
func ExpandGlobs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, errors.New("no log files provided")
	}

	files := make([]string, 0, len(patterns))
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			if _, err := os.Stat(pattern); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil, &MissingFileError{Path: pattern}
				}
				return nil, err
			}
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, &MissingFileError{Path: pattern}
		}
		for _, match := range matches {
			add(match)
		}
	}

	sort.Strings(files)
	return files, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
