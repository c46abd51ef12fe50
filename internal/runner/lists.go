// Package runner drives batches of template comparisons: it resolves
// probe and gallery file lists, fans matches out over a worker pool, and
// reports scores back through caller-supplied callbacks.
package runner

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ridgeline-data/match.report/internal/fsutil"
)

// ItemsFromPairFile reads an alternating probe/gallery list: odd lines are
// probes, even lines galleries. A trailing unmatched probe drops the list
// back to equal lengths with a warning, like the reference tool.
func ItemsFromPairFile(fsys fsutil.FileSystem, path string) (probes, galleries []string, err error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load pairs from file %s: %w", path, err)
	}

	for i, line := range splitLines(data) {
		if i%2 == 0 {
			probes = append(probes, line)
		} else {
			galleries = append(galleries, line)
		}
	}

	if len(probes) != len(galleries) {
		log.Printf("warning: %d probe files and %d gallery files (these should be equal), dropping the last probe", len(probes), len(galleries))
		probes = probes[:len(galleries)]
	}

	return probes, galleries, nil
}

// ItemsFromFile reads one path per line.
func ItemsFromFile(fsys fsutil.FileSystem, path string) ([]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load list from file %s: %w", path, err)
	}
	return splitLines(data), nil
}

// ItemsFromDirectory lists the .xyt files in a directory, sorted by path.
func ItemsFromDirectory(fsys fsutil.FileSystem, dir string) ([]string, error) {
	names, err := fsys.ReadDirNames(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list directory %s: %w", dir, err)
	}

	var files []string
	for _, name := range names {
		if strings.HasSuffix(name, ".xyt") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// ItemsFromFileOrDirectory resolves a path that may name either a list
// file or a directory of .xyt templates.
func ItemsFromFileOrDirectory(fsys fsutil.FileSystem, path string) ([]string, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path %q does not exist", path)
	}
	if info.IsDir() {
		return ItemsFromDirectory(fsys, path)
	}
	return ItemsFromFile(fsys, path)
}

func splitLines(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
