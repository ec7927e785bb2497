package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"target":       true,
	"dist":         true,
}

// collect walks paths and returns every file with a known language, sorted
// by path. Files named directly are kept even when their language is
// unknown. A file that cannot be read is returned with Err set.
func collect(paths []string) ([]types.File, error) {
	var files []types.File
	add := func(path string) {
		f := types.File{Path: filepath.ToSlash(path), Language: analyzers.DetectLanguage(path)}
		f.Content, f.Err = os.ReadFile(path)
		files = append(files, f)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || analyzers.DetectLanguage(path) == "" {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}
