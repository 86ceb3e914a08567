package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// loadAssetTree reads every file under dir into a substitution map keyed
// by slash-separated relative path, mirroring the pakfile's internal
// paths.
func loadAssetTree(dir string) (map[string][]byte, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("assets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets path is not a directory: %s", dir)
	}

	assets := make(map[string][]byte)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read asset %s: %w", rel, err)
		}
		assets[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// findMaps expands the argument list into a sorted list of .bsp files.
// Directory arguments are walked recursively.
func findMaps(args []string) ([]string, error) {
	var maps []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			maps = append(maps, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".bsp") {
				maps = append(maps, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(maps)
	return maps, nil
}
