package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/suprsokr/bsppatch/internal/bsp"
	"github.com/suprsokr/bsppatch/internal/pak"
)

// openPakfile opens a map and returns its pakfile archive.
func openPakfile(mapPath string) (*pak.Archive, error) {
	f, err := bsp.Open(mapPath)
	if err != nil {
		return nil, err
	}
	lump := f.Lump(bsp.LumpPakfile)
	if lump == nil {
		return nil, fmt.Errorf("map has no pakfile lump")
	}
	raw, err := bsp.Decompress(lump, bsp.Classify(lump))
	if err != nil {
		return nil, fmt.Errorf("pakfile lump: %w", err)
	}
	return pak.Open(raw)
}

func runExtract(args []string) error {
	fs := pflag.NewFlagSet("extract", pflag.ContinueOnError)
	outputDir := fs.String("output", "", "output directory (default: map name without extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("extract: expected one map file")
	}
	mapPath := fs.Arg(0)

	outDir := *outputDir
	if outDir == "" {
		outDir = strings.TrimSuffix(filepath.Base(mapPath), filepath.Ext(mapPath))
	}

	arch, err := openPakfile(mapPath)
	if err != nil {
		return err
	}

	files := 0
	for _, e := range arch.Entries() {
		target := filepath.Join(outDir, filepath.FromSlash(e.Name()))
		if e.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", e.Name(), err)
			}
			continue
		}
		content, err := arch.Content(e.Name())
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
		files++
	}

	fmt.Printf("Extracted %d file(s) from pakfile to %s\n", files, outDir)
	return nil
}
