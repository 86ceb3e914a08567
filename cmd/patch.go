package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/suprsokr/bsppatch/internal/patcher"
)

func runPatch(args []string) error {
	fs := pflag.NewFlagSet("patch", pflag.ContinueOnError)
	assetsDir := fs.String("assets", "", "directory of replacement assets (relative paths mirror pakfile paths)")
	outputDir := fs.String("output", "", "output directory (default: <map dir>/output)")
	addMissing := fs.Bool("add-missing", false, "append assets not already present in the pakfile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *assetsDir == "" {
		return fmt.Errorf("patch: --assets is required")
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("patch: no map files or directories given")
	}

	subs, err := loadAssetTree(*assetsDir)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("no assets found under %s", *assetsDir)
	}
	fmt.Printf("Loaded %d replacement asset(s) from %s\n", len(subs), *assetsDir)

	maps, err := findMaps(fs.Args())
	if err != nil {
		return err
	}
	if len(maps) == 0 {
		return fmt.Errorf("no .bsp files found")
	}

	req := patcher.NewRequest(subs)
	req.AddMissing = *addMissing

	patched := 0
	failed := 0
	for _, mapPath := range maps {
		outDir := *outputDir
		if outDir == "" {
			outDir = filepath.Join(filepath.Dir(mapPath), "output")
		}
		outPath := filepath.Join(outDir, filepath.Base(mapPath))

		fmt.Printf("\nPatching %s...\n", filepath.Base(mapPath))
		res, err := patcher.PatchFile(mapPath, outPath, req)
		if err != nil {
			fmt.Printf("  ✗ %v\n", err)
			failed++
			continue
		}

		fmt.Printf("  ✓ %d substituted", res.Substituted)
		if res.Added > 0 {
			fmt.Printf(", %d added", res.Added)
		}
		fmt.Printf(", pakfile %d → %d bytes\n", res.OldLumpSize, res.NewLumpSize)
		for _, name := range res.Missing {
			fmt.Printf("  - not in pakfile, skipped: %s\n", name)
		}
		fmt.Printf("  → %s\n", outPath)
		patched++
	}

	fmt.Printf("\nPatched %d map(s)", patched)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d map(s) failed", failed)
	}
	return nil
}
