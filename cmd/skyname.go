package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/suprsokr/bsppatch/internal/patcher"
)

func runSkyname(args []string) error {
	fs := pflag.NewFlagSet("skyname", pflag.ContinueOnError)
	name := fs.String("name", "", "skybox name to set (materials/skybox/<name>*.vmt)")
	output := fs.String("output", "", "output map file (default: <map>.patched.bsp)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("skyname: --name is required")
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("skyname: expected one map file")
	}
	mapPath := fs.Arg(0)

	outPath := *output
	if outPath == "" {
		outPath = mapPath + ".patched.bsp"
	}

	old, err := patcher.SetSkynameFile(mapPath, outPath, *name)
	if err != nil {
		return err
	}

	fmt.Printf("Skyname %q → %q\n", old, *name)
	fmt.Printf("Wrote %s\n", outPath)
	fmt.Printf("Ship skybox materials as: materials/skybox/%s*.vmt\n", *name)
	return nil
}
