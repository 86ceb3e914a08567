package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/suprsokr/bsppatch/internal/bsp"
)

func runInfo(args []string) error {
	fs := pflag.NewFlagSet("info", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("info: expected one map file")
	}

	f, err := bsp.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("BSP version %d, revision %d, %d bytes\n\n", f.Header.Version, f.Header.MapRevision, f.Size())
	fmt.Printf("%4s  %10s  %10s  %7s  %10s  %s\n", "lump", "offset", "length", "version", "fourCC", "storage")

	for i := 0; i < bsp.HeaderLumps; i++ {
		lump := f.Header.Lumps[i]
		if lump.Offset == 0 || lump.Length == 0 {
			continue
		}
		comp := bsp.Classify(f.Lump(i))
		storage := comp.Scheme.String()
		if comp.Scheme == bsp.SchemeLZMA {
			storage = fmt.Sprintf("lzma (%d bytes raw)", comp.UncompressedSize)
		}
		fmt.Printf("%4d  %10d  %10d  %7d  %10d  %s\n",
			i, lump.Offset, lump.Length, lump.Version, lump.FourCC, storage)
	}
	return nil
}
