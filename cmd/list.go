package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/pflag"

	"github.com/suprsokr/bsppatch/internal/pak"
)

// methodName maps ZIP compression method IDs to display names.
func methodName(method uint16) string {
	switch method {
	case 0:
		return "stored"
	case 8:
		return "deflated"
	case 12:
		return "bzip2"
	case pak.MethodLZMA:
		return "lzma"
	default:
		return fmt.Sprintf("method %d", method)
	}
}

func runList(args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("list: expected one map file")
	}

	arch, err := openPakfile(fs.Arg(0))
	if err != nil {
		return err
	}

	stats := make(map[uint16]int)
	files := 0
	for _, e := range arch.Entries() {
		if e.IsDir() {
			continue
		}
		stats[e.Method()]++
		files++
		fmt.Printf("  %-10s %10d  %s\n", methodName(e.Method()), e.UncompressedSize(), e.Name())
	}

	methods := make([]int, 0, len(stats))
	for m := range stats {
		methods = append(methods, int(m))
	}
	sort.Ints(methods)

	fmt.Printf("\n%d file(s) in pakfile\n", files)
	for _, m := range methods {
		fmt.Printf("  %s: %d\n", methodName(uint16(m)), stats[uint16(m)])
	}
	return nil
}
