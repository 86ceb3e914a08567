package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
)

const usage = `bsppatch - embed server assets into compiled Source maps

Usage:
  bsppatch <command> [flags] [args]

Commands:
  patch     Substitute assets inside the pakfile of one or more maps
  extract   Extract a map's pakfile contents to a directory
  list      List pakfile entries and their compression methods
  info      Show a map's lump directory
  skyname   Rewrite the skyname in a map's entity lump

Run 'bsppatch <command> -h' for command flags.
`

// Execute parses CLI arguments and dispatches to the appropriate command.
func Execute(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	var err error
	switch args[0] {
	case "patch":
		err = runPatch(args[1:])
	case "extract":
		err = runExtract(args[1:])
	case "list":
		err = runList(args[1:])
	case "info":
		err = runInfo(args[1:])
	case "skyname":
		err = runSkyname(args[1:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Print(usage)
		err = fmt.Errorf("unknown command: %s", args[0])
	}
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}
