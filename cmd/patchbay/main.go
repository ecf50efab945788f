// Command patchbay renders, plays and serves modular audio patches.
//
// Usage:
//
//	patchbay [command] [flags]
//
// Examples:
//
//	patchbay new demo -o demo.json
//	patchbay render demo.json -o demo.wav --bars 4
//	patchbay play demo.json
//	patchbay serve --listen :8765
//	patchbay library put groove demo.json
package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/algo-patch/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "patchbay:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
