package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/platinummonkey/warden/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version string

func main() {
	if version != "" {
		cli.Version = version
	}

	rootCmd := cli.NewRootCommand(cli.DefaultEnv())

	if err := rootCmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
