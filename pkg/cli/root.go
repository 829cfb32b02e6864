package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/platinummonkey/warden/pkg/config"
)

// Env is what commands read from and write to
type Env struct {
	Out    io.Writer
	Err    io.Writer
	Lookup config.LookupFunc
}

// DefaultEnv uses the process streams and environment
func DefaultEnv() *Env {
	return &Env{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Lookup: os.LookupEnv,
	}
}

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	env         *Env
}

// Version is reported by the version command and the readiness probe
var Version = "dev"

// NewRootCommand creates the root command
func NewRootCommand(env *Env) *Command {
	if env == nil {
		env = DefaultEnv()
	}

	root := &Command{
		Name:        "warden",
		Description: "Warden - bearer token gate and configuration service",
		Subcommands: make(map[string]*Command),
		env:         env,
	}

	// Add subcommands
	root.Subcommands["serve"] = newServeCommand(env)
	root.Subcommands["token"] = newTokenCommand(env)
	root.Subcommands["password"] = newPasswordCommand(env)
	root.Subcommands["check-config"] = newCheckConfigCommand(env)
	root.Subcommands["version"] = &Command{
		Name:        "version",
		Description: "Print the version",
		Run: func(args []string) error {
			fmt.Fprintln(env.Out, Version)
			return nil
		},
	}

	return root
}

// Execute runs the subcommand named by args[0]. With no arguments the server
// is started.
func (c *Command) Execute(args []string) error {
	if len(args) == 0 {
		if serve, ok := c.Subcommands["serve"]; ok {
			return serve.Run(nil)
		}
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(c.env.Out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(c.env.Out, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(c.env.Out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
