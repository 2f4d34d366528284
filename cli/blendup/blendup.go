package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/blendup/internal/cli"
	"github.com/glorpus-work/blendup/pkg/errors"
)

var (
	configPath string
	verbose    bool
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(errors.ExitCode(err))
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	var flags cli.UpdateFlags

	cmd := &cobra.Command{
		Use:   "blendup",
		Short: "Download and install Blender builds",
		Long: `blendup fetches a named build from the Blender builder download page,
installs it into a directory and remembers the last installed build so
redundant reinstalls are avoided.

Running blendup with -p and -b is the same as "blendup update".`,
		Version:       cli.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.Path == "" && flags.Version == "" {
				return cmd.Help()
			}
			return cli.RunUpdate(cmd, flags)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cli.BindUpdateFlags(cmd, &flags)

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor

	cmd.AddCommand(
		cli.NewUpdateCmd(),
		cli.NewListCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
