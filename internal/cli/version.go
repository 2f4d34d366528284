package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/blendup/pkg/selfupdate"
)

// Build information. Set with -ldflags at release time.
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for blendup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check whether a newer release is available")

	return cmd
}

func runVersion(cmd *cobra.Command, check bool) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "blendup version %s\n", Version)
	_, _ = fmt.Fprintf(out, "Build date: %s\n", BuildDate)
	_, _ = fmt.Fprintf(out, "Git commit: %s\n", GitCommit)

	if !check {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
	defer cancel()

	res, err := selfupdate.NewChecker(cfg.Settings.ReleaseFeedURL, selfupdate.WithUserAgent(cfg.Settings.UserAgent)).Check(ctx, Version)
	if err != nil {
		return fmt.Errorf("cannot check for updates: %w", err)
	}

	p := newPrinter(out, colorEnabled())
	if res.UpdateAvailable {
		p.Warn(fmt.Sprintf("A newer release is available: %s", res.Latest))
		if res.ReleaseURL != "" {
			p.Warn(res.ReleaseURL)
		}
		return nil
	}
	p.Success("blendup is up to date")
	return nil
}
