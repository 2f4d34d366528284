package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/index"
	"github.com/glorpus-work/blendup/pkg/platform"
	"github.com/glorpus-work/blendup/pkg/state"
)

// TabWidth is the width of tabs in formatted output.
const TabWidth = 2

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var osName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List builds available on the index",
		Long: `Fetch the build index and list every build published for an operating
system, newest version first. The last installed build is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, osName)
		},
	}

	cmd.Flags().StringVarP(&osName, "operatingsystem", "o", "", "Operating system: windows, linux or macos (default: autodetect)")

	return cmd
}

func runList(cmd *cobra.Command, osName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var target platform.OS
	if osName == "" {
		target, err = platform.Detect()
	} else {
		target, err = platform.ParseOS(osName)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidOS, err)
	}
	t := platform.TargetFor(target, cfg.Overrides())

	client := index.NewClient(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent)
	text, err := client.FetchIndex(cmd.Context(), cfg.Settings.BaseURL)
	if err != nil {
		return err
	}

	builds, err := index.ListBuilds(text, cfg.Settings.Product, t.Tag, t.Extension)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(builds) == 0 {
		_, _ = fmt.Fprintf(out, "No builds found for %s\n", t)
		return nil
	}

	installed, _ := state.NewStore(cfg.Settings.StateFile).Load()

	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VERSION\tFILENAME\tINSTALLED")
	for _, b := range builds {
		mark := ""
		if b.Filename == installed {
			mark = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Version, b.Filename, mark)
	}
	return tw.Flush()
}
