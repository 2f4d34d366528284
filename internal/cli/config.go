package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/blendup/internal/logger"
	"github.com/glorpus-work/blendup/pkg/config"
	"github.com/glorpus-work/blendup/pkg/errors"
)

// setArgs is KEY and VALUE.
const setArgs = 2

// NewConfigCmd creates the config command. Every subcommand works on the file
// selected by --config, or the per-user default.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect and edit the blendup configuration file.

Settings are addressed by key, for example:
  blendup config set http_timeout 30s
  blendup config get base_url`,
	}

	var (
		asYAML bool
		force  bool
	)

	show := &cobra.Command{
		Use:   "show",
		Short: "Print every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd, asYAML)
		},
	}
	show.Flags().BoolVar(&asYAML, "yaml", false, "Print the file contents as YAML")

	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getSetting(cmd, args[0])
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting",
		Long:  "Change one setting. The file is only written when the result is valid.",
		Args:  cobra.ExactArgs(setArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			return setSetting(args[0], args[1])
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default settings",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), getConfigPath())
		},
	}

	cmd.AddCommand(show, get, set, initCmd, path)
	return cmd
}

func showConfig(cmd *cobra.Command, asYAML bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if asYAML {
		data, err := cfg.ToYAML()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	values := cfg.ToMap()
	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SETTING\tVALUE")
	for _, key := range config.Keys() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", key, values[key])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(cfg.Platforms) == 0 {
		return nil
	}
	names := make([]string, 0, len(cfg.Platforms))
	for name := range cfg.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)

	_, _ = fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PLATFORM\tTAG\tEXTENSION")
	for _, name := range names {
		p := cfg.Platforms[name]
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, p.Tag, p.Extension)
	}
	return tw.Flush()
}

func getSetting(cmd *cobra.Command, key string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	value, err := cfg.GetValue(key)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func setSetting(key, value string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.SetValue(key, value); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	path := getConfigPath()
	if err := cfg.SaveConfig(path); err != nil {
		return err
	}
	logger.Success("Setting saved", logger.Fields{"key": key, "value": value, "path": path})
	return nil
}

func initConfig(force bool) error {
	path := getConfigPath()
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s (use --force to replace it)", errors.ErrConfigFileExists, path)
	}

	if err := config.DefaultConfig().SaveConfig(path); err != nil {
		return err
	}
	logger.Success("Configuration file written", logger.Fields{"path": path})
	return nil
}
