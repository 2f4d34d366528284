package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/blendup/internal/logger"
	"github.com/glorpus-work/blendup/pkg/archive"
	"github.com/glorpus-work/blendup/pkg/config"
	"github.com/glorpus-work/blendup/pkg/download"
	"github.com/glorpus-work/blendup/pkg/hook"
	"github.com/glorpus-work/blendup/pkg/index"
	"github.com/glorpus-work/blendup/pkg/installer"
	"github.com/glorpus-work/blendup/pkg/model"
	"github.com/glorpus-work/blendup/pkg/orchestrator"
	"github.com/glorpus-work/blendup/pkg/selfupdate"
	"github.com/glorpus-work/blendup/pkg/staging"
	"github.com/glorpus-work/blendup/pkg/state"
)

// updateCheckTimeout bounds the release feed query made before an update.
const updateCheckTimeout = 5 * time.Second

// UpdateFlags holds the flags of an update run. The root command binds the
// same set so "blendup -p DIR -b VERSION" keeps working.
type UpdateFlags struct {
	Path            string
	Version         string
	OS              string
	StagingDir      string
	Keep            bool
	Run             bool
	Yes             bool
	No              bool
	SkipUpdateCheck bool
}

// BindUpdateFlags registers the update flags on cmd.
func BindUpdateFlags(cmd *cobra.Command, f *UpdateFlags) {
	cmd.Flags().StringVarP(&f.Path, "path", "p", "", "Destination path")
	cmd.Flags().StringVarP(&f.Version, "blender", "b", "", "Desired version, for example '-b 2.82'")
	cmd.Flags().StringVarP(&f.OS, "operatingsystem", "o", "", "Operating system: windows, linux or macos (default: autodetect)")
	cmd.Flags().StringVar(&f.StagingDir, "temp", "", "Staging directory for download and extraction (default from config)")
	cmd.Flags().BoolVarP(&f.Keep, "keep", "k", false, "Keep temporary downloaded archive file")
	cmd.Flags().BoolVarP(&f.Run, "run", "r", false, "Run the installed build when finished")
	cmd.Flags().BoolVarP(&f.Yes, "yes", "y", false, "Install even if version already installed")
	cmd.Flags().BoolVarP(&f.No, "no", "n", false, "Don't install if version already installed")
	cmd.Flags().BoolVar(&f.SkipUpdateCheck, "skip-update-check", false, "Do not check for a newer blendup release")
}

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	var flags UpdateFlags

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download and install a build",
		Long: `Resolve the requested version on the build index, download the matching
archive, extract it and copy it into the destination directory.

The last installed build is remembered; asking for it again prompts before
reinstalling unless --yes or --no is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunUpdate(cmd, flags)
		},
	}
	BindUpdateFlags(cmd, &flags)

	return cmd
}

// RunUpdate executes one update run with the given flags.
func RunUpdate(cmd *cobra.Command, flags UpdateFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	stagingDir := flags.StagingDir
	if stagingDir == "" {
		stagingDir = cfg.Settings.StagingDir
	}
	opts := model.Options{
		DestDir:     flags.Path,
		StagingDir:  stagingDir,
		Version:     flags.Version,
		OS:          flags.OS,
		KeepArchive: flags.Keep,
		Run:         flags.Run,
		Yes:         flags.Yes,
		No:          flags.No,
		BaseURL:     cfg.Settings.BaseURL,
		Product:     cfg.Settings.Product,
		Overrides:   cfg.Overrides(),
	}

	// Bad input is reported before anything touches the network.
	if _, err := model.NewInstallRequest(opts); err != nil {
		newPrinter(out, colorEnabled()).Error("Invalid settings, nothing was done")
		return err
	}

	if cfg.Settings.CheckForUpdates && !flags.SkipUpdateCheck {
		checkForNewRelease(ctx, cfg, newPrinter(out, colorEnabled()))
	}

	store := state.NewStore(cfg.Settings.StateFile)
	pipeline, err := newPipeline(cfg, store, cmd.InOrStdin(), out)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		newPrinter(out, colorEnabled()).Error("Update aborted (check above for details)")
		return err
	}

	p := newPrinter(out, colorEnabled())
	switch {
	case res.Skipped:
		p.Println("This version is already installed. -n option present, exiting...")
		return nil
	case res.Declined:
		return nil
	}
	p.Println("Installed build recorded in " + store.Path())

	if res.Request.Run {
		exe := installer.ExecutablePath(res.Request.DestDir, res.Request.Target.OS)
		p.Option("Starting up " + res.Request.Product + "...")
		if err := launch(exe); err != nil {
			return err
		}
	}
	return nil
}

// newPipeline wires the production collaborators into a pipeline.
func newPipeline(cfg *config.Config, store *state.Store, in io.Reader, out io.Writer) (*orchestrator.Pipeline, error) {
	s := cfg.Settings
	p := &orchestrator.Pipeline{
		Index:     index.NewClient(s.HTTPTimeout, s.UserAgent),
		State:     store,
		DL:        download.NewFetcher(s.HTTPTimeout, s.UserAgent),
		Extractor: archive.NewManager(),
		Installer: installer.New(),
		Cleaner:   staging.NewCleaner(),
		Prompter:  newLinePrompter(in, out),
		Hooks:     newReporter(out, colorEnabled()).hooks(),
	}

	if s.PostInstallHook != "" {
		h, err := hook.Load(s.PostInstallHook)
		if err != nil {
			return nil, err
		}
		p.Hook = h
	}
	return p, nil
}

func checkForNewRelease(ctx context.Context, cfg *config.Config, p *printer) {
	ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
	defer cancel()

	res, err := selfupdate.NewChecker(cfg.Settings.ReleaseFeedURL, selfupdate.WithUserAgent(cfg.Settings.UserAgent)).Check(ctx, Version)
	if err != nil {
		logger.Debug("Release check failed", logger.Fields{"error": err.Error()})
		p.Section("NOTICE")
		p.Println("Cannot check for updates.")
		return
	}
	if res.UpdateAvailable {
		p.Section("NOTICE")
		p.Warn("Updated version of blendup found.")
		p.Warn(fmt.Sprintf("Current: %s - Latest: %s", res.Current, res.Latest))
		if res.ReleaseURL != "" {
			p.Warn("Download it from " + res.ReleaseURL)
		}
	}
}
