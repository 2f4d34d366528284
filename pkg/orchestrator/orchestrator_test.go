package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/blendup/pkg/download"
	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/hook"
	"github.com/glorpus-work/blendup/pkg/model"
	ocmocks "github.com/glorpus-work/blendup/pkg/orchestrator/mocks"
	"github.com/glorpus-work/blendup/pkg/platform"
)

const (
	testBaseURL  = "https://builder.example/download/"
	testFilename = "blender-3.0.0-stable-windows64.zip"
	testIndex    = `<a href="blender-3.0.0-stable-windows64.zip">blender-3.0.0-stable-windows64.zip</a> other-junk`
)

type fixture struct {
	index     *ocmocks.MockIndexSource
	state     *ocmocks.MockStateStore
	dl        *ocmocks.MockFetcher
	extractor *ocmocks.MockExtractor
	installer *ocmocks.MockInstaller
	cleaner   *ocmocks.MockCleaner
	prompter  *ocmocks.MockPrompter
	hook      *ocmocks.MockPostInstallHook

	dest    string
	staging string
	events  []Event
}

func newFixture(t *testing.T) (*fixture, *Pipeline) {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		index:     ocmocks.NewMockIndexSource(ctrl),
		state:     ocmocks.NewMockStateStore(ctrl),
		dl:        ocmocks.NewMockFetcher(ctrl),
		extractor: ocmocks.NewMockExtractor(ctrl),
		installer: ocmocks.NewMockInstaller(ctrl),
		cleaner:   ocmocks.NewMockCleaner(ctrl),
		prompter:  ocmocks.NewMockPrompter(ctrl),
		hook:      ocmocks.NewMockPostInstallHook(ctrl),
		dest:      t.TempDir(),
		staging:   filepath.Join(t.TempDir(), "staging"),
	}

	p := &Pipeline{
		Index:     f.index,
		State:     f.state,
		DL:        f.dl,
		Extractor: f.extractor,
		Installer: f.installer,
		Cleaner:   f.cleaner,
		Prompter:  f.prompter,
		Hooks: Hooks{
			OnEvent: func(e Event) { f.events = append(f.events, e) },
		},
	}
	return f, p
}

func (f *fixture) options() model.Options {
	return model.Options{
		DestDir:    f.dest,
		StagingDir: f.staging,
		Version:    "3.0.0",
		OS:         "windows",
		BaseURL:    testBaseURL,
		Product:    "blender",
	}
}

func (f *fixture) archivePath() string {
	return filepath.Join(f.staging, testFilename)
}

func (f *fixture) payload() string {
	return filepath.Join(f.staging, "blender-3.0.0-windows64")
}

// expectInstall registers the full download, extract, copy, cleanup and
// save sequence.
func (f *fixture) expectInstall(keep bool) {
	gomock.InOrder(
		f.cleaner.EXPECT().Prepare(f.staging, keep).Return(nil),
		f.dl.EXPECT().Fetch(gomock.Any(), testBaseURL+testFilename, f.archivePath(), gomock.Any()).Return(f.archivePath(), nil),
		f.extractor.EXPECT().Extract(gomock.Any(), f.archivePath(), f.staging).Return(nil),
		f.installer.EXPECT().PayloadRoot(f.staging, testFilename).Return(f.payload(), nil),
		f.installer.EXPECT().Copy(f.payload(), f.dest).Return(nil),
		f.installer.EXPECT().MakeExecutable(f.dest, platform.OSWindows).Return(nil),
		f.cleaner.EXPECT().Cleanup(f.staging, f.payload(), keep).Return(nil),
		f.state.EXPECT().Save(testFilename).Return(nil),
	)
}

func (f *fixture) stages() []Stage {
	out := make([]Stage, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Stage)
	}
	return out
}

func TestRun_FreshInstall(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.expectInstall(false)

	var seen *model.InstallRequest
	p.Hooks.OnRequest = func(r *model.InstallRequest) { seen = r }

	res, err := p.Run(context.Background(), f.options())
	require.NoError(t, err)
	assert.True(t, res.Installed())
	assert.Equal(t, testFilename, res.Artifact.Filename)
	assert.Equal(t, StageDone, res.Stage)
	require.NotNil(t, seen)
	assert.Equal(t, platform.OSWindows, seen.Target.OS)

	assert.Equal(t, []Stage{
		StageParsingRequest,
		StageResolvingArtifact,
		StageCheckingIdempotency,
		StageFetching,
		StageExtracting,
		StageCopying,
		StageCleaningUp,
		StagePersistingState,
		StageDone,
	}, f.stages())
}

func TestRun_DifferentBuildInstalled(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("blender-2.93.0-stable-windows64.zip", true)
	f.expectInstall(false)

	res, err := p.Run(context.Background(), f.options())
	require.NoError(t, err)
	assert.True(t, res.Installed())
}

func TestRun_SkipWhenAlreadyInstalled(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return(testFilename, true)

	opts := f.options()
	opts.No = true

	res, err := p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Installed())
	assert.Equal(t, StageDone, res.Stage)
	assert.NotContains(t, f.stages(), StageFetching)
}

func TestRun_ForceReinstall(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return(testFilename, true)
	f.expectInstall(true)

	opts := f.options()
	opts.Yes = true
	opts.KeepArchive = true

	res, err := p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Installed())
}

func TestRun_PromptAnswers(t *testing.T) {
	tests := []struct {
		name     string
		answer   bool
		declined bool
	}{
		{name: "yes reinstalls", answer: true},
		{name: "no declines", answer: false, declined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, p := newFixture(t)
			f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
			f.state.EXPECT().Load().Return(testFilename, true)
			f.prompter.EXPECT().Confirm(gomock.Any()).DoAndReturn(func(q string) (bool, error) {
				assert.Contains(t, q, testFilename)
				return tt.answer, nil
			})
			if !tt.declined {
				f.expectInstall(false)
			}

			res, err := p.Run(context.Background(), f.options())
			require.NoError(t, err)
			assert.Equal(t, tt.declined, res.Declined)
			assert.Equal(t, !tt.declined, res.Installed())
		})
	}
}

func TestRun_PromptError(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return(testFilename, true)
	f.prompter.EXPECT().Confirm(gomock.Any()).Return(false, fmt.Errorf("terminal gone"))

	res, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.Equal(t, StageFailed, res.Stage)
}

func TestRun_PromptWithoutPrompter(t *testing.T) {
	f, p := newFixture(t)
	p.Prompter = nil
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return(testFilename, true)

	_, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.Equal(t, errors.ExitInvalidConfig, errors.ExitCode(err))
}

func TestRun_IndexFailureTouchesNothing(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return("", fmt.Errorf("%w: connection refused", errors.ErrNetwork))

	res, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.Equal(t, errors.ExitNetwork, errors.ExitCode(err))
	assert.Equal(t, StageFailed, res.Stage)

	last := f.events[len(f.events)-1]
	assert.Equal(t, StageFailed, last.Stage)
	assert.Equal(t, string(StageResolvingArtifact), last.Msg)
	assert.Error(t, last.Err)
}

func TestRun_NoMatchingBuild(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return("blender-2.93.0-stable-linux64.tar.xz", nil)

	_, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	assert.Equal(t, errors.ExitNotFound, errors.ExitCode(err))
}

func TestRun_InvalidOptions(t *testing.T) {
	f, p := newFixture(t)
	opts := f.options()
	opts.DestDir = filepath.Join(f.dest, "does-not-exist")
	opts.Yes = true
	opts.No = true

	res, err := p.Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, errors.ExitInvalidConfig, errors.ExitCode(err))
	assert.True(t, stderrors.Is(err, errors.ErrConflictingPolicy))
	assert.Nil(t, res.Request)
	assert.Equal(t, []Stage{StageParsingRequest, StageFailed}, f.stages())
}

func TestRun_DownloadFailureStopsPipeline(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.cleaner.EXPECT().Prepare(f.staging, false).Return(nil)
	f.dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.ErrDownloadFailed)

	res, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDownloadFailed))
	assert.Equal(t, StageFailed, res.Stage)
	assert.NotContains(t, f.stages(), StageExtracting)
}

func TestRun_StagingFailureReportsFetching(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.cleaner.EXPECT().Prepare(f.staging, false).Return(errors.ErrFilesystem)

	res, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.Equal(t, errors.ExitFilesystem, errors.ExitCode(err))
	assert.Equal(t, StageFailed, res.Stage)

	last := f.events[len(f.events)-1]
	assert.Equal(t, StageFailed, last.Stage)
	assert.Equal(t, string(StageFetching), last.Msg)
}

func TestRun_MalformedArchive(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.cleaner.EXPECT().Prepare(f.staging, false).Return(nil)
	f.dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(f.archivePath(), nil)
	f.extractor.EXPECT().Extract(gomock.Any(), f.archivePath(), f.staging).Return(nil)
	f.installer.EXPECT().PayloadRoot(f.staging, testFilename).Return("", errors.ErrMalformedArchive)

	_, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.Equal(t, errors.ExitArchive, errors.ExitCode(err))
}

func TestRun_CleanupFailureIsNotFatal(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	cleanupErr := fmt.Errorf("%w: permission denied", errors.ErrFilesystem)
	gomock.InOrder(
		f.cleaner.EXPECT().Prepare(f.staging, false).Return(nil),
		f.dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(f.archivePath(), nil),
		f.extractor.EXPECT().Extract(gomock.Any(), f.archivePath(), f.staging).Return(nil),
		f.installer.EXPECT().PayloadRoot(f.staging, testFilename).Return(f.payload(), nil),
		f.installer.EXPECT().Copy(f.payload(), f.dest).Return(nil),
		f.installer.EXPECT().MakeExecutable(f.dest, platform.OSWindows).Return(nil),
		f.cleaner.EXPECT().Cleanup(f.staging, f.payload(), false).Return(cleanupErr),
		f.state.EXPECT().Save(testFilename).Return(nil),
	)

	res, err := p.Run(context.Background(), f.options())
	require.NoError(t, err)
	assert.True(t, res.Installed())
	assert.Equal(t, cleanupErr, res.CleanupErr)

	var warned bool
	for _, e := range f.events {
		if e.Stage == StageCleaningUp && e.Err != nil {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRun_StateSaveFailure(t *testing.T) {
	f, p := newFixture(t)
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.cleaner.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil)
	f.dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(f.archivePath(), nil)
	f.extractor.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.installer.EXPECT().PayloadRoot(gomock.Any(), gomock.Any()).Return(f.payload(), nil)
	f.installer.EXPECT().Copy(gomock.Any(), gomock.Any()).Return(nil)
	f.installer.EXPECT().MakeExecutable(gomock.Any(), gomock.Any()).Return(nil)
	f.cleaner.EXPECT().Cleanup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.state.EXPECT().Save(testFilename).Return(fmt.Errorf("%w: read-only", errors.ErrFilesystem))

	res, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.Equal(t, errors.ExitFilesystem, errors.ExitCode(err))
	assert.Equal(t, StageFailed, res.Stage)
}

func TestRun_PostInstallHook(t *testing.T) {
	f, p := newFixture(t)
	p.Hook = f.hook
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.cleaner.EXPECT().Prepare(f.staging, false).Return(nil)
	f.dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(f.archivePath(), nil)
	f.extractor.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.installer.EXPECT().PayloadRoot(gomock.Any(), gomock.Any()).Return(f.payload(), nil)
	f.installer.EXPECT().Copy(gomock.Any(), gomock.Any()).Return(nil)
	f.installer.EXPECT().MakeExecutable(gomock.Any(), gomock.Any()).Return(nil)
	f.hook.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, hc hook.Context) error {
		assert.Equal(t, testFilename, hc.Filename)
		assert.Equal(t, "3.0.0", hc.Version)
		assert.Equal(t, f.dest, hc.DestDir)
		assert.Equal(t, "windows", hc.OS)
		assert.Equal(t, filepath.Join(f.dest, "blender.exe"), hc.Executable)
		return nil
	})
	f.cleaner.EXPECT().Cleanup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.state.EXPECT().Save(testFilename).Return(nil)

	res, err := p.Run(context.Background(), f.options())
	require.NoError(t, err)
	assert.True(t, res.Installed())
	assert.Contains(t, f.stages(), StagePostInstall)
}

func TestRun_PostInstallHookFailureIsFatal(t *testing.T) {
	f, p := newFixture(t)
	p.Hook = f.hook
	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.cleaner.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil)
	f.dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(f.archivePath(), nil)
	f.extractor.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.installer.EXPECT().PayloadRoot(gomock.Any(), gomock.Any()).Return(f.payload(), nil)
	f.installer.EXPECT().Copy(gomock.Any(), gomock.Any()).Return(nil)
	f.installer.EXPECT().MakeExecutable(gomock.Any(), gomock.Any()).Return(nil)
	f.hook.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: script", errors.ErrHook))

	_, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrHook))
}

func TestRun_ProgressCallbackIsForwarded(t *testing.T) {
	f, p := newFixture(t)
	var calls int
	p.Hooks.OnProgress = func(download.Progress) { calls++ }

	f.index.EXPECT().FetchIndex(gomock.Any(), testBaseURL).Return(testIndex, nil)
	f.state.EXPECT().Load().Return("", false)
	f.cleaner.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(nil)
	f.dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _, dest string, onProgress download.ProgressFunc) (string, error) {
			require.NotNil(t, onProgress)
			onProgress(download.Progress{Chunks: 1, Total: 2})
			onProgress(download.Progress{Chunks: 2, Total: 2})
			return dest, nil
		})
	f.extractor.EXPECT().Extract(gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: corrupt", errors.ErrArchive))

	_, err := p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRun_MissingCollaborator(t *testing.T) {
	_, p := newFixture(t)
	p.DL = nil

	res, err := p.Run(context.Background(), model.Options{})
	require.Error(t, err)
	assert.Nil(t, res)
}
