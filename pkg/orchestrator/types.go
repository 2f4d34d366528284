//go:generate mockgen -destination=./mocks/orchestrator.go . IndexSource,StateStore,Fetcher,Extractor,Installer,Cleaner,Prompter,PostInstallHook

package orchestrator

import (
	"context"

	"github.com/glorpus-work/blendup/pkg/download"
	"github.com/glorpus-work/blendup/pkg/hook"
	"github.com/glorpus-work/blendup/pkg/model"
	"github.com/glorpus-work/blendup/pkg/platform"
)

// IndexSource returns the raw text of the build index page.
type IndexSource interface {
	FetchIndex(ctx context.Context, baseURL string) (string, error)
}

// StateStore remembers the last installed build.
type StateStore interface {
	Load() (string, bool)
	Save(filename string) error
}

// Fetcher downloads the resolved archive.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string, onProgress download.ProgressFunc) (string, error)
}

// Extractor unpacks an archive.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Installer moves the extracted payload to the destination.
type Installer interface {
	PayloadRoot(stagingDir, archiveName string) (string, error)
	Copy(src, dst string) error
	MakeExecutable(destDir string, target platform.OS) error
}

// Cleaner manages the staging directory.
type Cleaner interface {
	Prepare(dir string, keep bool) error
	Cleanup(dir, payloadRoot string, keep bool) error
}

// Prompter asks the operator a yes/no question.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// PostInstallHook runs after the build was copied.
type PostInstallHook interface {
	Execute(ctx context.Context, hc hook.Context) error
}

// Stage is a state of the update pipeline.
type Stage string

// Pipeline stages in execution order, plus the terminal Failed stage.
const (
	StageParsingRequest      Stage = "parsing-request"
	StageResolvingArtifact   Stage = "resolving-artifact"
	StageCheckingIdempotency Stage = "checking-idempotency"
	StageFetching            Stage = "fetching"
	StageExtracting          Stage = "extracting"
	StageCopying             Stage = "copying"
	StagePostInstall         Stage = "post-install"
	StageCleaningUp          Stage = "cleaning-up"
	StagePersistingState     Stage = "persisting-state"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
)

// Event is emitted on every stage transition.
type Event struct {
	Stage Stage
	Msg   string
	Err   error // set for Failed and for non-fatal warnings
}

// Hooks carries callbacks for progress and event notifications.
type Hooks struct {
	OnEvent    func(Event)
	OnRequest  func(*model.InstallRequest)
	OnProgress download.ProgressFunc
}

// Result is the outcome of a pipeline run.
type Result struct {
	Request  *model.InstallRequest
	Artifact model.ResolvedArtifact
	Stage    Stage

	// Skipped is set when the build was already installed and the policy
	// said to leave it.
	Skipped bool
	// Declined is set when the operator answered no to the reinstall prompt.
	Declined bool
	// CleanupErr records a non-fatal cleanup failure.
	CleanupErr error
}

// Installed reports whether the run copied a build into the destination.
func (r *Result) Installed() bool {
	return r != nil && r.Stage == StageDone && !r.Skipped && !r.Declined
}
