// Package orchestrator drives one update run from the install request to the
// persisted state.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/glorpus-work/blendup/internal/logger"
	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/hook"
	"github.com/glorpus-work/blendup/pkg/index"
	"github.com/glorpus-work/blendup/pkg/installer"
	"github.com/glorpus-work/blendup/pkg/model"
)

// Pipeline ties the index, state store, fetcher, extractor, installer and
// cleaner together.
type Pipeline struct {
	Index     IndexSource
	State     StateStore
	DL        Fetcher
	Extractor Extractor
	Installer Installer
	Cleaner   Cleaner
	Prompter  Prompter
	Hook      PostInstallHook // optional
	Hooks     Hooks
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Run validates opts and executes the pipeline. Each stage runs only after
// the previous one succeeded; the first failure ends the run with the Failed
// stage and nothing is undone.
func (p *Pipeline) Run(ctx context.Context, opts model.Options) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	res := &Result{Stage: StageParsingRequest}
	emit(p.Hooks, Event{Stage: StageParsingRequest})
	req, err := model.NewInstallRequest(opts)
	if err != nil {
		return p.fail(res, err)
	}
	res.Request = req
	if p.Hooks.OnRequest != nil {
		p.Hooks.OnRequest(req)
	}

	res.Stage = StageResolvingArtifact
	emit(p.Hooks, Event{Stage: StageResolvingArtifact, Msg: req.BaseURL})
	artifact, err := p.resolve(ctx, req)
	if err != nil {
		return p.fail(res, err)
	}
	res.Artifact = artifact

	res.Stage = StageCheckingIdempotency
	emit(p.Hooks, Event{Stage: StageCheckingIdempotency, Msg: artifact.Filename})
	proceed, err := p.checkIdempotency(req, artifact, res)
	if err != nil {
		return p.fail(res, err)
	}
	if !proceed {
		res.Stage = StageDone
		emit(p.Hooks, Event{Stage: StageDone, Msg: "nothing to do"})
		return res, nil
	}

	if err := p.install(ctx, req, res); err != nil {
		return p.fail(res, err)
	}

	res.Stage = StagePersistingState
	emit(p.Hooks, Event{Stage: StagePersistingState, Msg: artifact.Filename})
	if err := p.State.Save(artifact.Filename); err != nil {
		return p.fail(res, err)
	}

	res.Stage = StageDone
	emit(p.Hooks, Event{Stage: StageDone, Msg: artifact.Filename})
	return res, nil
}

func (p *Pipeline) validate() error {
	switch {
	case p.Index == nil:
		return fmt.Errorf("index source is not configured")
	case p.State == nil:
		return fmt.Errorf("state store is not configured")
	case p.DL == nil:
		return fmt.Errorf("fetcher is not configured")
	case p.Extractor == nil:
		return fmt.Errorf("extractor is not configured")
	case p.Installer == nil:
		return fmt.Errorf("installer is not configured")
	case p.Cleaner == nil:
		return fmt.Errorf("cleaner is not configured")
	}
	return nil
}

func (p *Pipeline) fail(res *Result, err error) (*Result, error) {
	failedAt := res.Stage
	res.Stage = StageFailed
	emit(p.Hooks, Event{Stage: StageFailed, Msg: string(failedAt), Err: err})
	return res, err
}

func (p *Pipeline) resolve(ctx context.Context, req *model.InstallRequest) (model.ResolvedArtifact, error) {
	text, err := p.Index.FetchIndex(ctx, req.BaseURL)
	if err != nil {
		return model.ResolvedArtifact{}, err
	}
	filename, err := index.Resolve(text, req.Product, req.Version, req.Target.Tag, req.Target.Extension)
	if err != nil {
		return model.ResolvedArtifact{}, err
	}
	logger.Debug("Resolved build", logger.Fields{"filename": filename, "version": req.Version, "target": req.Target.String()})
	return model.ResolvedArtifact{Filename: filename, BaseURL: req.BaseURL}, nil
}

// checkIdempotency reports whether the install should go ahead. It sets
// Skipped or Declined on res when it should not.
func (p *Pipeline) checkIdempotency(req *model.InstallRequest, artifact model.ResolvedArtifact, res *Result) (bool, error) {
	last, ok := p.State.Load()
	if !ok || last != artifact.Filename {
		return true, nil
	}

	switch req.Policy {
	case model.PolicyForce:
		logger.Info("Reinstalling build that is already installed", logger.Fields{"filename": last})
		return true, nil
	case model.PolicySkip:
		logger.Info("Build already installed, skipping", logger.Fields{"filename": last})
		res.Skipped = true
		return false, nil
	}

	if p.Prompter == nil {
		return false, fmt.Errorf("%w: no prompter available to confirm reinstall", errors.ErrInvalidConfiguration)
	}
	yes, err := p.Prompter.Confirm(fmt.Sprintf("%s is already installed. Reinstall?", last))
	if err != nil {
		return false, err
	}
	if !yes {
		res.Declined = true
		return false, nil
	}
	return true, nil
}

func (p *Pipeline) install(ctx context.Context, req *model.InstallRequest, res *Result) error {
	artifact := res.Artifact

	res.Stage = StageFetching
	emit(p.Hooks, Event{Stage: StageFetching, Msg: artifact.Filename})
	if err := p.Cleaner.Prepare(req.StagingDir, req.KeepArchive); err != nil {
		return err
	}
	url, err := artifact.URL()
	if err != nil {
		return errors.WrapKind(errors.ErrInvalidConfiguration, err, "invalid download URL")
	}
	archivePath, err := p.DL.Fetch(ctx, url, filepath.Join(req.StagingDir, artifact.Filename), p.Hooks.OnProgress)
	if err != nil {
		return err
	}

	res.Stage = StageExtracting
	emit(p.Hooks, Event{Stage: StageExtracting, Msg: artifact.Filename})
	if err := p.Extractor.Extract(ctx, archivePath, req.StagingDir); err != nil {
		return err
	}

	res.Stage = StageCopying
	emit(p.Hooks, Event{Stage: StageCopying, Msg: req.DestDir})
	payload, err := p.Installer.PayloadRoot(req.StagingDir, artifact.Filename)
	if err != nil {
		return err
	}
	if err := p.Installer.Copy(payload, req.DestDir); err != nil {
		return err
	}
	if err := p.Installer.MakeExecutable(req.DestDir, req.Target.OS); err != nil {
		return err
	}

	if p.Hook != nil {
		res.Stage = StagePostInstall
		emit(p.Hooks, Event{Stage: StagePostInstall})
		if err := p.Hook.Execute(ctx, hook.Context{
			Filename:   artifact.Filename,
			Version:    req.Version,
			DestDir:    req.DestDir,
			OS:         string(req.Target.OS),
			Executable: installer.ExecutablePath(req.DestDir, req.Target.OS),
		}); err != nil {
			return err
		}
	}

	res.Stage = StageCleaningUp
	emit(p.Hooks, Event{Stage: StageCleaningUp, Msg: req.StagingDir})
	if err := p.Cleaner.Cleanup(req.StagingDir, payload, req.KeepArchive); err != nil {
		logger.Warn("Cleanup failed, continuing", logger.Fields{"path": req.StagingDir, "error": err.Error()})
		res.CleanupErr = err
		emit(p.Hooks, Event{Stage: StageCleaningUp, Msg: "cleanup failed", Err: err})
	}
	return nil
}
