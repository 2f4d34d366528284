package cli

import (
	"os/exec"

	"github.com/glorpus-work/blendup/internal/logger"
	"github.com/glorpus-work/blendup/pkg/errors"
)

// launch is swapped out in tests.
var launch = startDetached

// startDetached starts the installed binary and returns without waiting.
func startDetached(path string) error {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to start "+path)
	}
	logger.Debug("Started application", logger.Fields{"path": path, "pid": cmd.Process.Pid})
	return cmd.Process.Release()
}
