package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/glorpus-work/blendup/pkg/download"
	"github.com/glorpus-work/blendup/pkg/model"
	"github.com/glorpus-work/blendup/pkg/orchestrator"
	"github.com/glorpus-work/blendup/pkg/spinner"
)

// stepNames maps the long-running stages onto the labels printed for them.
var stepNames = map[orchestrator.Stage]string{
	orchestrator.StageFetching:    "Download",
	orchestrator.StageExtracting:  "Extraction",
	orchestrator.StageCopying:     "Copying",
	orchestrator.StagePostInstall: "Post-install hook",
	orchestrator.StageCleaningUp:  "Cleanup",
}

// spinnerTitles lists the stages that show a spinner while they run.
var spinnerTitles = map[orchestrator.Stage]string{
	orchestrator.StageExtracting: "Extracting... ",
	orchestrator.StageCopying:    "Copying... ",
	orchestrator.StageCleaningUp: "Cleanup... ",
}

// reporter turns pipeline events into status lines, a download progress
// indicator and spinners.
type reporter struct {
	p   *printer
	out io.Writer

	// Spinners only render when out is a terminal.
	interactive bool
	current     orchestrator.Stage
	spin        *spinner.Spinner
	progressing bool
	lastPercent int
	lastBytes   int64
}

func newReporter(out io.Writer, color bool) *reporter {
	return &reporter{
		p:           newPrinter(out, color),
		out:         out,
		interactive: isTerminal(out),
		lastPercent: -1,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *reporter) hooks() orchestrator.Hooks {
	return orchestrator.Hooks{
		OnEvent:    r.onEvent,
		OnRequest:  r.onRequest,
		OnProgress: r.onProgress,
	}
}

func (r *reporter) onRequest(req *model.InstallRequest) {
	r.p.Section("SETTINGS")
	r.p.Setting("Destination path", req.DestDir, "")
	note := ""
	if req.OSDetected {
		note = "autodetected"
	}
	r.p.Setting("Operating system", string(req.Target.OS), note)
	r.p.Setting("Build", req.Product+" "+req.Version, "")
	if req.KeepArchive {
		r.p.Option("Will keep temporary archive file")
	} else {
		r.p.Option("Will NOT keep temporary archive file")
	}
	if req.Run {
		r.p.Option("Will run the application when finished")
	} else {
		r.p.Option("Will NOT run the application when finished")
	}
	r.p.Section("")
}

func (r *reporter) onEvent(e orchestrator.Event) {
	if e.Stage == orchestrator.StageCleaningUp && e.Err != nil {
		r.stopSpinner()
		r.p.Warn(fmt.Sprintf("Cleanup failed: %v", e.Err))
		r.current = ""
		return
	}

	switch e.Stage {
	case orchestrator.StageFailed:
		r.stopSpinner()
		r.finishProgress()
		if name, ok := stepNames[r.current]; ok {
			r.p.Failed(name)
		}
		r.current = e.Stage
		return
	case orchestrator.StageFetching:
		r.p.Success("All settings valid, proceeding...")
		r.p.Println("Downloading " + e.Msg)
	}

	r.finishStep()
	r.current = e.Stage

	if title, ok := spinnerTitles[e.Stage]; ok && r.interactive {
		r.spin = spinner.New(r.out, title)
		r.spin.Start()
	}

	switch e.Stage {
	case orchestrator.StagePostInstall:
		r.p.Println("Running post-install hook")
	case orchestrator.StageDone:
		if e.Msg != "" && e.Msg != "nothing to do" {
			r.p.Section("")
			r.p.Success("All tasks finished")
		}
	}
}

// finishStep closes the previous stage with a "done" line.
func (r *reporter) finishStep() {
	r.stopSpinner()
	r.finishProgress()
	if name, ok := stepNames[r.current]; ok {
		r.p.Done(name)
	}
}

// onProgress redraws the download line in place on a terminal. Elsewhere it
// only records the latest figures; finishProgress prints them once.
func (r *reporter) onProgress(pr download.Progress) {
	pct := int(pr.Percent())
	first := !r.progressing
	r.progressing = true
	r.lastBytes = pr.Bytes
	if !first && pct >= 0 && pct == r.lastPercent {
		return
	}
	r.lastPercent = pct
	if r.interactive {
		_, _ = fmt.Fprint(r.out, "\r"+r.progressLine())
	}
}

func (r *reporter) progressLine() string {
	if r.lastPercent < 0 {
		return "Downloading " + humanize.IBytes(uint64(r.lastBytes))
	}
	const barWidth = 32
	filled := r.lastPercent * barWidth / 100
	return fmt.Sprintf("Downloading |%s%s| %d%%",
		strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled), r.lastPercent)
}

func (r *reporter) finishProgress() {
	if !r.progressing {
		return
	}
	if r.interactive {
		_, _ = fmt.Fprintln(r.out)
	} else {
		_, _ = fmt.Fprintln(r.out, r.progressLine())
	}
	r.progressing = false
	r.lastPercent = -1
	r.lastBytes = 0
}

func (r *reporter) stopSpinner() {
	if r.spin != nil {
		r.spin.Stop()
		r.spin = nil
	}
}
