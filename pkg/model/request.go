// Package model provides the values that flow through the update pipeline:
// the immutable install request built once from user input and the artifact
// resolved from the index.
package model

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/fsutil"
	"github.com/glorpus-work/blendup/pkg/platform"
)

// Policy decides what happens when the resolved build is already installed.
type Policy int

const (
	// PolicyPrompt asks the operator.
	PolicyPrompt Policy = iota
	// PolicyForce reinstalls without asking.
	PolicyForce
	// PolicySkip exits successfully without installing.
	PolicySkip
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyForce:
		return "force"
	case PolicySkip:
		return "skip"
	default:
		return "prompt"
	}
}

// Options is the raw input of one run, as produced by the command line and
// the application config. It is validated by NewInstallRequest.
type Options struct {
	DestDir     string
	StagingDir  string
	Version     string
	OS          string // empty means autodetect
	KeepArchive bool
	Run         bool
	Yes         bool
	No          bool

	BaseURL   string
	Product   string
	Overrides platform.Overrides
}

// InstallRequest is the validated, immutable description of one run.
type InstallRequest struct {
	Version     string
	Target      platform.Target
	DestDir     string
	StagingDir  string
	KeepArchive bool
	Run         bool
	Policy      Policy
	BaseURL     string
	Product     string

	// OSDetected is set when Target.OS was not given explicitly.
	OSDetected bool
}

// NewInstallRequest validates opts before any I/O happens. All problems are
// reported together; each one wraps errors.ErrInvalidConfiguration.
func NewInstallRequest(opts Options) (*InstallRequest, error) {
	var problems []error

	dest := strings.TrimSpace(opts.DestDir)
	switch {
	case dest == "":
		problems = append(problems, fmt.Errorf("%w: destination path is required", errors.ErrInvalidPath))
	case !fsutil.IsDir(dest):
		problems = append(problems, fmt.Errorf("%w: '%s' is not an existing directory", errors.ErrInvalidPath, dest))
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		problems = append(problems, fmt.Errorf("%w: target version is required", errors.ErrInvalidConfiguration))
	}

	staging := strings.TrimSpace(opts.StagingDir)
	if staging == "" {
		problems = append(problems, fmt.Errorf("%w: staging path is required", errors.ErrInvalidPath))
	} else if dest != "" && overlaps(dest, staging) {
		problems = append(problems, fmt.Errorf("%w: staging path '%s' must not be, contain or lie inside the destination '%s'",
			errors.ErrInvalidPath, staging, dest))
	}

	var (
		os       platform.OS
		detected bool
		err      error
	)
	if strings.TrimSpace(opts.OS) == "" {
		os, err = platform.Detect()
		detected = true
	} else {
		os, err = platform.ParseOS(opts.OS)
	}
	if err != nil {
		problems = append(problems, fmt.Errorf("%w: %w", errors.ErrInvalidOS, err))
	}

	if opts.Yes && opts.No {
		problems = append(problems, errors.ErrConflictingPolicy)
	}

	baseURL := strings.TrimSpace(opts.BaseURL)
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Errorf("%w: invalid index URL %q", errors.ErrInvalidConfiguration, opts.BaseURL))
	} else if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	product := strings.TrimSpace(opts.Product)
	if product == "" {
		problems = append(problems, fmt.Errorf("%w: product name is required", errors.ErrInvalidConfiguration))
	}

	if len(problems) > 0 {
		return nil, stderrors.Join(problems...)
	}

	policy := PolicyPrompt
	switch {
	case opts.Yes:
		policy = PolicyForce
	case opts.No:
		policy = PolicySkip
	}

	return &InstallRequest{
		Version:     version,
		Target:      platform.TargetFor(os, opts.Overrides),
		DestDir:     dest,
		StagingDir:  staging,
		KeepArchive: opts.KeepArchive,
		Run:         opts.Run,
		Policy:      policy,
		BaseURL:     baseURL,
		Product:     product,
		OSDetected:  detected,
	}, nil
}

// overlaps reports whether a and b name the same directory or one lies
// inside the other. Staging is wiped before and after a run, so it must stay
// clear of the destination.
func overlaps(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return false
	}
	return within(absA, absB) || within(absB, absA)
}

// within reports whether path equals root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
