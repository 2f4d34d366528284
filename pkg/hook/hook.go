// Package hook runs the optional post-install script configured by the user.
//
// Scripts are written in Tengo. The following variables are defined:
//
//	filename   - archive file name of the installed build
//	version    - requested version string
//	destDir    - destination directory the build was copied into
//	platform   - target operating system (windows, linux or macos)
//	executable - path of the installed application binary
//
// A script signals failure by assigning a non-empty string or an error
// value to a variable named err.
package hook

import (
	"context"
	"fmt"
	"os"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/blendup/pkg/errors"
)

// Context carries the values exposed to a script.
type Context struct {
	Filename   string
	Version    string
	DestDir    string
	OS         string
	Executable string
	Vars       map[string]interface{}
}

// TengoExecutor runs a single Tengo script.
type TengoExecutor struct {
	name   string
	script []byte
}

// NewTengoExecutor creates an executor for the given script source.
func NewTengoExecutor(name string, script []byte) *TengoExecutor {
	return &TengoExecutor{name: name, script: script}
}

// Load reads the script at path.
func Load(path string) (*TengoExecutor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapKind(errors.ErrInvalidConfiguration, err, "failed to read post-install hook")
	}
	return NewTengoExecutor(path, content), nil
}

// Name returns the script name used in error messages.
func (e *TengoExecutor) Name() string {
	return e.name
}

// Execute runs the script with hc bound to its variables.
func (e *TengoExecutor) Execute(ctx context.Context, hc Context) error {
	script := tengo.NewScript(e.script)
	script.SetImports(stdlib.GetModuleMap("fmt", "os", "text", "times", "json"))

	vars := map[string]interface{}{
		"filename":   hc.Filename,
		"version":    hc.Version,
		"destDir":    hc.DestDir,
		"platform":   hc.OS,
		"executable": hc.Executable,
	}
	for k, v := range hc.Vars {
		vars[k] = v
	}
	for k, v := range vars {
		if err := script.Add(k, v); err != nil {
			return fmt.Errorf("%w: %s: variable %s: %w", errors.ErrHook, e.name, k, err)
		}
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrHook, e.name, err)
	}

	if msg := scriptError(compiled.Get("err").Object()); msg != "" {
		return fmt.Errorf("%w: %s: %s", errors.ErrHook, e.name, msg)
	}
	return nil
}

func scriptError(obj tengo.Object) string {
	switch v := obj.(type) {
	case *tengo.Error:
		if msg, ok := tengo.ToString(v.Value); ok && msg != "" {
			return msg
		}
		return "error"
	case *tengo.String:
		return v.Value
	}
	return ""
}
