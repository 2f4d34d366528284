package hook_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/hook"
)

func testContext(dest string) hook.Context {
	return hook.Context{
		Filename:   "blender-3.0.0-stable-linux64.tar.xz",
		Version:    "3.0.0",
		DestDir:    dest,
		OS:         "linux",
		Executable: filepath.Join(dest, "blender"),
	}
}

func TestExecute_EmptyScript(t *testing.T) {
	e := hook.NewTengoExecutor("empty", []byte(`// nothing to do`))
	assert.NoError(t, e.Execute(context.Background(), testContext(t.TempDir())))
}

func TestExecute_SeesVariables(t *testing.T) {
	dest := t.TempDir()
	marker := filepath.Join(dest, "marker.txt")

	script := `
os := import("os")
f := os.create(destDir + "/marker.txt")
f.write_string(filename + "|" + version + "|" + platform + "|" + channel)
f.close()
`
	hc := testContext(dest)
	hc.Vars = map[string]interface{}{"channel": "stable"}

	e := hook.NewTengoExecutor("marker", []byte(script))
	require.NoError(t, e.Execute(context.Background(), hc))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "blender-3.0.0-stable-linux64.tar.xz|3.0.0|linux|stable", string(data))
}

func TestExecute_ErrVariable(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{name: "string error", script: `err := "disk full"`, wantErr: true},
		{name: "error value", script: `err := error("nope")`, wantErr: true},
		{name: "empty string", script: `err := ""`, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := hook.NewTengoExecutor(tt.name, []byte(tt.script))
			err := e.Execute(context.Background(), testContext(t.TempDir()))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrHook))
		})
	}
}

func TestExecute_CompileError(t *testing.T) {
	e := hook.NewTengoExecutor("broken", []byte(`this is not tengo (`))
	err := e.Execute(context.Background(), testContext(t.TempDir()))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrHook))
	assert.Contains(t, err.Error(), "broken")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.tengo")
	require.NoError(t, os.WriteFile(path, []byte(`x := 1`), 0o644))

	e, err := hook.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, e.Name())
	assert.NoError(t, e.Execute(context.Background(), testContext(t.TempDir())))
}

func TestLoad_Missing(t *testing.T) {
	_, err := hook.Load(filepath.Join(t.TempDir(), "missing.tengo"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfiguration))
}
