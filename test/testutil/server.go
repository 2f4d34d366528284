// Package testutil provides a fake build index server and config helpers for
// end-to-end tests.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/glorpus-work/blendup/internal/logger"
	"github.com/glorpus-work/blendup/pkg/archive"
	"github.com/glorpus-work/blendup/pkg/config"
)

// BuilderServer imitates the builder download page: "/" lists every build
// as a link and "/<filename>" serves the archive bytes.
type BuilderServer struct {
	*httptest.Server

	mu        sync.Mutex
	builds    map[string][]byte
	downloads map[string]int
	indexHits int
}

// NewBuilderServer starts a server that is closed when the test ends.
func NewBuilderServer(t *testing.T) *BuilderServer {
	t.Helper()
	s := &BuilderServer{
		builds:    make(map[string][]byte),
		downloads: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the index URL with a trailing slash.
func (s *BuilderServer) BaseURL() string {
	return s.URL + "/"
}

// AddBuild packs files into an archive named filename and publishes it.
// File paths are relative to the archive root and use forward slashes.
func (s *BuilderServer) AddBuild(t *testing.T, filename string, files map[string]string) {
	t.Helper()
	src := t.TempDir()
	for name, content := range files {
		full := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	out := filepath.Join(t.TempDir(), filename)
	if err := archive.NewManager().Create(context.Background(), src, out); err != nil {
		t.Fatalf("Failed to create archive %s: %v", filename, err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read archive %s: %v", filename, err)
	}
	s.AddRaw(filename, data)
}

// AddRaw publishes filename with arbitrary content.
func (s *BuilderServer) AddRaw(filename string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[filename] = data
}

// Downloads returns how often filename was fetched.
func (s *BuilderServer) Downloads(filename string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads[filename]
}

// IndexHits returns how often the index page was fetched.
func (s *BuilderServer) IndexHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexHits
}

func (s *BuilderServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" {
		s.indexHits++
		names := make([]string, 0, len(s.builds))
		for n := range s.builds {
			names = append(names, n)
		}
		sort.Strings(names)

		var b strings.Builder
		b.WriteString("<html><body>\n")
		for _, n := range names {
			fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", n, n)
		}
		b.WriteString("</body></html>\n")
		_, _ = w.Write([]byte(b.String()))
		return
	}

	data, ok := s.builds[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.downloads[name]++
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

// SetupTestConfig writes a config file pointing at baseURL with the state
// file and staging directory inside a fresh temp dir. It returns the config
// path and the state file path.
func SetupTestConfig(t *testing.T, baseURL string) (configPath, stateFile string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Settings.BaseURL = baseURL
	cfg.Settings.StateFile = filepath.Join(dir, "blendup.ini")
	cfg.Settings.StagingDir = filepath.Join(dir, "staging")
	cfg.Settings.CheckForUpdates = false
	cfg.Settings.LogLevel = "error"

	configPath = filepath.Join(dir, "config.yaml")
	if err := cfg.SaveConfig(configPath); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	logger.Debugf("Wrote test config to %s", configPath)
	return configPath, cfg.Settings.StateFile
}
