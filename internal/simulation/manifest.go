package simulation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the request file written into every run directory.
const ManifestName = "scene.yaml"

// RunDir returns the run directory for a simulation started at t.
func RunDir(base string, t time.Time) string {
	return filepath.Join(base, "simulation_"+t.Format("2006-01-02_15-04-05"))
}

// maxRunDirAttempts bounds the suffixes tried when runs start within the same second.
const maxRunDirAttempts = 1000

// CreateRunDir creates a fresh run directory for a simulation started at t.
// A run that starts in the same second as an earlier one gets a _2, _3, ...
// suffix; an existing directory is never reused.
func CreateRunDir(base string, t time.Time) (string, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	dir := RunDir(base, t)
	for n := 1; n <= maxRunDirAttempts; n++ {
		candidate := dir
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d", dir, n)
		}
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("create run directory: %w", err)
		}
	}
	return "", fmt.Errorf("create run directory: %d runs already exist for %s", maxRunDirAttempts, filepath.Base(dir))
}

// WriteManifest writes the request as YAML into dir and returns the file path.
func (r *Request) WriteManifest(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}
