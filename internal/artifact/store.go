// Package artifact is a local substitute for a CI platform's artifact
// storage. Artifacts are directories keyed by name; uploading an
// artifact replaces any previous content under the same name, so
// repeated runs stay independent of each other.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNotFound indicates that no artifact exists under the given name.
var ErrNotFound = errors.New("artifact not found")

// File pairs a source file on disk with its path inside the artifact.
type File struct {
	// Source is the absolute path of the file to publish.
	Source string
	// ArchivePath is the relative path recorded inside the artifact.
	ArchivePath string
}

// Manifest records what a stored artifact contains.
type Manifest struct {
	Name      string    `json:"name"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Files     []string  `json:"files"`
}

const manifestName = "artifact.json"

// Store persists artifacts under a base directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a store rooted at dir. The directory is created on
// first upload.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the store's base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Upload publishes files as the named artifact, replacing any previous
// artifact with the same name.
func (s *Store) Upload(name, runID string, files []File) error {
	if name == "" {
		return errors.New("artifact name is required")
	}
	if len(files) == 0 {
		return fmt.Errorf("artifact %q has no files", name)
	}

	dest := filepath.Join(s.dir, name)
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("replace artifact %q: %w", name, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create artifact %q: %w", name, err)
	}

	manifest := Manifest{Name: name, RunID: runID, CreatedAt: s.now()}
	for _, f := range files {
		if err := copyFile(f.Source, filepath.Join(dest, filepath.FromSlash(f.ArchivePath))); err != nil {
			return fmt.Errorf("store artifact %q: %w", name, err)
		}
		manifest.Files = append(manifest.Files, f.ArchivePath)
	}
	sort.Strings(manifest.Files)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dest, manifestName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write artifact manifest: %w", err)
	}
	return nil
}

// List returns the archive paths stored for the named artifact.
func (s *Store) List(name string) ([]string, error) {
	m, err := s.ReadManifest(name)
	if err != nil {
		return nil, err
	}
	return m.Files, nil
}

// ReadManifest loads the manifest of the named artifact.
func (s *Store) ReadManifest(name string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, fmt.Errorf("artifact %q: %w", name, ErrNotFound)
		}
		return Manifest{}, fmt.Errorf("read artifact %q manifest: %w", name, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse artifact %q manifest: %w", name, err)
	}
	return m, nil
}

// Path returns the on-disk location of a file inside the named artifact.
func (s *Store) Path(name, archivePath string) string {
	return filepath.Join(s.dir, name, filepath.FromSlash(archivePath))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
