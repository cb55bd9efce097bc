// Package store writes and reads the timeline artifacts of one extraction run.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"horse.fit/stallednews/internal/timeline"
)

const (
	RawFileName      = "events_raw.json"
	DedupedFileName  = "events_deduped.json"
	TimelineFileName = "timeline.json"
	ManifestFileName = "run.json"
)

// Paths are the artifact locations returned to the caller.
type Paths struct {
	Raw      string `json:"raw_path"`
	Deduped  string `json:"deduped_path"`
	Timeline string `json:"timeline_path"`
}

// Artifacts is a run's event lists as read back from disk.
type Artifacts struct {
	Raw      []timeline.Event
	Deduped  []timeline.Event
	Timeline []timeline.Entry
	Manifest *Manifest
}

// Manifest records how a run was produced. It is optional; older run directories
// only hold the three event files.
type Manifest struct {
	RunID          string         `json:"run_id"`
	CreatedAt      time.Time      `json:"created_at"`
	ProjectName    string         `json:"project_name"`
	City           string         `json:"city"`
	RegistrationID string         `json:"rera_id,omitempty"`
	CorpusPath     string         `json:"corpus_path"`
	MinConfidence  float64        `json:"min_confidence"`
	DedupPolicy    string         `json:"dedup_policy"`
	RawCount       int            `json:"raw_count"`
	DedupedCount   int            `json:"deduped_count"`
	Stats          map[string]int `json:"stats,omitempty"`
	Languages      map[string]int `json:"languages,omitempty"`
}

// Write stores the raw events, the deduplicated events and their timeline projection
// under dir, creating it when needed. Each file is replaced atomically.
func Write(raw, deduped []timeline.Event, dir string) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir %q: %w", dir, err)
	}

	paths := Paths{
		Raw:      filepath.Join(dir, RawFileName),
		Deduped:  filepath.Join(dir, DedupedFileName),
		Timeline: filepath.Join(dir, TimelineFileName),
	}
	if raw == nil {
		raw = []timeline.Event{}
	}
	if deduped == nil {
		deduped = []timeline.Event{}
	}

	if err := WriteJSON(paths.Raw, raw); err != nil {
		return Paths{}, err
	}
	if err := WriteJSON(paths.Deduped, deduped); err != nil {
		return Paths{}, err
	}
	if err := WriteJSON(paths.Timeline, timeline.Project(deduped)); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// WriteManifest stores run metadata next to the event files.
func WriteManifest(dir string, manifest Manifest) (string, error) {
	path := filepath.Join(dir, ManifestFileName)
	if err := WriteJSON(path, manifest); err != nil {
		return "", err
	}
	return path, nil
}

// Read loads a run directory. The manifest is nil when run.json is absent.
func Read(dir string) (Artifacts, error) {
	var out Artifacts
	if err := readJSON(filepath.Join(dir, RawFileName), &out.Raw); err != nil {
		return Artifacts{}, err
	}
	if err := readJSON(filepath.Join(dir, DedupedFileName), &out.Deduped); err != nil {
		return Artifacts{}, err
	}
	if err := readJSON(filepath.Join(dir, TimelineFileName), &out.Timeline); err != nil {
		return Artifacts{}, err
	}

	var manifest Manifest
	err := readJSON(filepath.Join(dir, ManifestFileName), &manifest)
	switch {
	case err == nil:
		out.Manifest = &manifest
	case !errors.Is(err, os.ErrNotExist):
		return Artifacts{}, err
	}
	return out, nil
}

// Exists reports whether dir holds the deduplicated event file.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, DedupedFileName))
	return err == nil && !info.IsDir()
}

// WriteJSON encodes value with two-space indentation and no HTML escaping and writes
// it atomically.
func WriteJSON(path string, value any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// WriteFileAtomic writes content to a temp file in the target directory, syncs it and
// renames it over path.
func WriteFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stallednews-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("store: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true
	return nil
}

func readJSON(path string, target any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
