package demand

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const artifactFormat = "gbrt/v1"

type artifact struct {
	Format    string    `json:"format"`
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Model     *Model    `json:"model"`
}

// FileStore persists a Model as a JSON artifact on local disk.
type FileStore struct {
	Path string
}

// Exists reports whether an artifact file is present.
func (s *FileStore) Exists() bool {
	if s == nil || s.Path == "" {
		return false
	}
	_, err := os.Stat(s.Path)
	return err == nil
}

func (s *FileStore) Load() (*Model, error) {
	if s == nil || s.Path == "" {
		return nil, ErrModelNotLoaded
	}
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotLoaded, s.Path)
	}
	if err != nil {
		return nil, err
	}
	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode demand artifact: %w", err)
	}
	if a.Format != artifactFormat || a.Model == nil {
		return nil, fmt.Errorf("unsupported demand artifact format %q", a.Format)
	}
	if len(a.Model.Features) != len(FeatureNames) {
		return nil, fmt.Errorf("demand artifact has %d features, want %d", len(a.Model.Features), len(FeatureNames))
	}
	return a.Model, nil
}

// Save writes the artifact to a temp file in the same directory and renames
// it over Path, so a concurrent Load sees either the old or the new model.
func (s *FileStore) Save(m *Model, version string, trainedAt time.Time) error {
	if s == nil || s.Path == "" {
		return errors.New("demand model path is empty")
	}
	if m == nil {
		return errors.New("nil demand model")
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(artifact{Format: artifactFormat, Version: version, TrainedAt: trainedAt.UTC(), Model: m})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".demand-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path)
}
