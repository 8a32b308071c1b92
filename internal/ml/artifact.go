package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Artifact is a trained regressor together with its holdout score.
type Artifact struct {
	ID           string    `json:"id"`
	Backend      string    `json:"backend"`
	Accuracy     float64   `json:"accuracy"`
	TrainedAt    time.Time `json:"trained_at"`
	Rows         int       `json:"rows"`
	Features     []string  `json:"features"`
	FeatureMeans []float64 `json:"feature_means"`
	Forest       *Forest   `json:"forest"`
}

// Predict estimates temperature from named feature values. Features missing
// from values take the training mean.
func (a *Artifact) Predict(values map[string]float64) float64 {
	x := make([]float64, len(a.Features))
	for i, name := range a.Features {
		v, ok := values[name]
		if !ok && i < len(a.FeatureMeans) {
			v = a.FeatureMeans[i]
		}
		x[i] = v
	}
	return a.Forest.Predict(x)
}

// WriteArtifact encodes a as zstd-compressed JSON.
func WriteArtifact(w io.Writer, a *Artifact) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(a); err != nil {
		enc.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	return enc.Close()
}

// ReadArtifact decodes an artifact written by WriteArtifact.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var a Artifact
	if err := json.NewDecoder(dec).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, errors.New("decode artifact: no trees")
	}
	return &a, nil
}

// SaveArtifact writes a to path atomically: the bytes go to a temporary file
// in the same directory which then replaces path. Missing parent directories
// are created.
func SaveArtifact(path string, a *Artifact) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := WriteArtifact(tmp, a); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads the artifact at path. A missing file yields (nil, nil).
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArtifact(f)
}

// ModelSlot holds the active artifact and owns its file. Persisting and
// swapping happen under the write lock so readers never see a half-written
// model.
type ModelSlot struct {
	path string

	mu       sync.RWMutex
	active   *Artifact
	loadOnce sync.Once
}

// NewModelSlot creates a slot backed by the artifact file at path. Nothing is
// read until the first call to Active.
func NewModelSlot(path string) *ModelSlot {
	return &ModelSlot{path: path}
}

// Path returns the artifact file location.
func (s *ModelSlot) Path() string {
	return s.path
}

// Active returns the current artifact, loading it from disk on first use.
// A nil artifact means no model has been trained yet.
func (s *ModelSlot) Active() *Artifact {
	s.loadOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.active != nil {
			return
		}
		a, err := LoadArtifact(s.path)
		if err != nil {
			log.Printf("ERROR: loading model artifact %s: %v", s.path, err)
			return
		}
		if a != nil {
			log.Printf("INFO: loaded model artifact %s (accuracy %.4f)", a.ID, a.Accuracy)
		}
		s.active = a
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Replace persists a and, only once that succeeds, makes it the active model.
func (s *ModelSlot) Replace(a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := SaveArtifact(s.path, a); err != nil {
		return err
	}
	s.active = a
	return nil
}
