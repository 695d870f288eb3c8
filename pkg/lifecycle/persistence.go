package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/health-sphere/noshow-platform/pkg/modelstore"
)

const (
	modelFileName   = "model.json"
	versionFileName = "model_version.txt"
)

// Persistence stores the serialized model and its plain version string as a
// pair under one directory. Writes go through temp files and renames so a
// crash mid-save never leaves a half-written artifact for the next bootstrap.
type Persistence struct {
	dir string
}

func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create model dir %s: %w", dir, err)
	}
	return &Persistence{dir: dir}, nil
}

// Save writes the artifact and its version file. Called only from inside the
// orchestrator's retrain serialization boundary.
func (p *Persistence) Save(artifact *modelstore.Artifact) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal artifact: %w", err)
	}
	if err := p.writeAtomic(modelFileName, payload); err != nil {
		return err
	}
	return p.writeAtomic(versionFileName, []byte(artifact.Version+"\n"))
}

// Load reads the durable artifact back. Returns (nil, nil) when none exists,
// which is the cold-start signal for bootstrap.
func (p *Persistence) Load() (*modelstore.Artifact, error) {
	content, err := os.ReadFile(filepath.Join(p.dir, modelFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read model file: %w", err)
	}

	var artifact modelstore.Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("cannot decode model file: %w", err)
	}

	// The sidecar version file is authoritative when both exist.
	if versionBytes, err := os.ReadFile(filepath.Join(p.dir, versionFileName)); err == nil {
		if version := strings.TrimSpace(string(versionBytes)); version != "" {
			artifact.Version = version
		}
	}
	return &artifact, nil
}

func (p *Persistence) writeAtomic(name string, payload []byte) error {
	path := filepath.Join(p.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cannot commit %s: %w", path, err)
	}
	return nil
}
