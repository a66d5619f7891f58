// Package clplan compares a synthesized network with the snapshot of what was materialized before,
// and orders the resulting changes by their dependencies.
package clplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crewlinker/clnet/cltopo"
)

// SnapshotVersion is the version of the snapshot encoding.
const SnapshotVersion = 1

// Snapshot records the entities that were materialized, and their dependencies.
type Snapshot struct {
	Version  int             `json:"version"`
	Entities []cltopo.Entity `json:"entities"`
	Edges    []cltopo.Edge   `json:"edges"`
}

// NewSnapshot inits a snapshot. The inputs are copied.
func NewSnapshot(ents []cltopo.Entity, edges []cltopo.Edge) Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Entities: append([]cltopo.Entity{}, ents...),
		Edges:    append([]cltopo.Edge{}, edges...),
	}
}

// IsEmpty returns whether nothing was materialized.
func (s Snapshot) IsEmpty() bool { return len(s.Entities) == 0 }

// Store persists snapshots.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// ErrUnsupportedVersion is returned when a snapshot was written by an incompatible version.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// FileStore stores a snapshot as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore inits a file store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot. A missing file is an empty snapshot, nothing was materialized yet.
func (s *FileStore) Load(_ context.Context) (snap Snapshot, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{Version: SnapshotVersion}, nil
	} else if err != nil {
		return snap, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot %s: %w", s.path, err)
	}

	if snap.Version != SnapshotVersion {
		return snap, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}

	return snap, nil
}

// Save writes the snapshot to a temporary file first, so a failed write never corrupts the
// previous snapshot.
func (s *FileStore) Save(_ context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to move snapshot in place: %w", err)
	}

	return nil
}
