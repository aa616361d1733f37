// Package checkpoint implements the external checkpoint persistence
// boundary: a directory store holding, per checkpoint id, a binary gob
// blob (the full engine snapshot) and a JSON metadata sidecar. This is the
// "external collaborator" spec.md §6 describes the wire format for, not
// the engine's own in-memory capture/restore (see evolution.Engine.Capture
// and evolution.Engine.Restore).
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/evotree/symreg/evolution"
)

// Metadata is the JSON sidecar written next to every checkpoint blob.
type Metadata struct {
	CheckpointID  string           `json:"checkpoint_id"`
	SessionID     string           `json:"session_id"`
	Name          string           `json:"name"`
	CreatedAt     time.Time        `json:"created_at"`
	Generation    int              `json:"generation"`
	Config        evolution.Config `json:"config"`
	DataInfo      DataInfo         `json:"data_info"`
	FileSizeBytes int64            `json:"file_size_bytes"`
}

// DataInfo records the shape of the dataset a checkpoint was captured
// against, enough to sanity-check a restore without carrying the dataset
// itself.
type DataInfo struct {
	NFeatures int `json:"n_features"`
	NTrain    int `json:"n_train"`
	NTest     int `json:"n_test"`
}

// Store is a directory on disk holding checkpoint blob+metadata pairs.
type Store struct {
	dir string
}

// NewStore opens (creating if necessary) a checkpoint store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: creating store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// ID formats a checkpoint id as {session_id}_{YYYYMMDD_HHMMSS} (spec.md
// §6).
func ID(sessionID string, at time.Time) string {
	return fmt.Sprintf("%s_%s", sessionID, at.Format("20060102_150405"))
}

func (s *Store) blobPath(id string) string { return filepath.Join(s.dir, id+".bin") }
func (s *Store) metaPath(id string) string { return filepath.Join(s.dir, id+".json") }

// Save writes snap's blob and meta's sidecar, each atomically (temp file
// then rename).
func (s *Store) Save(id string, snap *evolution.Snapshot, meta Metadata) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("checkpoint: encoding snapshot: %w", err)
	}

	meta.CheckpointID = id
	meta.FileSizeBytes = int64(buf.Len())

	if err := writeAtomic(s.blobPath(id), buf.Bytes()); err != nil {
		return fmt.Errorf("checkpoint: writing blob: %w", err)
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encoding metadata: %w", err)
	}
	if err := writeAtomic(s.metaPath(id), metaBytes); err != nil {
		return fmt.Errorf("checkpoint: writing metadata: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Load reads back the snapshot and metadata for id.
func (s *Store) Load(id string) (*evolution.Snapshot, *Metadata, error) {
	meta, err := s.LoadMetadata(id)
	if err != nil {
		return nil, nil, err
	}

	blob, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint: reading blob: %w", err)
	}

	var snap evolution.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return nil, nil, fmt.Errorf("checkpoint: decoding snapshot: %w", err)
	}
	return &snap, meta, nil
}

// LoadMetadata reads just the sidecar, without paying for the blob decode.
func (s *Store) LoadMetadata(id string) (*Metadata, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("checkpoint: decoding metadata: %w", err)
	}
	return &meta, nil
}

// Delete removes both files for id. Missing files are not an error.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.blobPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: deleting blob: %w", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: deleting metadata: %w", err)
	}
	return nil
}

// List returns metadata for every checkpoint in the store, optionally
// filtered by sessionID (pass "" for no filter), newest first.
func (s *Store) List(sessionID string) ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading store directory: %w", err)
	}

	var metas []Metadata
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		id := name[:len(name)-len(".json")]
		meta, err := s.LoadMetadata(id)
		if err != nil {
			continue
		}
		if sessionID != "" && meta.SessionID != sessionID {
			continue
		}
		metas = append(metas, *meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Cleanup keeps only the keepCount newest checkpoints per session,
// deleting the rest.
func (s *Store) Cleanup(keepCount int) error {
	all, err := s.List("")
	if err != nil {
		return err
	}

	bySession := make(map[string][]Metadata)
	for _, m := range all {
		bySession[m.SessionID] = append(bySession[m.SessionID], m)
	}

	for _, metas := range bySession {
		sort.Slice(metas, func(i, j int) bool {
			return metas[i].CreatedAt.After(metas[j].CreatedAt)
		})
		if len(metas) <= keepCount {
			continue
		}
		for _, m := range metas[keepCount:] {
			if err := s.Delete(m.CheckpointID); err != nil {
				return err
			}
		}
	}
	return nil
}
