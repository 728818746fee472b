package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// snapshot maps a collection name to its documents, each one encoded as
// canonical extended JSON so ids, dates and integer widths survive a reload.
type snapshot map[string][]json.RawMessage

// JSONStore keeps a MemoryStore snapshot in a single file.
type JSONStore struct {
	mu       sync.Mutex
	filePath string
}

// NewJSONStore creates dataDir if needed and stores snapshots in filename.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &JSONStore{filePath: filepath.Join(dataDir, filename)}, nil
}

// Load returns the documents of every collection in the snapshot. A missing
// file is an empty snapshot.
func (s *JSONStore) Load() (map[string][]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]bson.M)
	raw, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for name, docs := range snap {
		list := make([]bson.M, 0, len(docs))
		for i, d := range docs {
			var m bson.M
			if err := bson.UnmarshalExtJSON(d, true, &m); err != nil {
				return nil, fmt.Errorf("decode %s[%d]: %w", name, i, err)
			}
			list = append(list, m)
		}
		out[name] = list
	}
	return out, nil
}

// Save writes collections to a temp file and renames it over the previous
// snapshot, so a crash mid-write keeps the old one.
func (s *JSONStore) Save(collections map[string][]bson.M) error {
	snap := make(snapshot, len(collections))
	for name, docs := range collections {
		list := make([]json.RawMessage, 0, len(docs))
		for _, d := range docs {
			b, err := bson.MarshalExtJSON(d, true, false)
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			list = append(list, b)
		}
		snap[name] = list
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.filePath)
}
