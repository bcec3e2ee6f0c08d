package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const stateFile = "ingest_state.json"

// State tracks which documents have been ingested and their content hashes.
type State struct {
	FileHashes  map[string]string `json:"file_hashes"`
	Chunks      map[string]int    `json:"chunks"`
	LastUpdated time.Time         `json:"last_updated"`
}

// LoadState reads the ingest state from dir. A missing file yields an
// empty state.
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &State{FileHashes: map[string]string{}, Chunks: map[string]int{}}, nil
		}
		return nil, err
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.FileHashes == nil {
		s.FileHashes = map[string]string{}
	}
	if s.Chunks == nil {
		s.Chunks = map[string]int{}
	}
	return &s, nil
}

// Save writes the state to dir.
func (s *State) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	s.LastUpdated = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, stateFile), data, 0o644)
}

// Changed reports whether path is new or its content hash differs.
func (s *State) Changed(path, hash string) bool {
	stored, ok := s.FileHashes[path]
	return !ok || stored != hash
}

// TotalChunks sums the recorded chunk counts.
func (s *State) TotalChunks() int {
	n := 0
	for _, c := range s.Chunks {
		n += c
	}
	return n
}
