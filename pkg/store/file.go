package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/reportwire/livewatch/pkg/domain"
)

// FileStore keeps the state in a single JSON file, written atomically via a
// temp file and rename. An older on-disk shape that stored only a bare list
// of links is upgraded transparently on load.
type FileStore struct {
	path string
}

type fileState struct {
	Links        []string            `json:"links"`
	PostIDs      []string            `json:"post_ids"`
	RecentTitles map[string][]string `json:"recent_titles,omitempty"`
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state file; a missing file yields an empty state.
func (f *FileStore) Load(_ context.Context) (*domain.DedupState, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return domain.NewDedupState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", f.path, err)
	}

	// legacy shape: a bare JSON array of links
	var legacy []string
	if err := json.Unmarshal(data, &legacy); err == nil {
		st := domain.NewDedupState()
		for _, link := range legacy {
			st.SentLinks[link] = struct{}{}
		}
		return st, nil
	}

	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", f.path, err)
	}
	st := domain.NewDedupState()
	for _, link := range fs.Links {
		st.SentLinks[link] = struct{}{}
	}
	for _, id := range fs.PostIDs {
		st.SentPostIDs[id] = struct{}{}
	}
	for topic, titles := range fs.RecentTitles {
		st.RecentTitles[topic] = titles
	}
	return st, nil
}

// Save writes the whole state atomically.
func (f *FileStore) Save(_ context.Context, st *domain.DedupState) error {
	fs := fileState{
		Links:        sortedKeys(st.SentLinks),
		PostIDs:      sortedKeys(st.SentPostIDs),
		RecentTitles: st.RecentTitles,
	}
	data, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state file %s: %w", f.path, err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
