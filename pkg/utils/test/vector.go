package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sudo-OMsharma/personabrain/pkg/vector"
)

// indexFileName is the serialized form a MockIndex saves into its directory.
const indexFileName = "mock.index"

// MockIndex is a test vector index that stores chunks in memory and matches
// by substring instead of embedding distance.
type MockIndex struct {
	Chunks map[int]string

	// Hits, when set, is returned verbatim from Search.
	Hits []vector.Hit

	// FailSearch causes Search to return an error.
	FailSearch bool
}

func NewMockIndex() *MockIndex {
	return &MockIndex{Chunks: make(map[int]string)}
}

func (m *MockIndex) Build(_ context.Context, chunks []vector.Chunk) error {
	for _, c := range chunks {
		m.Chunks[c.ID] = c.Text
	}
	return nil
}

func (m *MockIndex) Upsert(_ context.Context, id int, text string) error {
	m.Chunks[id] = text
	return nil
}

func (m *MockIndex) Delete(_ context.Context, ids []int) []int {
	removed := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.Chunks[id]; ok {
			delete(m.Chunks, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (m *MockIndex) Search(_ context.Context, _ string, k int) ([]vector.Hit, error) {
	if m.FailSearch {
		return nil, fmt.Errorf("mock search failure")
	}

	if m.Hits != nil {
		if len(m.Hits) > k {
			return m.Hits[:k], nil
		}
		return m.Hits, nil
	}

	ids := make([]int, 0, len(m.Chunks))
	for id := range m.Chunks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var hits []vector.Hit
	for i, id := range ids {
		if i >= k {
			break
		}
		hits = append(hits, vector.Hit{
			ID:    id,
			Text:  m.Chunks[id],
			Score: 1.0 / float64(i+1),
		})
	}
	return hits, nil
}

func (m *MockIndex) Save(_ context.Context, dir string) error {
	serial := make(map[string]string, len(m.Chunks))
	for id, text := range m.Chunks {
		serial[strconv.Itoa(id)] = text
	}
	raw, err := json.Marshal(serial)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, indexFileName), raw, 0o644)
}

func (m *MockIndex) Close() error {
	return nil
}

// MockFactory creates MockIndex instances. Open restores chunks from the
// file Save wrote, so the save/upload/download/open cycle round-trips.
type MockFactory struct {
	// FailOpen causes Open to fail with ErrIndexLoad.
	FailOpen bool

	// Created counts Create calls, Opened counts successful Opens.
	Created int
	Opened  int
}

func NewMockFactory() *MockFactory {
	return &MockFactory{}
}

func (f *MockFactory) Create(_ context.Context, dir string) (vector.Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f.Created++

	idx := NewMockIndex()
	if err := idx.Save(context.Background(), dir); err != nil {
		return nil, err
	}
	return idx, nil
}

func (f *MockFactory) Open(_ context.Context, dir string) (vector.Index, error) {
	if f.FailOpen {
		return nil, fmt.Errorf("%w: mock open failure", vector.ErrIndexLoad)
	}

	raw, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrIndexLoad, err)
	}

	var serial map[string]string
	if err := json.Unmarshal(raw, &serial); err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrIndexLoad, err)
	}

	idx := NewMockIndex()
	for key, text := range serial {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: bad chunk id %q", vector.ErrIndexLoad, key)
		}
		idx.Chunks[id] = text
	}

	f.Opened++
	return idx, nil
}

var (
	_ vector.Index   = (*MockIndex)(nil)
	_ vector.Factory = (*MockFactory)(nil)
)
