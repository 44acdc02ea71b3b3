// Package ledger maintains the per-brain file range record: the mapping from
// each uploaded filename to the contiguous range of chunk ids it occupies in
// the brain's vector index, plus the running id watermark. The ledger is what
// makes incremental append and partial delete possible without reindexing.
package ledger

import (
	"encoding/json"
	"fmt"
)

// Range is an inclusive [Start, End] chunk-id range belonging to one file.
type Range struct {
	Start int
	End   int
}

// Contains reports whether id falls inside the range.
func (r Range) Contains(id int) bool {
	return id >= r.Start && id <= r.End
}

// MarshalJSON encodes the range as the two-element array used on disk.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON decodes the on-disk two-element array form.
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decoding range: %w", err)
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// Ledger is one brain's file range record. Files preserves insertion order so
// id-to-file resolution scans files oldest-first, matching ingestion order.
type Ledger struct {
	PersonalityName string
	LastIndex       int
	files           map[string]Range
	order           []string
}

// New returns an empty ledger for a freshly provisioned brain.
func New(personalityName string) *Ledger {
	return &Ledger{
		PersonalityName: personalityName,
		files:           make(map[string]Range),
	}
}

// Files returns the filenames in insertion order.
func (l *Ledger) Files() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Lookup returns the id range recorded for filename.
func (l *Ledger) Lookup(filename string) (Range, bool) {
	r, ok := l.files[filename]
	return r, ok
}

// Has reports whether filename is already recorded.
func (l *Ledger) Has(filename string) bool {
	_, ok := l.files[filename]
	return ok
}

// Len returns the number of recorded files.
func (l *Ledger) Len() int {
	return len(l.order)
}

// RecordNewFile records the chunk ids assigned to filename and advances the
// watermark. The ids must be the contiguous block just appended to the index;
// the recorded range is [min(ids), max(ids)].
func (l *Ledger) RecordNewFile(filename string, chunkIDs []int) error {
	if len(chunkIDs) == 0 {
		return fmt.Errorf("recording %q: %w", filename, ErrNoChunks)
	}

	lo, hi := chunkIDs[0], chunkIDs[0]
	for _, id := range chunkIDs[1:] {
		if id < lo {
			lo = id
		}
		if id > hi {
			hi = id
		}
	}

	if _, exists := l.files[filename]; !exists {
		l.order = append(l.order, filename)
	}
	l.files[filename] = Range{Start: lo, End: hi}

	if hi > l.LastIndex {
		l.LastIndex = hi
	}

	return nil
}

// RemoveFile deletes filename's entry. The watermark is left untouched: ids
// are never reused, so LastIndex stays at the maximum ever assigned.
func (l *Ledger) RemoveFile(filename string) (Range, error) {
	r, ok := l.files[filename]
	if !ok {
		return Range{}, fmt.Errorf("removing %q: %w", filename, ErrFileNotFound)
	}

	delete(l.files, filename)
	for i, name := range l.order {
		if name == filename {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	return r, nil
}

// ResolveFileForID returns the filename whose range contains id, scanning in
// insertion order. The second return is false when no range matches, which
// happens for ids whose file has since been deleted.
func (l *Ledger) ResolveFileForID(id int) (string, bool) {
	for _, name := range l.order {
		if l.files[name].Contains(id) {
			return name, true
		}
	}
	return "", false
}

// NextIDs returns the n chunk ids following the watermark, without advancing
// it. The caller assigns them to a new file's chunks and commits them via
// RecordNewFile after the index mutation succeeds.
func (l *Ledger) NextIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = l.LastIndex + 1 + i
	}
	return ids
}

// ledgerJSON is the wire form, kept compatible with the original records:
// {"personality_name": ..., "last_index": ..., "files": {name: [start, end]}}.
type ledgerJSON struct {
	PersonalityName string           `json:"personality_name"`
	LastIndex       int              `json:"last_index"`
	Files           map[string]Range `json:"files"`
	FileOrder       []string         `json:"file_order,omitempty"`
}

// MarshalJSON serializes the ledger, carrying the insertion order alongside
// the files map so resolution order survives a reload.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(ledgerJSON{
		PersonalityName: l.PersonalityName,
		LastIndex:       l.LastIndex,
		Files:           l.files,
		FileOrder:       l.order,
	})
}

// UnmarshalJSON restores a ledger from its wire form. Records written before
// file_order existed fall back to an unspecified but stable order.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var raw ledgerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding ledger: %w", err)
	}

	l.PersonalityName = raw.PersonalityName
	l.LastIndex = raw.LastIndex
	l.files = raw.Files
	if l.files == nil {
		l.files = make(map[string]Range)
	}

	l.order = l.order[:0]
	seen := make(map[string]bool, len(raw.FileOrder))
	for _, name := range raw.FileOrder {
		if _, ok := l.files[name]; ok && !seen[name] {
			l.order = append(l.order, name)
			seen[name] = true
		}
	}
	for name := range l.files {
		if !seen[name] {
			l.order = append(l.order, name)
		}
	}

	return nil
}
