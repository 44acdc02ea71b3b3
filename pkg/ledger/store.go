package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store reads and writes ledger records under a root directory, one
// "<brainName>.json" per brain.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates a ledger store rooted at dir, creating it if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("ledger store root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger root: %w", err)
	}
	return &Store{root: dir, logger: logger}, nil
}

// Path returns the on-disk path of a brain's ledger record.
func (s *Store) Path(brainName string) string {
	return filepath.Join(s.root, brainName+".json")
}

// Load reads and decodes the ledger record for brainName. Returns ErrNotFound
// when no record exists; other failures are I/O or corruption.
func (s *Store) Load(brainName string) (*Ledger, error) {
	path := s.Path(brainName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("ledger for %q: %w", brainName, ErrNotFound)
		}
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}

	l := &Ledger{}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}

	s.logger.Debug("ledger loaded",
		zap.String("brain", brainName),
		zap.Int("files", l.Len()),
		zap.Int("last_index", l.LastIndex),
	)

	return l, nil
}

// Save writes the ledger record for brainName, replacing any previous record.
// The write goes through a temp file and rename so readers never observe a
// torn record.
func (s *Store) Save(brainName string, l *Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding ledger for %q: %w", brainName, err)
	}

	path := s.Path(brainName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing ledger %s: %w", path, err)
	}

	s.logger.Debug("ledger saved",
		zap.String("brain", brainName),
		zap.Int("files", l.Len()),
		zap.Int("last_index", l.LastIndex),
	)

	return nil
}

// Delete removes the ledger record for brainName. Deleting a missing record
// is not an error.
func (s *Store) Delete(brainName string) error {
	err := os.Remove(s.Path(brainName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting ledger for %q: %w", brainName, err)
	}
	return nil
}

// Rename copies the ledger record from oldName to newName and removes the
// old record. The new record is written before the old one is deleted, so a
// failed copy leaves the old record intact.
func (s *Store) Rename(oldName, newName string) error {
	l, err := s.Load(oldName)
	if err != nil {
		return err
	}

	if err := s.Save(newName, l); err != nil {
		return err
	}

	if err := os.Remove(s.Path(oldName)); err != nil {
		return fmt.Errorf("removing old ledger for %q: %w", oldName, err)
	}

	s.logger.Info("ledger renamed",
		zap.String("from", oldName),
		zap.String("to", newName),
	)

	return nil
}
