package ingest

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
)

// DeleteResult reports which files were removed and which were never there.
type DeleteResult struct {
	Deleted    []string `json:"deleted"`
	NotPresent []string `json:"not_present"`
}

// DeleteFiles removes the named files from the brain: their chunk ids are
// deleted from the index best-effort, the ledger entries go away, and the
// raw documents are dropped from storage. Absent files are reported, not
// fatal. The brain's lock is held for the whole batch.
func (s *Service) DeleteFiles(ctx context.Context, brainName string, fileNames []string) (*DeleteResult, error) {
	if strings.TrimSpace(brainName) == "" || len(fileNames) == 0 {
		return nil, fmt.Errorf("%w: brainName and file_names cannot be empty", ErrInvalidArgument)
	}

	result := &DeleteResult{}
	var events []*eventstream.BrainEvent

	err := s.cache.WithEntry(ctx, brainName, func(entry *brain.Entry) error {
		for _, fileName := range fileNames {
			rng, ok := entry.Ledger.Lookup(fileName)
			if !ok {
				result.NotPresent = append(result.NotPresent, fileName)
				continue
			}

			ids := make([]int, 0, rng.End-rng.Start+1)
			for id := rng.Start; id <= rng.End; id++ {
				ids = append(ids, id)
			}

			removed := entry.Index.Delete(ctx, ids)
			if len(removed) < len(ids) {
				s.logger.Warn("some chunks were not removed from the index",
					zap.String("brain", brainName),
					zap.String("file", fileName),
					zap.Int("requested", len(ids)),
					zap.Int("removed", len(removed)),
				)
			}

			if _, err := entry.Ledger.RemoveFile(fileName); err != nil {
				return fmt.Errorf("removing %s from ledger: %w", fileName, err)
			}

			if err := s.store.Delete(ctx, path.Join(s.docPrefixFor(brainName), fileName)); err != nil {
				s.logger.Warn("raw document removal failed",
					zap.String("brain", brainName),
					zap.String("file", fileName),
					zap.Error(err),
				)
			}

			result.Deleted = append(result.Deleted, fileName)
			events = append(events, eventstream.NewFileDeleted(brainName, fileName))
		}

		if len(result.Deleted) == 0 {
			return nil
		}

		if err := entry.Index.Save(ctx, entry.Dir); err != nil {
			return fmt.Errorf("saving index of %s: %w", brainName, err)
		}
		if err := s.store.UploadPrefix(ctx, s.indexPrefixFor(brainName), entry.Dir); err != nil {
			return fmt.Errorf("uploading index of %s: %w", brainName, err)
		}
		if err := s.ledgers.Save(brainName, entry.Ledger); err != nil {
			return fmt.Errorf("saving ledger of %s: %w", brainName, err)
		}
		if err := s.mirrorLedger(ctx, brainName); err != nil {
			return fmt.Errorf("mirroring ledger of %s: %w", brainName, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Deleted) > 0 {
		s.cache.Evict(brainName)
	}

	for _, event := range events {
		s.publish(ctx, event)
	}

	s.logger.Info("file deletion finished",
		zap.String("brain", brainName),
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("not_present", len(result.NotPresent)),
	)
	return result, nil
}
