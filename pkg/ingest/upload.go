package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/chunker"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
	"github.com/sudo-OMsharma/personabrain/pkg/extract"
)

// Per-file upload outcomes reported back to the caller.
const (
	StatusProcessed         = "File uploaded and processed successfully"
	StatusAlreadyExists     = "File already exists"
	StatusUnsupportedFormat = "Unsupported file format"
	StatusNoContent         = "File has unsupported content in it"
	StatusNoFilename        = "No selected file"
	StatusVideoUnsupported  = "Video files are not supported"
	StatusTranscribeFailed  = "Error transcribing audio"
	StatusProcessingFailed  = "Error processing file"
)

// UploadFile is one incoming file, already spooled to local disk by the
// transport layer.
type UploadFile struct {
	// Name is the filename as uploaded.
	Name string

	// Path is where the file content sits on local disk.
	Path string
}

// FileStatus is the per-file outcome of an upload batch.
type FileStatus struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Upload ingests a batch of files into the named brain. Every file gets an
// individual status; the batch itself only fails when the brain cannot be
// loaded or the updated state cannot be persisted. The brain's lock is held
// for the whole batch.
func (s *Service) Upload(ctx context.Context, brainName string, files []UploadFile) ([]FileStatus, error) {
	if strings.TrimSpace(brainName) == "" {
		return nil, fmt.Errorf("%w: brainName cannot be empty", ErrInvalidArgument)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrInvalidArgument)
	}

	exists, err := s.Exists(ctx, brainName)
	if err != nil {
		return nil, fmt.Errorf("checking brain %s: %w", brainName, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", brain.ErrBrainNotFound, brainName)
	}

	var (
		statuses []FileStatus
		events   []*eventstream.BrainEvent
	)

	err = s.cache.WithEntry(ctx, brainName, func(entry *brain.Entry) error {
		ingested := 0
		for _, file := range files {
			status, event := s.ingestOne(ctx, brainName, entry, file)
			statuses = append(statuses, status)
			if event != nil {
				events = append(events, event)
				ingested++
			}
		}

		if ingested == 0 {
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

	// Force a reload on the next request so it sees exactly what durable
	// storage holds.
	if len(events) > 0 {
		s.cache.Evict(brainName)
	}

	for _, event := range events {
		s.publish(ctx, event)
	}
	return statuses, nil
}

// ingestOne processes a single file against a loaded entry. A nil event
// means the file was not ingested; the status says why.
func (s *Service) ingestOne(ctx context.Context, brainName string, entry *brain.Entry, file UploadFile) (FileStatus, *eventstream.BrainEvent) {
	if file.Name == "" {
		return FileStatus{Filename: file.Name, Status: StatusNoFilename}, nil
	}

	kind := extract.KindOf(file.Name)

	var (
		text       string
		recordName = file.Name
	)

	switch kind {
	case extract.KindUnsupported:
		return FileStatus{Filename: file.Name, Status: StatusUnsupportedFormat}, nil

	case extract.KindVideo:
		return FileStatus{Filename: file.Name, Status: StatusVideoUnsupported}, nil

	case extract.KindAudio:
		if s.transcriber == nil {
			return FileStatus{Filename: file.Name, Status: StatusUnsupportedFormat}, nil
		}
		transcript, err := s.transcriber.Transcribe(ctx, file.Path)
		if err != nil {
			s.logger.Error("transcription failed",
				zap.String("brain", brainName),
				zap.String("file", file.Name),
				zap.Error(err),
			)
			return FileStatus{Filename: file.Name, Status: StatusTranscribeFailed}, nil
		}
		text = transcript
		recordName = stem(file.Name) + ".txt"

	case extract.KindDocument:
		extracted, err := extract.Text(file.Path)
		if err != nil {
			if errors.Is(err, extract.ErrEmptyContent) {
				return FileStatus{Filename: file.Name, Status: StatusNoContent}, nil
			}
			s.logger.Error("text extraction failed",
				zap.String("brain", brainName),
				zap.String("file", file.Name),
				zap.Error(err),
			)
			return FileStatus{Filename: file.Name, Status: StatusProcessingFailed}, nil
		}
		text = extracted
	}

	if entry.Ledger.Has(recordName) {
		return FileStatus{Filename: file.Name, Status: StatusAlreadyExists}, nil
	}

	if strings.TrimSpace(text) == "" {
		return FileStatus{Filename: file.Name, Status: StatusNoContent}, nil
	}

	chunks := chunker.Split(text, s.wordsPerChunk)
	ids := entry.Ledger.NextIDs(len(chunks))

	// Index first. A failure here leaves the ledger untouched, so the
	// file can be retried cleanly.
	for i, chunk := range chunks {
		if err := entry.Index.Upsert(ctx, ids[i], chunk); err != nil {
			s.logger.Error("chunk indexing failed",
				zap.String("brain", brainName),
				zap.String("file", file.Name),
				zap.Int("chunk", ids[i]),
				zap.Error(err),
			)
			return FileStatus{Filename: file.Name, Status: StatusProcessingFailed}, nil
		}
	}

	if err := entry.Ledger.RecordNewFile(recordName, ids); err != nil {
		return FileStatus{Filename: file.Name, Status: StatusProcessingFailed}, nil
	}

	if err := s.store.Upload(ctx, path.Join(s.docPrefixFor(brainName), file.Name), file.Path); err != nil {
		s.logger.Warn("raw document upload failed",
			zap.String("brain", brainName),
			zap.String("file", file.Name),
			zap.Error(err),
		)
	}

	s.logger.Info("file ingested",
		zap.String("brain", brainName),
		zap.String("file", recordName),
		zap.Int("chunks", len(chunks)),
	)

	rng, _ := entry.Ledger.Lookup(recordName)
	return FileStatus{Filename: file.Name, Status: StatusProcessed},
		eventstream.NewFileIngested(brainName, recordName, rng.Start, rng.End)
}

func stem(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		return filename[:i]
	}
	return filename
}
