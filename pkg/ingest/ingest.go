// Package ingest implements every mutation of a brain: creation, file
// upload, file deletion, brain deletion and rename. Mutations hold the
// brain's lock end to end and follow a fixed order: the index changes first,
// the ledger second, then both are persisted and the cache entry is evicted
// so the next request reloads fresh state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/blob"
	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/chunker"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
	"github.com/sudo-OMsharma/personabrain/pkg/vector"
)

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Config wires a Service.
type Config struct {
	Cache       *brain.Cache
	Store       blob.Store
	Factory     vector.Factory
	Ledgers     *ledger.Store
	Transcriber Transcriber
	Events      eventstream.Publisher

	// IndexPrefix is the blob prefix saved indexes and ledger mirrors
	// live under; DocPrefix holds the raw uploaded documents.
	IndexPrefix string
	DocPrefix   string

	// WordsPerChunk sizes chunks; zero means the chunker default.
	WordsPerChunk int

	// WorkDir holds scratch space for index builds.
	WorkDir string
}

// Service runs brain mutations.
type Service struct {
	cache         *brain.Cache
	store         blob.Store
	factory       vector.Factory
	ledgers       *ledger.Store
	transcriber   Transcriber
	events        eventstream.Publisher
	indexPrefix   string
	docPrefix     string
	wordsPerChunk int
	workDir       string
	logger        *zap.Logger
}

// NewService creates a mutation service.
func NewService(cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.Cache == nil || cfg.Store == nil || cfg.Factory == nil || cfg.Ledgers == nil {
		return nil, errors.New("cache, store, factory and ledgers are required")
	}
	if cfg.WorkDir == "" {
		return nil, errors.New("work dir is required")
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}

	wordsPerChunk := cfg.WordsPerChunk
	if wordsPerChunk <= 0 {
		wordsPerChunk = chunker.DefaultWordsPerChunk
	}

	return &Service{
		cache:         cfg.Cache,
		store:         cfg.Store,
		factory:       cfg.Factory,
		ledgers:       cfg.Ledgers,
		transcriber:   cfg.Transcriber,
		events:        cfg.Events,
		indexPrefix:   cfg.IndexPrefix,
		docPrefix:     cfg.DocPrefix,
		wordsPerChunk: wordsPerChunk,
		workDir:       cfg.WorkDir,
		logger:        logger,
	}, nil
}

func (s *Service) indexPrefixFor(name string) string {
	return path.Join(s.indexPrefix, name)
}

func (s *Service) docPrefixFor(name string) string {
	return path.Join(s.docPrefix, name)
}

// ledgerMirrorKey is where the ledger JSON lands in blob storage, next to
// the index it describes.
func (s *Service) ledgerMirrorKey(name string) string {
	return path.Join(s.indexPrefix, name, name+".json")
}

// mirrorLedger copies the local ledger file into the brain's index prefix.
func (s *Service) mirrorLedger(ctx context.Context, name string) error {
	return s.store.Upload(ctx, s.ledgerMirrorKey(name), s.ledgers.Path(name))
}

// Exists reports whether the named brain exists durably.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := s.ledgers.Load(name); err == nil {
		return true, nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return false, err
	}

	return s.store.Exists(ctx, s.indexPrefixFor(name))
}

// CreateBrain provisions an empty brain: a fresh index in durable storage
// and a ledger holding only the personality name.
func (s *Service) CreateBrain(ctx context.Context, brainName, personalityName string) error {
	if strings.TrimSpace(brainName) == "" {
		return fmt.Errorf("%w: brainName cannot be empty", ErrInvalidArgument)
	}

	personality, err := normalizePersonality(personalityName)
	if err != nil {
		return err
	}

	exists, err := s.Exists(ctx, brainName)
	if err != nil {
		return fmt.Errorf("checking brain %s: %w", brainName, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBrainExists, brainName)
	}

	dir, err := os.MkdirTemp(s.workDir, "create-*")
	if err != nil {
		return fmt.Errorf("allocating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	idx, err := s.factory.Create(ctx, dir)
	if err != nil {
		return fmt.Errorf("creating index for %s: %w", brainName, err)
	}
	defer idx.Close()

	if err := idx.Save(ctx, dir); err != nil {
		return fmt.Errorf("saving index for %s: %w", brainName, err)
	}
	if err := s.store.UploadPrefix(ctx, s.indexPrefixFor(brainName), dir); err != nil {
		return fmt.Errorf("uploading index for %s: %w", brainName, err)
	}

	if err := s.ledgers.Save(brainName, ledger.New(personality)); err != nil {
		return fmt.Errorf("saving ledger for %s: %w", brainName, err)
	}
	if err := s.mirrorLedger(ctx, brainName); err != nil {
		return fmt.Errorf("mirroring ledger for %s: %w", brainName, err)
	}

	s.logger.Info("brain created",
		zap.String("brain", brainName),
		zap.String("personality", personality),
	)
	s.publish(ctx, eventstream.NewBrainCreated(brainName))
	return nil
}

// DeleteBrain removes the brain from cache, durable storage and the local
// ledger store.
func (s *Service) DeleteBrain(ctx context.Context, brainName string) error {
	if strings.TrimSpace(brainName) == "" {
		return fmt.Errorf("%w: brainName cannot be empty", ErrInvalidArgument)
	}

	exists, err := s.Exists(ctx, brainName)
	if err != nil {
		return fmt.Errorf("checking brain %s: %w", brainName, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", brain.ErrBrainNotFound, brainName)
	}

	s.cache.Evict(brainName)

	if err := s.store.DeletePrefix(ctx, s.indexPrefixFor(brainName)); err != nil {
		return fmt.Errorf("deleting index of %s: %w", brainName, err)
	}
	if err := s.store.DeletePrefix(ctx, s.docPrefixFor(brainName)); err != nil {
		return fmt.Errorf("deleting documents of %s: %w", brainName, err)
	}
	if err := s.ledgers.Delete(brainName); err != nil {
		return fmt.Errorf("deleting ledger of %s: %w", brainName, err)
	}

	s.logger.Info("brain deleted", zap.String("brain", brainName))
	s.publish(ctx, eventstream.NewBrainDeleted(brainName))
	return nil
}

// RenameBrain moves a brain to a new name: blob prefixes are copied then the
// old ones removed, and the ledger file is renamed. The old name's cache
// entry is evicted.
func (s *Service) RenameBrain(ctx context.Context, oldName, newName string) error {
	if strings.TrimSpace(oldName) == "" || strings.TrimSpace(newName) == "" {
		return fmt.Errorf("%w: old_brainName and new_brainName cannot be empty", ErrInvalidArgument)
	}

	exists, err := s.Exists(ctx, oldName)
	if err != nil {
		return fmt.Errorf("checking brain %s: %w", oldName, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", brain.ErrBrainNotFound, oldName)
	}

	exists, err = s.Exists(ctx, newName)
	if err != nil {
		return fmt.Errorf("checking brain %s: %w", newName, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBrainExists, newName)
	}

	s.cache.Evict(oldName)

	if err := s.store.CopyPrefix(ctx, s.indexPrefixFor(oldName), s.indexPrefixFor(newName)); err != nil {
		return fmt.Errorf("copying index of %s: %w", oldName, err)
	}
	if err := s.store.CopyPrefix(ctx, s.docPrefixFor(oldName), s.docPrefixFor(newName)); err != nil {
		return fmt.Errorf("copying documents of %s: %w", oldName, err)
	}

	if err := s.ledgers.Rename(oldName, newName); err != nil {
		return fmt.Errorf("renaming ledger of %s: %w", oldName, err)
	}

	// The mirrored ledger under the new prefix still carries the old
	// name in its key; refresh it.
	if err := s.store.Delete(ctx, path.Join(s.indexPrefix, newName, oldName+".json")); err != nil {
		s.logger.Warn("failed to drop stale ledger mirror", zap.Error(err))
	}
	if err := s.mirrorLedger(ctx, newName); err != nil {
		return fmt.Errorf("mirroring ledger for %s: %w", newName, err)
	}

	if err := s.store.DeletePrefix(ctx, s.indexPrefixFor(oldName)); err != nil {
		return fmt.Errorf("removing old index of %s: %w", oldName, err)
	}
	if err := s.store.DeletePrefix(ctx, s.docPrefixFor(oldName)); err != nil {
		return fmt.Errorf("removing old documents of %s: %w", oldName, err)
	}

	s.logger.Info("brain renamed",
		zap.String("from", oldName),
		zap.String("to", newName),
	)
	s.publish(ctx, eventstream.NewBrainRenamed(oldName, newName))
	return nil
}

func (s *Service) publish(ctx context.Context, event *eventstream.BrainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBrainEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", event.EventType),
			zap.Error(err),
		)
	}
}

// normalizePersonality trims and lowercases the personality name, rejecting
// anything beyond letters and spaces.
func normalizePersonality(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: personality_name cannot be empty", ErrInvalidArgument)
	}

	for _, r := range trimmed {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return "", fmt.Errorf("%w: personality_name must only contain letters and spaces", ErrInvalidArgument)
		}
	}

	return strings.ToLower(trimmed), nil
}
