package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/blob/local"
	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
	"github.com/sudo-OMsharma/personabrain/pkg/ingest"
	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
	"github.com/sudo-OMsharma/personabrain/pkg/logger"
	testutils "github.com/sudo-OMsharma/personabrain/pkg/utils/test"
)

func TestIngest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ingest Suite")
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

var _ = Describe("Service", func() {
	var (
		service     *ingest.Service
		cache       *brain.Cache
		store       *local.Store
		factory     *testutils.MockFactory
		ledgers     *ledger.Store
		events      *testutils.RecordingPublisher
		transcriber *fakeTranscriber
		workDir     string
		ctx         context.Context
	)

	writeDoc := func(name, body string) ingest.UploadFile {
		path := filepath.Join(workDir, name)
		Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())
		return ingest.UploadFile{Name: name, Path: path}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		workDir = GinkgoT().TempDir()

		store, err = local.NewStore(GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		factory = testutils.NewMockFactory()
		ledgers, err = ledger.NewStore(GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		cache, err = brain.NewCache(brain.Config{
			Store:       store,
			Factory:     factory,
			Ledgers:     ledgers,
			CacheDir:    GinkgoT().TempDir(),
			IndexPrefix: "master-index",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		events = testutils.NewRecordingPublisher()
		transcriber = &fakeTranscriber{text: "spoken words from the recording"}

		service, err = ingest.NewService(ingest.Config{
			Cache:       cache,
			Store:       store,
			Factory:     factory,
			Ledgers:     ledgers,
			Transcriber: transcriber,
			Events:      events,
			IndexPrefix: "master-index",
			DocPrefix:   "master-doc",
			WordsPerChunk: 3,
			WorkDir:       GinkgoT().TempDir(),
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("CreateBrain", func() {
		It("creates an empty brain with a normalized personality", func() {
			Expect(service.CreateBrain(ctx, "acme", "  Nova Sky ")).To(Succeed())

			led, err := ledgers.Load("acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(led.PersonalityName).To(Equal("nova sky"))
			Expect(led.Len()).To(BeZero())

			exists, err := store.Exists(ctx, "master-index/acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			Expect(events.EventTypes()).To(ConsistOf(eventstream.EventTypeBrainCreated))
		})

		It("rejects personality names with non-letter characters", func() {
			err := service.CreateBrain(ctx, "acme", "nova42")
			Expect(err).To(MatchError(ingest.ErrInvalidArgument))
		})

		It("rejects empty parameters", func() {
			Expect(service.CreateBrain(ctx, "", "nova")).To(MatchError(ingest.ErrInvalidArgument))
			Expect(service.CreateBrain(ctx, "acme", "   ")).To(MatchError(ingest.ErrInvalidArgument))
		})

		It("conflicts with an existing brain", func() {
			Expect(service.CreateBrain(ctx, "acme", "nova")).To(Succeed())
			Expect(service.CreateBrain(ctx, "acme", "vega")).To(MatchError(ingest.ErrBrainExists))
		})
	})

	Describe("Upload", func() {
		BeforeEach(func() {
			Expect(service.CreateBrain(ctx, "acme", "nova")).To(Succeed())
		})

		It("rejects uploads to unknown brains", func() {
			_, err := service.Upload(ctx, "ghost", []ingest.UploadFile{writeDoc("a.txt", "body")})
			Expect(err).To(MatchError(brain.ErrBrainNotFound))
		})

		It("ingests a text file and records its range", func() {
			statuses, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three four five six seven"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses).To(ConsistOf(ingest.FileStatus{
				Filename: "intro.txt",
				Status:   ingest.StatusProcessed,
			}))

			led, err := ledgers.Load("acme")
			Expect(err).NotTo(HaveOccurred())
			rng, ok := led.Lookup("intro.txt")
			Expect(ok).To(BeTrue())
			// 7 words at 3 words per chunk is 3 chunks.
			Expect(rng.Start).To(Equal(1))
			Expect(rng.End).To(Equal(3))
			Expect(led.LastIndex).To(Equal(3))
		})

		It("assigns ids after the watermark across uploads", func() {
			_, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three four five six seven"),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("faq.txt", "eight nine ten eleven"),
			})
			Expect(err).NotTo(HaveOccurred())

			led, err := ledgers.Load("acme")
			Expect(err).NotTo(HaveOccurred())
			rng, ok := led.Lookup("faq.txt")
			Expect(ok).To(BeTrue())
			Expect(rng.Start).To(Equal(4))
			Expect(rng.End).To(Equal(5))
		})

		It("rejects duplicate filenames", func() {
			_, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three"),
			})
			Expect(err).NotTo(HaveOccurred())

			statuses, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "different body"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses[0].Status).To(Equal(ingest.StatusAlreadyExists))
		})

		It("gives every file in a mixed batch its own status", func() {
			statuses, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("good.txt", "one two three"),
				writeDoc("empty.txt", "   "),
				writeDoc("image.png", "not really a png"),
				writeDoc("clip.mp4", "not really a video"),
			})
			Expect(err).NotTo(HaveOccurred())

			byName := map[string]string{}
			for _, st := range statuses {
				byName[st.Filename] = st.Status
			}
			Expect(byName).To(Equal(map[string]string{
				"good.txt":  ingest.StatusProcessed,
				"empty.txt": ingest.StatusNoContent,
				"image.png": ingest.StatusUnsupportedFormat,
				"clip.mp4":  ingest.StatusVideoUnsupported,
			}))
		})

		It("transcribes audio and records it as a text file", func() {
			statuses, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("talk.mp3", "fake-audio-bytes"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses[0].Status).To(Equal(ingest.StatusProcessed))

			led, err := ledgers.Load("acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(led.Has("talk.txt")).To(BeTrue())
		})

		It("reports transcription failures per file", func() {
			transcriber.err = fmt.Errorf("whisper offline")

			statuses, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("talk.mp3", "fake-audio-bytes"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses[0].Status).To(Equal(ingest.StatusTranscribeFailed))
		})

		It("stores the raw document and publishes an ingest event", func() {
			_, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three"),
			})
			Expect(err).NotTo(HaveOccurred())

			exists, err := store.Exists(ctx, "master-doc/acme/intro.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			Expect(events.EventTypes()).To(ContainElement(eventstream.EventTypeFileIngested))
		})

		It("evicts the cache entry so the next read reloads", func() {
			_, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.Snapshot()).To(BeEmpty())
		})
	})

	Describe("DeleteFiles", func() {
		BeforeEach(func() {
			Expect(service.CreateBrain(ctx, "acme", "nova")).To(Succeed())
			_, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three four five six seven"),
				writeDoc("faq.txt", "eight nine ten eleven"),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes a file's ledger entry and reports absent ones", func() {
			result, err := service.DeleteFiles(ctx, "acme", []string{"intro.txt", "ghost.txt"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Deleted).To(ConsistOf("intro.txt"))
			Expect(result.NotPresent).To(ConsistOf("ghost.txt"))

			led, err := ledgers.Load("acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(led.Has("intro.txt")).To(BeFalse())
			Expect(led.Has("faq.txt")).To(BeTrue())
			// The watermark never rewinds.
			Expect(led.LastIndex).To(Equal(5))
		})

		It("publishes a deletion event per removed file", func() {
			_, err := service.DeleteFiles(ctx, "acme", []string{"intro.txt"})
			Expect(err).NotTo(HaveOccurred())
			Expect(events.EventTypes()).To(ContainElement(eventstream.EventTypeFileDeleted))
		})

		It("validates its arguments", func() {
			_, err := service.DeleteFiles(ctx, "", []string{"intro.txt"})
			Expect(err).To(MatchError(ingest.ErrInvalidArgument))

			_, err = service.DeleteFiles(ctx, "acme", nil)
			Expect(err).To(MatchError(ingest.ErrInvalidArgument))
		})
	})

	Describe("DeleteBrain", func() {
		It("removes everything the brain owns", func() {
			Expect(service.CreateBrain(ctx, "acme", "nova")).To(Succeed())
			_, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three"),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteBrain(ctx, "acme")).To(Succeed())

			_, err = ledgers.Load("acme")
			Expect(err).To(MatchError(ledger.ErrNotFound))

			exists, err := store.Exists(ctx, "master-index/acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())

			Expect(events.EventTypes()).To(ContainElement(eventstream.EventTypeBrainDeleted))
		})

		It("reports an unknown brain", func() {
			Expect(service.DeleteBrain(ctx, "ghost")).To(MatchError(brain.ErrBrainNotFound))
		})
	})

	Describe("RenameBrain", func() {
		BeforeEach(func() {
			Expect(service.CreateBrain(ctx, "acme", "nova")).To(Succeed())
			_, err := service.Upload(ctx, "acme", []ingest.UploadFile{
				writeDoc("intro.txt", "one two three"),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("moves the ledger and storage to the new name", func() {
			Expect(service.RenameBrain(ctx, "acme", "globex")).To(Succeed())

			led, err := ledgers.Load("globex")
			Expect(err).NotTo(HaveOccurred())
			Expect(led.Has("intro.txt")).To(BeTrue())

			_, err = ledgers.Load("acme")
			Expect(err).To(MatchError(ledger.ErrNotFound))

			exists, err := store.Exists(ctx, "master-index/globex")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = store.Exists(ctx, "master-index/acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})

		It("refuses to rename onto an existing brain", func() {
			Expect(service.CreateBrain(ctx, "globex", "vega")).To(Succeed())
			Expect(service.RenameBrain(ctx, "acme", "globex")).To(MatchError(ingest.ErrBrainExists))
		})

		It("reports a missing source brain", func() {
			Expect(service.RenameBrain(ctx, "ghost", "globex")).To(MatchError(brain.ErrBrainNotFound))
		})

		It("keeps the brain answerable after rename", func() {
			Expect(service.RenameBrain(ctx, "acme", "globex")).To(Succeed())

			err := cache.WithEntry(ctx, "globex", func(e *brain.Entry) error {
				Expect(e.Ledger.PersonalityName).To(Equal("nova"))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
