package retrieval_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/blob/local"
	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/classify"
	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
	"github.com/sudo-OMsharma/personabrain/pkg/logger"
	"github.com/sudo-OMsharma/personabrain/pkg/retrieval"
	testutils "github.com/sudo-OMsharma/personabrain/pkg/utils/test"
)

func TestRetrieval(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Retrieval Suite")
}

var _ = Describe("Orchestrator", func() {
	var (
		orchestrator *retrieval.Orchestrator
		cache        *brain.Cache
		generator    *testutils.MockGenerator
		events       *testutils.RecordingPublisher
		store        *local.Store
		factory      *testutils.MockFactory
		ledgers      *ledger.Store
		ctx          context.Context
	)

	seedBrain := func(name, personality string, files map[string]map[int]string) {
		led := ledger.New(personality)
		dir := GinkgoT().TempDir()
		idx, err := factory.Create(ctx, dir)
		Expect(err).NotTo(HaveOccurred())

		for filename, chunks := range files {
			ids := make([]int, 0, len(chunks))
			for id, text := range chunks {
				Expect(idx.Upsert(ctx, id, text)).To(Succeed())
				ids = append(ids, id)
			}
			Expect(led.RecordNewFile(filename, ids)).To(Succeed())
		}

		Expect(ledgers.Save(name, led)).To(Succeed())
		Expect(idx.Save(ctx, dir)).To(Succeed())
		Expect(store.UploadPrefix(ctx, cache.IndexPrefixFor(name), dir)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()

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

		generator = testutils.NewMockGenerator()
		events = testutils.NewRecordingPublisher()
		classifier := classify.New(generator, logger.Nop())
		orchestrator = retrieval.New(cache, generator, classifier, events, logger.Nop())

		seedBrain("acme", "nova", map[string]map[int]string{
			"intro.txt": {1: "alpha", 2: "beta", 3: "gamma"},
			"faq.txt":   {4: "delta", 5: "epsilon"},
		})
	})

	Describe("Ask", func() {
		It("rejects an empty brain name", func() {
			_, err := orchestrator.Ask(ctx, retrieval.AskRequest{Question: "hello"})
			Expect(err).To(MatchError(retrieval.ErrInvalidArgument))
		})

		It("rejects an empty question", func() {
			_, err := orchestrator.Ask(ctx, retrieval.AskRequest{BrainName: "acme"})
			Expect(err).To(MatchError(retrieval.ErrInvalidArgument))
		})

		It("reports an unknown brain", func() {
			_, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "ghost",
				Question:  "What is alpha?",
			})
			Expect(err).To(MatchError(brain.ErrBrainNotFound))
		})

		It("answers with file-attributed context", func() {
			answer, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "acme",
				Question:  "What is alpha?",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Answer).To(Equal("mock answer"))

			Expect(generator.ChatRequests).To(HaveLen(1))
			req := generator.ChatRequests[0]
			Expect(req.PersonalityName).To(Equal("nova"))
			Expect(req.Context).To(ContainSubstring("intro.txt --> alpha\n"))
			Expect(req.Context).To(ContainSubstring("faq.txt --> delta\n"))
		})

		It("drops hits whose id resolves to no file", func() {
			err := cache.WithEntry(ctx, "acme", func(e *brain.Entry) error {
				return e.Index.Upsert(ctx, 99, "orphan")
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "acme",
				Question:  "What is alpha?",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(generator.ChatRequests).To(HaveLen(1))
			req := generator.ChatRequests[0]
			Expect(req.Context).To(ContainSubstring("intro.txt --> alpha\n"))
			Expect(req.Context).NotTo(ContainSubstring("orphan"))
		})

		It("appends the persona to self-referential questions", func() {
			_, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "acme",
				Question:  "Who are you?",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(generator.ChatRequests).To(HaveLen(1))
			Expect(generator.ChatRequests[0].Question).To(Equal("Who are you?I am nova"))
		})

		It("prefixes other questions with the previous-turn summary", func() {
			generator.Summary = "They discussed alpha. "

			_, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName:        "acme",
				Question:         "Tell me more.",
				PreviousQuestion: "What is alpha?",
				PreviousAnswer:   "Alpha is first.",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(generator.ChatRequests[0].Question).To(Equal("They discussed alpha. Tell me more."))
		})

		It("defaults the word budget to 30", func() {
			_, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "acme",
				Question:  "What is alpha?",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(generator.ChatRequests[0].WordLimit).To(Equal(30))
		})

		It("floors tiny word budgets at 15", func() {
			_, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "acme",
				Question:  "What is alpha?",
				WordLimit: 5,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(generator.ChatRequests[0].WordLimit).To(Equal(15))
		})

		It("annotates the answer and publishes an event", func() {
			generator.Label = "joy"

			answer, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "acme",
				Question:  "What is alpha?",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Emotion).To(Equal("joy"))
			Expect(answer.Language).To(Equal("en"))
			Expect(answer.VoiceSettings.Style).To(BeNumerically("==", 0.9))

			Expect(events.EventTypes()).To(ConsistOf(eventstream.EventTypeAnswerGenerated))
		})

		It("falls back to neutral when emotion classification misbehaves", func() {
			generator.Label = "not-a-label"

			answer, err := orchestrator.Ask(ctx, retrieval.AskRequest{
				BrainName: "acme",
				Question:  "What is alpha?",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Emotion).To(Equal(classify.DefaultEmotion))
		})
	})
})
