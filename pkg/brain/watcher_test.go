package brain_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/blob/local"
	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
	"github.com/sudo-OMsharma/personabrain/pkg/logger"
	testutils "github.com/sudo-OMsharma/personabrain/pkg/utils/test"
)

var _ = Describe("Watcher", func() {
	var (
		cache     *brain.Cache
		watcher   *brain.Watcher
		store     *local.Store
		factory   *testutils.MockFactory
		ledgers   *ledger.Store
		ledgerDir string
		ctx       context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		ledgerDir = GinkgoT().TempDir()

		store, err = local.NewStore(GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		factory = testutils.NewMockFactory()
		ledgers, err = ledger.NewStore(ledgerDir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		cache, err = brain.NewCache(brain.Config{
			Store:       store,
			Factory:     factory,
			Ledgers:     ledgers,
			CacheDir:    GinkgoT().TempDir(),
			IndexPrefix: "master-index",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		// Seed one loadable brain.
		led := ledger.New("nova")
		Expect(led.RecordNewFile("seed.txt", []int{1})).To(Succeed())
		Expect(ledgers.Save("acme", led)).To(Succeed())

		dir := GinkgoT().TempDir()
		idx, err := factory.Create(ctx, dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx.Upsert(ctx, 1, "alpha")).To(Succeed())
		Expect(idx.Save(ctx, dir)).To(Succeed())
		Expect(store.UploadPrefix(ctx, cache.IndexPrefixFor("acme"), dir)).To(Succeed())

		watcher, err = brain.NewWatcher(ledgerDir, cache, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(watcher.Close()).To(Succeed())
	})

	It("evicts a loaded brain when its ledger file changes", func() {
		Expect(cache.WithEntry(ctx, "acme", func(*brain.Entry) error { return nil })).To(Succeed())
		Expect(cache.Snapshot()).To(HaveLen(1))

		led := ledger.New("nova")
		Expect(led.RecordNewFile("other.txt", []int{1, 2})).To(Succeed())
		Expect(ledgers.Save("acme", led)).To(Succeed())

		Eventually(func() []brain.BrainStatus {
			return cache.Snapshot()
		}, 2*time.Second, 20*time.Millisecond).Should(BeEmpty())
	})

	It("evicts when the ledger file is atomically replaced", func() {
		Expect(cache.WithEntry(ctx, "acme", func(*brain.Entry) error { return nil })).To(Succeed())
		Expect(cache.Snapshot()).To(HaveLen(1))

		tmp := filepath.Join(ledgerDir, "acme.tmp")
		payload := []byte(`{"personality_name":"nova","last_index":2,"files":{"other.txt":[1,2]}}`)
		Expect(os.WriteFile(tmp, payload, 0o644)).To(Succeed())
		Expect(os.Rename(tmp, filepath.Join(ledgerDir, "acme.json"))).To(Succeed())

		Eventually(func() []brain.BrainStatus {
			return cache.Snapshot()
		}, 2*time.Second, 20*time.Millisecond).Should(BeEmpty())
	})

	It("ignores non-ledger files", func() {
		Expect(cache.WithEntry(ctx, "acme", func(*brain.Entry) error { return nil })).To(Succeed())

		Expect(os.WriteFile(filepath.Join(ledgerDir, "notes.txt"), []byte("scratch"), 0o644)).To(Succeed())

		Consistently(func() []brain.BrainStatus {
			return cache.Snapshot()
		}, 200*time.Millisecond, 50*time.Millisecond).Should(HaveLen(1))
	})
})
