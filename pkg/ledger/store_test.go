package ledger_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
)

var _ = Describe("Store", func() {
	var (
		dir   string
		store *ledger.Store
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		store, err = ledger.NewStore(dir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a ledger record", func() {
		l := ledger.New("nova")
		Expect(l.RecordNewFile("intro.txt", []int{1, 2, 3})).To(Succeed())
		Expect(store.Save("acme", l)).To(Succeed())

		loaded, err := store.Load("acme")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.PersonalityName).To(Equal("nova"))
		Expect(loaded.LastIndex).To(Equal(3))
		Expect(loaded.Files()).To(Equal([]string{"intro.txt"}))
	})

	It("returns ErrNotFound for a missing record", func() {
		_, err := store.Load("ghost")
		Expect(err).To(MatchError(ledger.ErrNotFound))
	})

	It("fails on a corrupt record", func() {
		path := filepath.Join(dir, "broken.json")
		Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

		_, err := store.Load("broken")
		Expect(err).To(HaveOccurred())
		Expect(err).NotTo(MatchError(ledger.ErrNotFound))
	})

	Describe("Delete", func() {
		It("removes the record", func() {
			Expect(store.Save("acme", ledger.New("nova"))).To(Succeed())
			Expect(store.Delete("acme")).To(Succeed())

			_, err := store.Load("acme")
			Expect(err).To(MatchError(ledger.ErrNotFound))
		})

		It("is a no-op when the record is absent", func() {
			Expect(store.Delete("ghost")).To(Succeed())
		})
	})

	Describe("Rename", func() {
		It("moves the record to the new name", func() {
			l := ledger.New("nova")
			Expect(l.RecordNewFile("intro.txt", []int{1, 2})).To(Succeed())
			Expect(store.Save("old", l)).To(Succeed())

			Expect(store.Rename("old", "new")).To(Succeed())

			_, err := store.Load("old")
			Expect(err).To(MatchError(ledger.ErrNotFound))

			moved, err := store.Load("new")
			Expect(err).NotTo(HaveOccurred())
			Expect(moved.PersonalityName).To(Equal("nova"))
			Expect(moved.LastIndex).To(Equal(2))
		})

		It("fails without touching the source when it does not exist", func() {
			err := store.Rename("ghost", "new")
			Expect(err).To(MatchError(ledger.ErrNotFound))

			_, err = store.Load("new")
			Expect(err).To(MatchError(ledger.ErrNotFound))
		})
	})
})
