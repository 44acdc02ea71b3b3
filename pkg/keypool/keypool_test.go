package keypool_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/keypool"
	"github.com/sudo-OMsharma/personabrain/pkg/logger"
)

func TestKeypool(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Keypool Suite")
}

var _ = Describe("Pool", func() {
	var (
		pool *keypool.Pool
		now  time.Time
	)

	clock := func() time.Time { return now }

	BeforeEach(func() {
		var err error
		now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		pool, err = keypool.New(
			[]string{"key-a", "key-b", "key-c"},
			logger.Nop(),
			keypool.WithCeiling(100),
			keypool.WithWindow(time.Minute),
			keypool.WithClock(clock),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an empty key list", func() {
		_, err := keypool.New(nil, logger.Nop())
		Expect(err).To(MatchError(keypool.ErrNoKeys))
	})

	It("keeps serving the same key while it has budget", func() {
		for i := 0; i < 5; i++ {
			key, err := pool.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("key-a"))
			pool.Record(key, 10)
		}
	})

	It("rotates to the next key once the ceiling is reached", func() {
		pool.Record("key-a", 100)

		key, err := pool.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("key-b"))
	})

	It("advances cyclically past multiple saturated keys", func() {
		pool.Record("key-a", 100)
		pool.Record("key-b", 100)

		key, err := pool.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("key-c"))
	})

	It("reports saturation when every key is spent", func() {
		for _, k := range []string{"key-a", "key-b", "key-c"} {
			pool.Record(k, 100)
		}

		_, err := pool.Next()
		Expect(err).To(MatchError(keypool.ErrAllSaturated))
	})

	It("resets usage once the window expires", func() {
		for _, k := range []string{"key-a", "key-b", "key-c"} {
			pool.Record(k, 100)
		}
		_, err := pool.Next()
		Expect(err).To(MatchError(keypool.ErrAllSaturated))

		now = now.Add(time.Minute)

		key, err := pool.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("key-a"))
	})

	It("treats an upstream rate limit as a full-budget spike", func() {
		key, err := pool.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("key-a"))

		pool.Saturate(key)

		key, err = pool.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("key-b"))
	})

	It("ignores usage reports for unknown keys", func() {
		pool.Record("not-a-key", 1000)

		key, err := pool.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("key-a"))
	})
})
