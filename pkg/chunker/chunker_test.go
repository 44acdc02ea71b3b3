package chunker_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/chunker"
)

func TestChunker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chunker Suite")
}

var _ = Describe("Split", func() {
	It("returns nothing for empty text", func() {
		Expect(chunker.Split("", 100)).To(BeNil())
		Expect(chunker.Split("   \n\t  ", 100)).To(BeNil())
	})

	It("returns a single chunk for short text", func() {
		chunks := chunker.Split("hello brain world", 100)
		Expect(chunks).To(Equal([]string{"hello brain world"}))
	})

	It("groups words into fixed-size chunks with a shorter tail", func() {
		chunks := chunker.Split("a b c d e f g", 3)
		Expect(chunks).To(Equal([]string{"a b c", "d e f", "g"}))
	})

	It("produces exact chunks when the word count divides evenly", func() {
		chunks := chunker.Split("a b c d", 2)
		Expect(chunks).To(Equal([]string{"a b", "c d"}))
	})

	It("normalizes runs of whitespace to single spaces", func() {
		chunks := chunker.Split("one\t\ttwo\n\nthree    four", 2)
		Expect(chunks).To(Equal([]string{"one two", "three four"}))
	})

	It("is deterministic across runs", func() {
		text := strings.Repeat("lorem ipsum dolor sit amet ", 50)
		first := chunker.Split(text, 7)
		second := chunker.Split(text, 7)
		Expect(second).To(Equal(first))
	})

	It("preserves the full word sequence across chunks", func() {
		text := strings.Repeat("alpha beta gamma delta ", 40)
		chunks := chunker.Split(text, 13)

		var rejoined []string
		for _, c := range chunks {
			rejoined = append(rejoined, strings.Fields(c)...)
		}
		Expect(rejoined).To(Equal(strings.Fields(text)))
	})

	It("falls back to the default width for non-positive sizes", func() {
		words := make([]string, 250)
		for i := range words {
			words[i] = "w"
		}
		chunks := chunker.Split(strings.Join(words, " "), 0)
		Expect(chunks).To(HaveLen(3))
		Expect(strings.Fields(chunks[0])).To(HaveLen(chunker.DefaultWordsPerChunk))
	})
})

var _ = Describe("WordCount", func() {
	It("counts whitespace-separated words", func() {
		Expect(chunker.WordCount("the quick brown fox")).To(Equal(4))
		Expect(chunker.WordCount("")).To(Equal(0))
		Expect(chunker.WordCount("  padded   input ")).To(Equal(2))
	})
})
