// Package chunker splits document text into fixed-size word chunks, the unit
// indexed for retrieval. Chunking is deterministic: the same text always
// produces the same chunks in the same order, which is what makes the
// per-file id ranges in the ledger reproducible.
package chunker

import "strings"

// DefaultWordsPerChunk is the chunk width used for all brains.
const DefaultWordsPerChunk = 100

// Split tokenizes text on whitespace and groups the words into chunks of
// wordsPerChunk words each, re-joined with single spaces. The last chunk may
// be shorter. Empty or whitespace-only text yields no chunks.
func Split(text string, wordsPerChunk int) []string {
	if wordsPerChunk <= 0 {
		wordsPerChunk = DefaultWordsPerChunk
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+wordsPerChunk-1)/wordsPerChunk)
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}

	return chunks
}

// WordCount reports the number of whitespace-separated words in text. The
// service uses word counts as its token-usage proxy when reporting against
// the key pool's budget.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
