package match

import (
	"sort"
	"strings"

	sent "github.com/revelaction/sematch/sentence"
)

// Position is one matchable word position within the registered corpus.
type Position struct {
	DocumentLabel string
	Index         sent.Index
}

// PositionSet is used to restrict targeted retry passes to positions
// discovered in earlier passes.
type PositionSet map[Position]bool

// Index is the corpus reverse word index: every representation under
// which a document position may be found maps to the positions carrying
// it. It is rebuilt whenever the document set changes and is read-only
// during matching.
type Index struct {
	entries map[string][]Position
}

// NewIndex returns an empty reverse index.
func NewIndex() *Index {
	return &Index{entries: map[string][]Position{}}
}

// Add registers position under the given word representation.
func (ix *Index) Add(word, documentLabel string, index sent.Index) {
	word = strings.ToLower(word)
	pos := Position{DocumentLabel: documentLabel, Index: index}
	for _, existing := range ix.entries[word] {
		if existing == pos {
			return
		}
	}
	ix.entries[word] = append(ix.entries[word], pos)
}

// Lookup returns the positions registered under word.
func (ix *Index) Lookup(word string) []Position {
	return ix.entries[strings.ToLower(word)]
}

// Words returns all indexed representations in sorted order. Sorted so
// that passes iterating the whole index stay deterministic.
func (ix *Index) Words() []string {
	words := make([]string, 0, len(ix.entries))
	for w := range ix.entries {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// RemoveDocument drops every position belonging to the given document.
func (ix *Index) RemoveDocument(label string) {
	for word, positions := range ix.entries {
		kept := positions[:0]
		for _, p := range positions {
			if p.DocumentLabel != label {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(ix.entries, word)
		} else {
			ix.entries[word] = kept
		}
	}
}

// IndexDocument registers all representations of all matchable positions
// of doc, applying each strategy in turn.
func (ix *Index) IndexDocument(strategies []Strategy, doc *sent.Doc, label string) {
	for _, s := range strategies {
		s.AddIndexEntries(ix, doc, label)
	}
}
