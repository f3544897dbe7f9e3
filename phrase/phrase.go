// Package phrase compiles annotated pattern graphs into search phrases
// for the structural matcher.
package phrase

import (
	"strings"

	sent "github.com/revelaction/sematch/sentence"
)

// EntityPrefix starts placeholder tokens like ENTITYPERSON or ENTITYGPE.
// The bare placeholder "ENTITY" matches any entity whose label the
// pipeline capitalizes. ENTITYNOUN matches every noun-tagged token.
const EntityPrefix = "ENTITY"

// SearchPhrase is a small pattern graph (typically 1-6 tokens) matched
// against documents, either compiled from a user pattern or generated as
// a phraselet during topic indexing.
type SearchPhrase struct {
	Label string

	// Text is the original pattern text the phrase was compiled from.
	Text string

	Doc *sent.Doc

	// RootIndex anchors matching: document candidates are sought for this
	// token first.
	RootIndex int

	// MatchableIndexes are the pattern tokens that must all be aligned
	// for the phrase to match, in document order.
	MatchableIndexes []int

	// TopicMatchPhraselet is true for phrases generated by the phraselet
	// generator rather than compiled from a user pattern.
	TopicMatchPhraselet bool

	// CreatedWithoutMatchingTags loosens part-of-speech constraints for
	// phraselets built in match-all-words mode.
	CreatedWithoutMatchingTags bool

	// ReverseOnly phrases are skipped during initial forward matching and
	// only considered in targeted reverse passes. Immutable after
	// creation.
	ReverseOnly bool

	// TreatAsReverseOnly is set during topic matching when the parent
	// word matched too frequently to be trusted in forward direction.
	TreatAsReverseOnly bool

	// WordsMatchingRoot collects every word form that may match the root
	// token; it keys the corpus reverse index lookups.
	WordsMatchingRoot []string
}

// Root returns the root token.
func (sp *SearchPhrase) Root() *sent.Token {
	return &sp.Doc.Tokens[sp.RootIndex]
}

// HasSingleMatchableWord reports whether the phrase matches on the root
// alignment alone.
func (sp *SearchPhrase) HasSingleMatchableWord() bool {
	return len(sp.MatchableIndexes) == 1
}

// IsMatchableIndex reports whether pattern token i takes part in
// alignment.
func (sp *SearchPhrase) IsMatchableIndex(i int) bool {
	for _, m := range sp.MatchableIndexes {
		if m == i {
			return true
		}
	}
	return false
}

// VectorTokenCount returns the number of matchable non-placeholder tokens
// carrying embedding vectors, used to normalize overall similarity.
func (sp *SearchPhrase) VectorTokenCount() int {
	n := 0
	for _, i := range sp.MatchableIndexes {
		t := &sp.Doc.Tokens[i]
		if EntityPlaceholder(t) == "" && t.Vector != nil {
			n++
		}
	}
	return n
}

// AddRootWord registers a word form under which the root may be found in
// the corpus reverse index.
func (sp *SearchPhrase) AddRootWord(word string) {
	word = strings.ToLower(word)
	for _, w := range sp.WordsMatchingRoot {
		if w == word {
			return
		}
	}
	sp.WordsMatchingRoot = append(sp.WordsMatchingRoot, word)
}

// EntityPlaceholder returns the placeholder string for a pattern token
// ("ENTITYPERSON", "ENTITY", ...) or "" for ordinary tokens.
func EntityPlaceholder(t *sent.Token) string {
	if strings.HasPrefix(t.Text, EntityPrefix) {
		return t.Text
	}
	return ""
}

// Compile validates a pattern graph and builds the search phrase. The doc
// must come from the same linguistic pipeline as the registered corpus.
func Compile(doc *sent.Doc, label, text string) (*SearchPhrase, error) {
	if len(doc.Sentences) > 1 {
		return nil, ErrMultipleClauses
	}
	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if t.IsNegated {
			return nil, ErrContainsNegation
		}
		if t.Dep == "conj" || t.Dep == "cc" {
			return nil, ErrContainsConjunction
		}
		if t.Pos == "PRON" && len(t.CorefIndexes) > 1 {
			return nil, ErrCoreferringPronoun
		}
	}

	root := -1
	for i := range doc.Tokens {
		if doc.Tokens[i].Head == i || doc.Tokens[i].Dep == "ROOT" {
			root = i
			break
		}
	}
	if root == -1 {
		root = 0
	}
	root = matchableRoot(doc, root)

	var matchable []int
	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if t.IsMatchable || EntityPlaceholder(t) != "" {
			matchable = append(matchable, i)
		}
	}
	if len(matchable) == 0 || root == -1 {
		return nil, ErrNoMatchableWords
	}

	sp := &SearchPhrase{
		Label:            label,
		Text:             text,
		Doc:              doc,
		RootIndex:        root,
		MatchableIndexes: matchable,
	}
	return sp, nil
}

// matchableRoot descends from the grammatical root to the first matchable
// token, preferring the root itself. Auxiliary roots ("did", "to") hand
// over to their content-word child.
func matchableRoot(doc *sent.Doc, root int) int {
	t := &doc.Tokens[root]
	if t.IsMatchable || strings.HasPrefix(t.Text, EntityPrefix) {
		return root
	}
	for _, dep := range t.Children {
		if sub := matchableRoot(doc, dep.ChildIndex); sub != -1 {
			return sub
		}
	}
	return -1
}
