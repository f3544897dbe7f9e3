package match

import (
	"fmt"
	"strings"

	sent "github.com/revelaction/sematch/sentence"
)

// Word match types. Exactly one applies to every WordMatch.
const (
	TypeDirect     = "direct"
	TypeDerivation = "derivation"
	TypeEntity     = "entity"
	TypeOntology   = "ontology"
	TypeEmbedding  = "embedding"
)

// WordMatch is one aligned pair of a search-phrase token and a document
// token or subword.
type WordMatch struct {
	// SearchPhraseIndex is the pattern token index that was aligned.
	SearchPhraseIndex int
	SearchPhraseWord  string

	// DocumentTokenIndex is the document token that matched. First and
	// Last differ from it only for multiword matches.
	DocumentTokenIndex int
	FirstTokenIndex    int
	LastTokenIndex     int

	// SubwordIndex is the matched subword within the token, or -1 for
	// whole-word matches.
	SubwordIndex int

	DocumentWord string

	Type string

	// Similarity is 1.0 except for embedding matches.
	Similarity float64

	// Depth is the signed ontology distance for ontology matches.
	Depth int

	IsNegated   bool
	IsUncertain bool

	// StructurallyMatchedTokenIndex is the document token that satisfied
	// the dependency structure; it differs from DocumentTokenIndex when
	// coreference resolution redirected the alignment.
	StructurallyMatchedTokenIndex int

	// ExtractedWord is the most specific term for the document word
	// within its coreference chain.
	ExtractedWord string

	Explanation string
}

// DocumentIndex returns the matched document position.
func (wm *WordMatch) DocumentIndex() sent.Index {
	return sent.Index{Token: wm.DocumentTokenIndex, Subword: wm.SubwordIndex}
}

// InvolvesCoreference reports whether the alignment was reached through a
// coreference chain.
func (wm *WordMatch) InvolvesCoreference() bool {
	return wm.DocumentTokenIndex != wm.StructurallyMatchedTokenIndex
}

func explain(matchType, searchWord string, similarity float64, depth int) string {
	display := strings.ToUpper(searchWord)
	switch matchType {
	case TypeDirect:
		return fmt.Sprintf("Matches %s directly.", display)
	case TypeDerivation:
		return fmt.Sprintf("Has a common stem with %s.", display)
	case TypeEntity:
		return fmt.Sprintf("Has an entity label matching %s.", display)
	case TypeEmbedding:
		return fmt.Sprintf("Has a word embedding that is %d%% similar to %s.",
			int(similarity*100), display)
	case TypeOntology:
		return fmt.Sprintf("Is %s of %s in the ontology.", depthName(depth), display)
	}
	return ""
}

func depthName(depth int) string {
	switch {
	case depth <= -4:
		return "an ancestor"
	case depth >= 4:
		return "a descendant"
	}
	switch depth {
	case -3:
		return "a great-grandparent"
	case -2:
		return "a grandparent"
	case -1:
		return "a parent"
	case 0:
		return "a synonym"
	case 1:
		return "a child"
	case 2:
		return "a grandchild"
	}
	return "a great-grandchild"
}

// Match is the result of matching one search phrase against one document
// at one anchor position. Its WordMatches list is never empty.
type Match struct {
	SearchPhraseLabel string
	SearchPhraseText  string
	DocumentLabel     string

	WordMatches []WordMatch

	IsNegated   bool
	IsUncertain bool

	// OverallSimilarity is 1.0 for exact matches and below 1.0 when
	// embedding alignment was involved anywhere in the match.
	OverallSimilarity float64

	// IndexWithinDocument is the document token matching the search
	// phrase root.
	IndexWithinDocument int

	FromSingleWordPhraselet          bool
	FromReverseOnlyPhraselet         bool
	FromPhraseletWithoutMatchingTags bool

	// RootPatternIndex is the pattern token index of the search phrase
	// root, used to tell the parent alignment from child alignments.
	RootPatternIndex int
}

// InvolvesCoreference reports whether any word match was reached through
// a coreference chain.
func (m *Match) InvolvesCoreference() bool {
	for i := range m.WordMatches {
		if m.WordMatches[i].InvolvesCoreference() {
			return true
		}
	}
	return false
}

// RootWordMatch returns the word match aligned with the search phrase
// root token.
func (m *Match) RootWordMatch() *WordMatch {
	for i := range m.WordMatches {
		if m.WordMatches[i].SearchPhraseIndex == m.RootPatternIndex {
			return &m.WordMatches[i]
		}
	}
	return &m.WordMatches[0]
}

// ChildWordMatch returns the first word match not aligned with the root,
// or nil for single-word matches.
func (m *Match) ChildWordMatch() *WordMatch {
	for i := range m.WordMatches {
		if m.WordMatches[i].SearchPhraseIndex != m.RootPatternIndex {
			return &m.WordMatches[i]
		}
	}
	return nil
}

// SubwordIndex returns the subword index of the root alignment, or -1.
func (m *Match) SubwordIndex() int {
	return m.RootWordMatch().SubwordIndex
}
