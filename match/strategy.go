package match

import (
	"math"
	"strings"

	"github.com/revelaction/sematch/ontology"
	"github.com/revelaction/sematch/phrase"
	sent "github.com/revelaction/sematch/sentence"
)

// Strategy is one way a search-phrase token may be compatible with a
// document token, subword or multiword span. Strategies are tried in
// order; the first non-nil word match wins.
type Strategy interface {
	// MatchToken aligns pattern token spIndex with a whole document token.
	MatchToken(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch

	// MatchMultiword aligns pattern token spIndex with one of the
	// multiword spans anchored on the document token.
	MatchMultiword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch

	// MatchSubword aligns pattern token spIndex with a document subword.
	MatchSubword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex, subwordIndex int) *WordMatch

	// AddRootWords registers on sp every word form under which this
	// strategy can find the root token in the reverse index.
	AddRootWords(sp *phrase.SearchPhrase)

	// AddIndexEntries registers all representations this strategy reads
	// from document positions.
	AddIndexEntries(ix *Index, doc *sent.Doc, label string)
}

// directReprs returns the representations a token matches directly under:
// its lemma and, when present, its derived lemma.
func directReprs(lemma, derived string) []string {
	lemma = strings.ToLower(lemma)
	if derived = strings.ToLower(derived); derived != "" && derived != lemma {
		return []string{lemma, derived}
	}
	return []string{lemma}
}

func newWordMatch(spIndex int, spWord string, tokenIndex int, docWord, matchType string) *WordMatch {
	return &WordMatch{
		SearchPhraseIndex:             spIndex,
		SearchPhraseWord:              spWord,
		DocumentTokenIndex:            tokenIndex,
		FirstTokenIndex:               tokenIndex,
		LastTokenIndex:                tokenIndex,
		SubwordIndex:                  -1,
		DocumentWord:                  docWord,
		Type:                          matchType,
		Similarity:                    1.0,
		StructurallyMatchedTokenIndex: tokenIndex,
		ExtractedWord:                 docWord,
	}
}

// DirectStrategy matches on case-insensitive lemma equality. Multi-word
// pattern lemmas match only against entity- or ontology-defined multiword
// spans, keeping constituent ordering.
type DirectStrategy struct{}

func (DirectStrategy) MatchToken(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	if strings.Contains(spToken.Lemma, " ") {
		return nil
	}
	docToken := &doc.Tokens[tokenIndex]
	for _, spRepr := range directReprs(spToken.Lemma, "") {
		for _, docRepr := range directReprs(docToken.Lemma, "") {
			if spRepr == docRepr {
				wm := newWordMatch(spIndex, spRepr, tokenIndex, docRepr, TypeDirect)
				wm.Explanation = explain(TypeDirect, spToken.Lemma, 1, 0)
				return wm
			}
		}
	}
	return nil
}

func (DirectStrategy) MatchMultiword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	if !strings.Contains(spToken.Lemma, " ") {
		return nil
	}
	docToken := &doc.Tokens[tokenIndex]
	for _, mw := range docToken.MultiwordSpans {
		for _, spRepr := range directReprs(spToken.Lemma, spToken.DerivedLemma) {
			for _, docRepr := range directReprs(mw.Lemma, mw.DerivedLemma) {
				if spRepr != docRepr {
					continue
				}
				wm := newWordMatch(spIndex, spRepr, tokenIndex, docRepr, TypeDirect)
				wm.FirstTokenIndex = mw.TokenIndexes[0]
				wm.LastTokenIndex = mw.TokenIndexes[len(mw.TokenIndexes)-1]
				wm.Explanation = explain(TypeDirect, spToken.Lemma, 1, 0)
				return wm
			}
		}
	}
	return nil
}

func (DirectStrategy) MatchSubword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex, subwordIndex int) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	sub := &doc.Tokens[tokenIndex].Subwords[subwordIndex]
	if !strings.EqualFold(spToken.Lemma, sub.Lemma) {
		return nil
	}
	wm := newWordMatch(spIndex, strings.ToLower(spToken.Lemma), tokenIndex, strings.ToLower(sub.Lemma), TypeDirect)
	wm.SubwordIndex = subwordIndex
	wm.Explanation = explain(TypeDirect, spToken.Lemma, 1, 0)
	return wm
}

func (DirectStrategy) AddRootWords(sp *phrase.SearchPhrase) {
	sp.AddRootWord(sp.Root().Lemma)
}

func (DirectStrategy) AddIndexEntries(ix *Index, doc *sent.Doc, label string) {
	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if !t.IsMatchable {
			continue
		}
		ix.Add(t.Lemma, label, sent.WholeWord(i))
		for _, mw := range t.MultiwordSpans {
			ix.Add(mw.Lemma, label, sent.WholeWord(i))
		}
		for _, sub := range t.Subwords {
			ix.Add(sub.Lemma, label, sent.Index{Token: i, Subword: sub.Index})
		}
	}
}

// DerivationStrategy matches two words from the same word family through
// their shared derived lemma.
type DerivationStrategy struct{}

func (DerivationStrategy) match(sp *phrase.SearchPhrase, spIndex int, tokenIndex int, spLemma, spDerived, docLemma, docDerived string) *WordMatch {
	spDerived = strings.ToLower(spDerived)
	docDerived = strings.ToLower(docDerived)
	docLemma = strings.ToLower(docLemma)
	spLemma = strings.ToLower(spLemma)
	derived := spDerived
	if derived == "" {
		derived = spLemma
	}
	docSide := docDerived
	if docSide == "" {
		docSide = docLemma
	}
	// A derivation match requires the pair to differ somewhere on the
	// surface; plain equality is a direct match.
	if derived != docSide || spLemma == docLemma {
		return nil
	}
	wm := newWordMatch(spIndex, derived, tokenIndex, docLemma, TypeDerivation)
	wm.Explanation = explain(TypeDerivation, spLemma, 1, 0)
	return wm
}

func (s DerivationStrategy) MatchToken(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	docToken := &doc.Tokens[tokenIndex]
	return s.match(sp, spIndex, tokenIndex, spToken.Lemma, spToken.DerivedLemma, docToken.Lemma, docToken.DerivedLemma)
}

func (s DerivationStrategy) MatchMultiword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	docToken := &doc.Tokens[tokenIndex]
	for _, mw := range docToken.MultiwordSpans {
		if wm := s.match(sp, spIndex, tokenIndex, spToken.Lemma, spToken.DerivedLemma, mw.Lemma, mw.DerivedLemma); wm != nil {
			wm.FirstTokenIndex = mw.TokenIndexes[0]
			wm.LastTokenIndex = mw.TokenIndexes[len(mw.TokenIndexes)-1]
			return wm
		}
	}
	return nil
}

func (s DerivationStrategy) MatchSubword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex, subwordIndex int) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	sub := &doc.Tokens[tokenIndex].Subwords[subwordIndex]
	wm := s.match(sp, spIndex, tokenIndex, spToken.Lemma, spToken.DerivedLemma, sub.Lemma, sub.DerivedLemma)
	if wm != nil {
		wm.SubwordIndex = subwordIndex
	}
	return wm
}

func (DerivationStrategy) AddRootWords(sp *phrase.SearchPhrase) {
	root := sp.Root()
	if root.DerivedLemma != "" {
		sp.AddRootWord(root.DerivedLemma)
	}
}

func (DerivationStrategy) AddIndexEntries(ix *Index, doc *sent.Doc, label string) {
	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if !t.IsMatchable {
			continue
		}
		if t.DerivedLemma != "" {
			ix.Add(t.DerivedLemma, label, sent.WholeWord(i))
		}
		for _, sub := range t.Subwords {
			if sub.DerivedLemma != "" {
				ix.Add(sub.DerivedLemma, label, sent.Index{Token: i, Subword: sub.Index})
			}
		}
	}
}

// EntityStrategy matches placeholder pattern tokens (ENTITYPERSON, ...)
// against document entity labels. The bare ENTITY placeholder matches any
// label the pipeline writes in capitals.
type EntityStrategy struct{}

func placeholderMatches(placeholder string, t *sent.Token) bool {
	if t.EntityType == "" {
		return false
	}
	if placeholder == phrase.EntityPrefix {
		return strings.ToUpper(t.EntityType) == t.EntityType
	}
	return t.EntityType == placeholder[len(phrase.EntityPrefix):]
}

func (EntityStrategy) MatchToken(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	placeholder := phrase.EntityPlaceholder(&sp.Doc.Tokens[spIndex])
	if placeholder == "" {
		return nil
	}
	docToken := &doc.Tokens[tokenIndex]
	if placeholder == "ENTITYNOUN" {
		if docToken.Pos != "NOUN" && docToken.Pos != "PROPN" {
			return nil
		}
	} else if !placeholderMatches(placeholder, docToken) {
		return nil
	}
	wm := newWordMatch(spIndex, placeholder, tokenIndex, strings.ToLower(docToken.Text), TypeEntity)
	wm.Explanation = explain(TypeEntity, placeholder, 1, 0)
	return wm
}

func (EntityStrategy) MatchMultiword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	placeholder := phrase.EntityPlaceholder(&sp.Doc.Tokens[spIndex])
	if placeholder == "" || placeholder == "ENTITYNOUN" {
		return nil
	}
	docToken := &doc.Tokens[tokenIndex]
	for _, mw := range docToken.MultiwordSpans {
		all := true
		for _, i := range mw.TokenIndexes {
			if !placeholderMatches(placeholder, &doc.Tokens[i]) {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		wm := newWordMatch(spIndex, placeholder, tokenIndex, strings.ToLower(mw.Text), TypeEntity)
		wm.FirstTokenIndex = mw.TokenIndexes[0]
		wm.LastTokenIndex = mw.TokenIndexes[len(mw.TokenIndexes)-1]
		wm.Explanation = explain(TypeEntity, placeholder, 1, 0)
		return wm
	}
	return nil
}

func (EntityStrategy) MatchSubword(*phrase.SearchPhrase, int, *sent.Doc, int, int) *WordMatch {
	// Entity labels annotate whole tokens, never subwords.
	return nil
}

func (EntityStrategy) AddRootWords(sp *phrase.SearchPhrase) {
	if placeholder := phrase.EntityPlaceholder(sp.Root()); placeholder != "" {
		sp.AddRootWord(placeholder)
	}
}

func (EntityStrategy) AddIndexEntries(ix *Index, doc *sent.Doc, label string) {
	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if t.EntityType == "" {
			continue
		}
		// Only index the span head so each multiword entity is found
		// once per search phrase.
		if t.Head == i || doc.Tokens[t.Head].EntityType != t.EntityType {
			ix.Add(phrase.EntityPrefix+t.EntityType, label, sent.WholeWord(i))
		}
		for _, mw := range t.MultiwordSpans {
			ix.Add(mw.Text, label, sent.WholeWord(i))
		}
	}
}

// OntologyStrategy matches through hypernym/hyponym/synonym relations of
// a pre-built ontology index, recording the signed depth.
type OntologyStrategy struct {
	Ontology *ontology.Index
}

func (s OntologyStrategy) match(sp *phrase.SearchPhrase, spIndex, tokenIndex int, docReprs []string) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	for _, spRepr := range directReprs(spToken.Lemma, spToken.DerivedLemma) {
		entry := s.Ontology.Matches(spRepr, docReprs)
		if entry == nil {
			continue
		}
		wm := newWordMatch(spIndex, spRepr, tokenIndex, entry.Word, TypeOntology)
		wm.Depth = entry.Depth
		wm.Explanation = explain(TypeOntology, spToken.Lemma, 1, entry.Depth)
		return wm
	}
	return nil
}

func (s OntologyStrategy) MatchToken(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	docToken := &doc.Tokens[tokenIndex]
	return s.match(sp, spIndex, tokenIndex, directReprs(docToken.Lemma, docToken.DerivedLemma))
}

func (s OntologyStrategy) MatchMultiword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	docToken := &doc.Tokens[tokenIndex]
	for _, mw := range docToken.MultiwordSpans {
		if wm := s.match(sp, spIndex, tokenIndex, directReprs(mw.Lemma, mw.DerivedLemma)); wm != nil {
			wm.FirstTokenIndex = mw.TokenIndexes[0]
			wm.LastTokenIndex = mw.TokenIndexes[len(mw.TokenIndexes)-1]
			return wm
		}
	}
	return nil
}

func (s OntologyStrategy) MatchSubword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex, subwordIndex int) *WordMatch {
	sub := &doc.Tokens[tokenIndex].Subwords[subwordIndex]
	wm := s.match(sp, spIndex, tokenIndex, directReprs(sub.Lemma, sub.DerivedLemma))
	if wm != nil {
		wm.SubwordIndex = subwordIndex
	}
	return wm
}

func (s OntologyStrategy) AddRootWords(sp *phrase.SearchPhrase) {
	root := sp.Root()
	for _, repr := range directReprs(root.Lemma, root.DerivedLemma) {
		for _, word := range s.Ontology.WordsMatching(repr) {
			sp.AddRootWord(word)
		}
	}
}

func (OntologyStrategy) AddIndexEntries(*Index, *sent.Doc, string) {
	// Ontology-linked words are resolved through the root-word set of
	// each search phrase; the document side is already indexed by the
	// direct and derivation strategies.
}

// EmbeddingStrategy matches on cosine similarity of embedding vectors.
// The per-token threshold is the overall threshold raised to the number
// of vector-bearing pattern tokens, so the geometric mean of the word
// similarities of a full match still satisfies the overall threshold.
type EmbeddingStrategy struct {
	// OverallThreshold is the configured overall similarity threshold in
	// effect for this pass.
	OverallThreshold float64
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either vector is empty or zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s EmbeddingStrategy) match(sp *phrase.SearchPhrase, spIndex, tokenIndex int, docVector []float32, docWord string) *WordMatch {
	spToken := &sp.Doc.Tokens[spIndex]
	if spToken.Vector == nil || docVector == nil || phrase.EntityPlaceholder(spToken) != "" {
		return nil
	}
	vectorCount := sp.VectorTokenCount()
	if vectorCount == 0 {
		return nil
	}
	threshold := math.Pow(s.OverallThreshold, float64(vectorCount))
	similarity := CosineSimilarity(spToken.Vector, docVector)
	if similarity < threshold {
		return nil
	}
	wm := newWordMatch(spIndex, strings.ToLower(spToken.Lemma), tokenIndex, strings.ToLower(docWord), TypeEmbedding)
	wm.Similarity = similarity
	wm.Explanation = explain(TypeEmbedding, spToken.Lemma, similarity, 0)
	return wm
}

func (s EmbeddingStrategy) MatchToken(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex int) *WordMatch {
	docToken := &doc.Tokens[tokenIndex]
	return s.match(sp, spIndex, tokenIndex, docToken.Vector, docToken.Lemma)
}

func (s EmbeddingStrategy) MatchMultiword(*phrase.SearchPhrase, int, *sent.Doc, int) *WordMatch {
	// Multiword spans carry no vectors of their own.
	return nil
}

func (s EmbeddingStrategy) MatchSubword(sp *phrase.SearchPhrase, spIndex int, doc *sent.Doc, tokenIndex, subwordIndex int) *WordMatch {
	sub := &doc.Tokens[tokenIndex].Subwords[subwordIndex]
	wm := s.match(sp, spIndex, tokenIndex, sub.Vector, sub.Lemma)
	if wm != nil {
		wm.SubwordIndex = subwordIndex
	}
	return wm
}

func (EmbeddingStrategy) AddRootWords(*phrase.SearchPhrase) {
	// Embedding candidates for root tokens are discovered by scanning
	// the reverse index, not by word lookup.
}

func (EmbeddingStrategy) AddIndexEntries(*Index, *sent.Doc, string) {}
