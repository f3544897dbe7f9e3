package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revelaction/sematch/ontology"
	"github.com/revelaction/sematch/phrase"
	sent "github.com/revelaction/sematch/sentence"
)

func baseStrategies() []Strategy {
	return []Strategy{DirectStrategy{}, DerivationStrategy{}, EntityStrategy{}}
}

// buildDoc wires head/child links from a (child, label, parent) triple
// list over the given tokens.
func buildDoc(tokens []sent.Token, deps [][3]interface{}) *sent.Doc {
	doc := &sent.Doc{Tokens: tokens, Sentences: []sent.Span{{Start: 0, End: len(tokens)}}}
	for i := range doc.Tokens {
		doc.Tokens[i].Head = i
	}
	for _, d := range deps {
		child, label, parent := d[0].(int), d[1].(string), d[2].(int)
		doc.Tokens[parent].Children = append(doc.Tokens[parent].Children,
			sent.Dependency{Label: label, ChildIndex: child})
		doc.Tokens[child].Parents = append(doc.Tokens[child].Parents,
			sent.ParentDependency{Label: label, ParentIndex: parent})
		doc.Tokens[child].Head = parent
	}
	return doc
}

func tok(i int, text, lemma, pos, tag string, matchable bool) sent.Token {
	return sent.Token{Index: i, Text: text, Lemma: lemma, Pos: pos, Tag: tag, Idx: i * 8, IsMatchable: matchable}
}

// chasePhrase compiles "A dog chases a cat" into a search phrase with
// root word registration.
func chasePhrase(t *testing.T, strategies []Strategy) *phrase.SearchPhrase {
	doc := buildDoc([]sent.Token{
		tok(0, "dog", "dog", "NOUN", "NN", true),
		tok(1, "chases", "chase", "VERB", "VBZ", true),
		tok(2, "cat", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
	doc.Tokens[1].Dep = "ROOT"
	doc.Tokens[1].Head = 1
	sp, err := phrase.Compile(doc, "chasing", "A dog chases a cat")
	require.NoError(t, err)
	for _, s := range strategies {
		s.AddRootWords(sp)
	}
	return sp
}

// chasedDoc is "The dog chased the cat".
func chasedDoc() *sent.Doc {
	return buildDoc([]sent.Token{
		tok(0, "The", "the", "DET", "DT", false),
		tok(1, "dog", "dog", "NOUN", "NN", true),
		tok(2, "chased", "chase", "VERB", "VBD", true),
		tok(3, "the", "the", "DET", "DT", false),
		tok(4, "cat", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{{1, "nsubj", 2}, {4, "dobj", 2}})
}

func matchCorpus(t *testing.T, strategies []Strategy, sp *phrase.SearchPhrase, docs map[string]*sent.Doc, opts Options) []*Match {
	ix := NewIndex()
	for label, doc := range docs {
		ix.IndexDocument(strategies, doc, label)
	}
	return NewMatcher(strategies).MatchCorpus(sp, docs, ix, opts)
}

func TestMatchSimpleTransitive(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	docs := map[string]*sent.Doc{"d1": chasedDoc()}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "d1", m.DocumentLabel)
	assert.Equal(t, 2, m.IndexWithinDocument)
	assert.False(t, m.IsNegated)
	assert.False(t, m.IsUncertain)
	assert.Equal(t, 1.0, m.OverallSimilarity)
	require.Len(t, m.WordMatches, 3)
	for i := range m.WordMatches {
		assert.Equal(t, TypeDirect, m.WordMatches[i].Type)
	}
	root := m.RootWordMatch()
	require.NotNil(t, root)
	assert.Equal(t, "chase", root.DocumentWord)
}

func TestMatchNegationPropagates(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	doc := chasedDoc()
	doc.Tokens[2].IsNegated = true
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)
	assert.True(t, matches[0].IsNegated)
}

func TestMatchUncertainDependency(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	doc := chasedDoc()
	// "The dog was seen chasing the cat" kind of link.
	doc.Tokens[2].Children[1].IsUncertain = true
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)
	assert.True(t, matches[0].IsUncertain)
}

func TestMatchConjunctionFansOut(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	// "The dog and the hound chased the cat and the kitty", with the
	// conjunction already expanded into parallel dependencies and both
	// conjuncts sharing the lemma of the pattern word.
	doc := buildDoc([]sent.Token{
		tok(0, "dog", "dog", "NOUN", "NN", true),
		tok(1, "hound", "dog", "NOUN", "NN", true),
		tok(2, "chased", "chase", "VERB", "VBD", true),
		tok(3, "cat", "cat", "NOUN", "NN", true),
		tok(4, "kitty", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{
		{0, "nsubj", 2}, {1, "nsubj", 2}, {3, "dobj", 2}, {4, "dobj", 2},
	})
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	assert.Len(t, matches, 4)
}

func TestMatchPassiveEquivalence(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	// "The cat was chased by the dog": nsubjpass on the patient, the
	// agent arriving through pobjb.
	doc := buildDoc([]sent.Token{
		tok(0, "cat", "cat", "NOUN", "NN", true),
		tok(1, "chased", "chase", "VERB", "VBN", true),
		tok(2, "dog", "dog", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubjpass", 1}, {2, "pobjb", 1}})
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)
	require.Len(t, matches[0].WordMatches, 3)
}

func TestMatchThroughCoreference(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	// "The dog arrived. It chased the cat."
	doc := buildDoc([]sent.Token{
		tok(0, "dog", "dog", "NOUN", "NN", true),
		tok(1, "arrived", "arrive", "VERB", "VBD", true),
		tok(2, "It", "it", "PRON", "PRP", false),
		tok(3, "chased", "chase", "VERB", "VBD", true),
		tok(4, "cat", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "nsubj", 3}, {4, "dobj", 3}})
	doc.Sentences = []sent.Span{{Start: 0, End: 2}, {Start: 2, End: 5}}
	doc.Tokens[0].CorefIndexes = []int{0, 2}
	doc.Tokens[2].CorefIndexes = []int{0, 2}
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)

	m := matches[0]
	assert.True(t, m.InvolvesCoreference())
	var dogMatch *WordMatch
	for i := range m.WordMatches {
		if m.WordMatches[i].DocumentWord == "dog" {
			dogMatch = &m.WordMatches[i]
		}
	}
	require.NotNil(t, dogMatch)
	assert.Equal(t, 0, dogMatch.DocumentTokenIndex)
	assert.Equal(t, 2, dogMatch.StructurallyMatchedTokenIndex)
}

func TestMatchOntology(t *testing.T) {
	ont := ontology.New(false)
	ont.AddHyponym("animal", "cat")
	strategies := append(baseStrategies(), OntologyStrategy{Ontology: ont})

	// "A dog chases an animal" against "The dog chased the cat".
	spDoc := buildDoc([]sent.Token{
		tok(0, "dog", "dog", "NOUN", "NN", true),
		tok(1, "chases", "chase", "VERB", "VBZ", true),
		tok(2, "animal", "animal", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
	spDoc.Tokens[1].Dep = "ROOT"
	sp, err := phrase.Compile(spDoc, "animal-chasing", "A dog chases an animal")
	require.NoError(t, err)
	for _, s := range strategies {
		s.AddRootWords(sp)
	}
	docs := map[string]*sent.Doc{"d1": chasedDoc()}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)
	require.Len(t, matches[0].WordMatches, 3)

	var ontMatch *WordMatch
	for i := range matches[0].WordMatches {
		if matches[0].WordMatches[i].Type == TypeOntology {
			ontMatch = &matches[0].WordMatches[i]
		}
	}
	require.NotNil(t, ontMatch)
	assert.Equal(t, "cat", ontMatch.DocumentWord)
	assert.Equal(t, 1, ontMatch.Depth)
}

func TestMatchEntityPlaceholder(t *testing.T) {
	strategies := baseStrategies()
	// "ENTITYPERSON chases a cat"
	spDoc := buildDoc([]sent.Token{
		{Index: 0, Text: "ENTITYPERSON", Lemma: "ENTITYPERSON", Pos: "NOUN", Tag: "NN", IsMatchable: true},
		tok(1, "chases", "chase", "VERB", "VBZ", true),
		tok(2, "cat", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
	spDoc.Tokens[1].Dep = "ROOT"
	sp, err := phrase.Compile(spDoc, "person-chasing", "ENTITYPERSON chases a cat")
	require.NoError(t, err)
	for _, s := range strategies {
		s.AddRootWords(sp)
	}

	doc := buildDoc([]sent.Token{
		tok(0, "Mary", "mary", "PROPN", "NNP", true),
		tok(1, "chased", "chase", "VERB", "VBD", true),
		tok(2, "cat", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
	doc.Tokens[0].EntityType = "PERSON"
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)

	var entityMatch *WordMatch
	for i := range matches[0].WordMatches {
		if matches[0].WordMatches[i].Type == TypeEntity {
			entityMatch = &matches[0].WordMatches[i]
		}
	}
	require.NotNil(t, entityMatch)
	assert.Equal(t, "mary", entityMatch.DocumentWord)
}

func TestMatchDerivation(t *testing.T) {
	strategies := baseStrategies()
	// Phrase "assessment" against document "assess".
	spDoc := &sent.Doc{
		Tokens: []sent.Token{
			{Index: 0, Text: "assessment", Lemma: "assessment", DerivedLemma: "assess", Pos: "NOUN", Tag: "NN", Dep: "ROOT", IsMatchable: true},
		},
		Sentences: []sent.Span{{Start: 0, End: 1}},
	}
	sp, err := phrase.Compile(spDoc, "assessing", "An assessment")
	require.NoError(t, err)
	for _, s := range strategies {
		s.AddRootWords(sp)
	}

	doc := &sent.Doc{
		Tokens: []sent.Token{
			{Index: 0, Text: "assessed", Lemma: "assess", Pos: "VERB", Tag: "VBD", Dep: "ROOT", IsMatchable: true},
		},
		Sentences: []sent.Span{{Start: 0, End: 1}},
	}
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)
	assert.Equal(t, TypeDerivation, matches[0].WordMatches[0].Type)
}

func TestMatchNoFalsePositive(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	// "The cat chased the dog": roles are swapped, so the phrase must
	// not match.
	doc := buildDoc([]sent.Token{
		tok(0, "cat", "cat", "NOUN", "NN", true),
		tok(1, "chased", "chase", "VERB", "VBD", true),
		tok(2, "dog", "dog", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	assert.Empty(t, matches)
}

func TestMatchDocumentLabelFilterIsPrefix(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	docs := map[string]*sent.Doc{
		"news/1": chasedDoc(),
		"news/2": chasedDoc(),
		"blog/1": chasedDoc(),
	}

	matches := matchCorpus(t, strategies, sp, docs, Options{DocumentLabelFilter: "news/"})
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.True(t, strings.HasPrefix(m.DocumentLabel, "news/"))
	}
}

func TestMatchCertainRouteClearsUncertain(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	// The patient is reachable through two parallel dobj edges, an
	// uncertain one listed first and a certain one after it.
	doc := buildDoc([]sent.Token{
		tok(0, "dog", "dog", "NOUN", "NN", true),
		tok(1, "chased", "chase", "VERB", "VBD", true),
		tok(2, "cat", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}, {2, "dobj", 1}})
	doc.Tokens[1].Children[1].IsUncertain = true
	docs := map[string]*sent.Doc{"d1": doc}

	matches := matchCorpus(t, strategies, sp, docs, Options{})
	require.Len(t, matches, 1)
	assert.False(t, matches[0].IsUncertain)
	for i := range matches[0].WordMatches {
		assert.False(t, matches[0].WordMatches[i].IsUncertain)
	}
}

func TestMatchDeterministicOrder(t *testing.T) {
	strategies := baseStrategies()
	sp := chasePhrase(t, strategies)
	docs := map[string]*sent.Doc{
		"b": chasedDoc(),
		"a": chasedDoc(),
	}

	for i := 0; i < 3; i++ {
		matches := matchCorpus(t, strategies, sp, docs, Options{})
		require.Len(t, matches, 2)
		assert.Equal(t, "a", matches[0].DocumentLabel)
		assert.Equal(t, "b", matches[1].DocumentLabel)
	}
}

func TestMatchEmbeddingSimilarity(t *testing.T) {
	strategies := append(baseStrategies(), EmbeddingStrategy{OverallThreshold: 0.8})
	spDoc := buildDoc([]sent.Token{
		tok(0, "dog", "dog", "NOUN", "NN", true),
		tok(1, "chases", "chase", "VERB", "VBZ", true),
		tok(2, "cat", "cat", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
	spDoc.Tokens[1].Dep = "ROOT"
	spDoc.Tokens[2].Vector = []float32{1, 0}
	sp, err := phrase.Compile(spDoc, "chasing", "A dog chases a cat")
	require.NoError(t, err)
	for _, s := range strategies {
		s.AddRootWords(sp)
	}

	// "The dog chased the kitten", kitten close to cat in vector space.
	doc := buildDoc([]sent.Token{
		tok(0, "dog", "dog", "NOUN", "NN", true),
		tok(1, "chased", "chase", "VERB", "VBD", true),
		tok(2, "kitten", "kitten", "NOUN", "NN", true),
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
	doc.Tokens[2].Vector = []float32{0.95, 0.3}
	docs := map[string]*sent.Doc{"d1": doc}

	opts := Options{CompareEmbeddingsOnNonRootWords: true, EmbeddingOverallThreshold: 0.8}
	matches := matchCorpus(t, strategies, sp, docs, opts)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Greater(t, m.OverallSimilarity, 0.8)
	assert.Less(t, m.OverallSimilarity, 1.0)

	var emb *WordMatch
	for i := range m.WordMatches {
		if m.WordMatches[i].Type == TypeEmbedding {
			emb = &m.WordMatches[i]
		}
	}
	require.NotNil(t, emb)
	assert.Equal(t, "kitten", emb.DocumentWord)
}
