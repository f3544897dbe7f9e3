package manager

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revelaction/sematch/corpus"
	"github.com/revelaction/sematch/phrase"
	sent "github.com/revelaction/sematch/sentence"
	"github.com/revelaction/sematch/storage"
)

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := New(append(opts, WithLogger(zerolog.Nop()))...)
	require.NoError(t, err)
	return m
}

func buildDoc(specs [][4]string, deps [][3]interface{}) *sent.Doc {
	doc := &sent.Doc{DerivationalMorphology: true}
	idx := 0
	for i, s := range specs {
		doc.Tokens = append(doc.Tokens, sent.Token{
			Index: i, Text: s[0], Lemma: s[1], Pos: s[2], Tag: s[3],
			Idx: idx, Head: i, IsMatchable: s[2] != "DET",
		})
		idx += len(s[0]) + 1
	}
	doc.Sentences = []sent.Span{{Start: 0, End: len(doc.Tokens)}}
	for _, d := range deps {
		child, label, parent := d[0].(int), d[1].(string), d[2].(int)
		doc.Tokens[parent].Children = append(doc.Tokens[parent].Children,
			sent.Dependency{Label: label, ChildIndex: child})
		doc.Tokens[child].Parents = append(doc.Tokens[child].Parents,
			sent.ParentDependency{Label: label, ParentIndex: parent})
		doc.Tokens[child].Head = parent
		doc.Tokens[child].Dep = label
	}
	return doc
}

func chaseDoc() *sent.Doc {
	return buildDoc([][4]string{
		{"The", "the", "DET", "DT"},
		{"dog", "dog", "NOUN", "NN"},
		{"chased", "chase", "VERB", "VBD"},
		{"the", "the", "DET", "DT"},
		{"cat", "cat", "NOUN", "NN"},
	}, [][3]interface{}{{1, "nsubj", 2}, {4, "dobj", 2}})
}

func chasePhrase() *sent.Doc {
	return buildDoc([][4]string{
		{"dog", "dog", "NOUN", "NN"},
		{"chases", "chase", "VERB", "VBZ"},
		{"cat", "cat", "NOUN", "NN"},
	}, [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}})
}

func TestNewOptionValidation(t *testing.T) {
	t.Run("threshold out of range", func(t *testing.T) {
		_, err := New(WithOverallSimilarityThreshold(1.5))
		assert.ErrorIs(t, err, ErrThresholdOutOfRange)
	})

	t.Run("root embeddings without a threshold", func(t *testing.T) {
		_, err := New(WithEmbeddingBasedMatchingOnRootWords())
		assert.ErrorIs(t, err, ErrEmbeddingWithoutThreshold)
	})

	t.Run("root embeddings with a threshold", func(t *testing.T) {
		_, err := New(
			WithOverallSimilarityThreshold(0.8),
			WithEmbeddingBasedMatchingOnRootWords(),
			WithLogger(zerolog.Nop()),
		)
		assert.NoError(t, err)
	})
}

func TestDocumentLifecycle(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.RegisterDocument("pets", chaseDoc()))

	t.Run("duplicate label", func(t *testing.T) {
		err := m.RegisterDocument("pets", chaseDoc())
		assert.ErrorIs(t, err, corpus.ErrDuplicateDocument)
	})

	t.Run("labels", func(t *testing.T) {
		assert.Equal(t, []string{"pets"}, m.DocumentLabels())
	})

	t.Run("serialization round trip", func(t *testing.T) {
		data, err := m.SerializeDocument("pets")
		require.NoError(t, err)

		require.NoError(t, m.RegisterSerializedDocument(data, "pets2"))
		doc, err := m.Document("pets2")
		require.NoError(t, err)
		assert.Equal(t, "chase", doc.Tokens[2].Lemma)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, m.RemoveDocument("pets2"))
		assert.ErrorIs(t, m.RemoveDocument("pets2"), corpus.ErrDocumentNotFound)
		require.NoError(t, m.RegisterDocument("pets2", chaseDoc()))
	})

	t.Run("remove all", func(t *testing.T) {
		m.RemoveAllDocuments()
		assert.Empty(t, m.DocumentLabels())
	})
}

func TestMorphologyModeOption(t *testing.T) {
	doc := chaseDoc()
	doc.DerivationalMorphology = false
	data, err := storage.SerializeDocument(doc)
	require.NoError(t, err)

	t.Run("default rejects none mode", func(t *testing.T) {
		m := newManager(t)
		assert.ErrorIs(t, m.RegisterSerializedDocument(data, "pets"), storage.ErrIncompatibleSerialization)
	})

	t.Run("without derivational morphology accepts it", func(t *testing.T) {
		m := newManager(t, WithoutDerivationalMorphology())
		require.NoError(t, m.RegisterSerializedDocument(data, "pets"))
		got, err := m.Document("pets")
		require.NoError(t, err)
		assert.False(t, got.DerivationalMorphology)
	})
}

func TestSearchPhraseLifecycle(t *testing.T) {
	m := newManager(t)

	_, err := m.RegisterSearchPhrase("chasing", chasePhrase(), "A dog chases a cat")
	require.NoError(t, err)
	_, err = m.RegisterSearchPhrase("chasing", chasePhrase(), "A dog chases a cat")
	require.NoError(t, err, "multiple phrases may share a label")
	assert.Equal(t, []string{"chasing", "chasing"}, m.SearchPhraseLabels())

	t.Run("rejects negated phrase", func(t *testing.T) {
		doc := chasePhrase()
		doc.Tokens[1].IsNegated = true
		_, err := m.RegisterSearchPhrase("neg", doc, "A dog never chases a cat")
		assert.ErrorIs(t, err, phrase.ErrContainsNegation)
	})

	t.Run("remove by label", func(t *testing.T) {
		require.NoError(t, m.RemoveAllSearchPhrasesWithLabel("chasing"))
		assert.Empty(t, m.SearchPhraseLabels())
		assert.ErrorIs(t, m.RemoveAllSearchPhrasesWithLabel("chasing"), ErrSearchPhraseNotFound)
	})
}

func TestMatch(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.RegisterDocument("pets", chaseDoc()))

	t.Run("no search phrases", func(t *testing.T) {
		_, err := m.Match()
		assert.ErrorIs(t, err, ErrNoSearchPhrases)
	})

	_, err := m.RegisterSearchPhrase("chasing", chasePhrase(), "A dog chases a cat")
	require.NoError(t, err)

	t.Run("whole corpus", func(t *testing.T) {
		matches, err := m.Match()
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "pets", matches[0].DocumentLabel)
		assert.Equal(t, "chasing", matches[0].SearchPhraseLabel)
		assert.Len(t, matches[0].WordMatches, 3)
	})

	t.Run("single document", func(t *testing.T) {
		matches, err := m.MatchAgainstDocument("pets")
		require.NoError(t, err)
		assert.Len(t, matches, 1)

		_, err = m.MatchAgainstDocument("missing")
		assert.ErrorIs(t, err, corpus.ErrDocumentNotFound)
	})

	t.Run("single document with prefix sibling", func(t *testing.T) {
		require.NoError(t, m.RegisterDocument("petstore", chaseDoc()))
		defer func() { require.NoError(t, m.RemoveDocument("petstore")) }()

		matches, err := m.MatchAgainstDocument("pets")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "pets", matches[0].DocumentLabel)
	})

	t.Run("dictionaries", func(t *testing.T) {
		dicts, err := m.MatchReturningDictionaries()
		require.NoError(t, err)
		require.Len(t, dicts, 1)
		assert.Equal(t, "The dog chased the cat", dicts[0].Sentences)
	})
}

func TestTopicMatchThroughManager(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.RegisterDocument("pets", chaseDoc()))

	results, err := m.TopicMatch(chasePhrase())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "pets", results[0].DocumentLabel)

	t.Run("dictionaries", func(t *testing.T) {
		dicts, err := m.TopicMatchReturningDictionaries(chasePhrase(), "A dog chases a cat")
		require.NoError(t, err)
		require.NotEmpty(t, dicts)
		assert.Equal(t, "pets", dicts[0].DocumentLabel)
	})
}

func TestCorpusFrequencyInformation(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.RegisterDocument("pets", chaseDoc()))

	freq := m.CorpusFrequencyInformation()
	assert.GreaterOrEqual(t, freq.Frequencies["dog"], 1)
	assert.GreaterOrEqual(t, freq.Maximum, 1)
}
