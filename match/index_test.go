package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sent "github.com/revelaction/sematch/sentence"
)

func TestIndexAddLookup(t *testing.T) {
	ix := NewIndex()
	ix.Add("Dog", "d1", sent.Index{Token: 1, Subword: -1})
	ix.Add("dog", "d1", sent.Index{Token: 1, Subword: -1})
	ix.Add("dog", "d2", sent.Index{Token: 4, Subword: -1})

	t.Run("lookup is case insensitive and deduplicated", func(t *testing.T) {
		positions := ix.Lookup("DOG")
		require.Len(t, positions, 2)
		assert.Equal(t, "d1", positions[0].DocumentLabel)
		assert.Equal(t, "d2", positions[1].DocumentLabel)
	})

	t.Run("unknown word", func(t *testing.T) {
		assert.Empty(t, ix.Lookup("unicorn"))
	})
}

func TestIndexWordsSorted(t *testing.T) {
	ix := NewIndex()
	for _, w := range []string{"zebra", "ant", "mole"} {
		ix.Add(w, "d1", sent.Index{Token: 0, Subword: -1})
	}
	assert.Equal(t, []string{"ant", "mole", "zebra"}, ix.Words())
}

func TestIndexRemoveDocument(t *testing.T) {
	ix := NewIndex()
	ix.Add("dog", "d1", sent.Index{Token: 1, Subword: -1})
	ix.Add("dog", "d2", sent.Index{Token: 4, Subword: -1})
	ix.Add("cat", "d1", sent.Index{Token: 2, Subword: -1})

	ix.RemoveDocument("d1")

	require.Len(t, ix.Lookup("dog"), 1)
	assert.Equal(t, "d2", ix.Lookup("dog")[0].DocumentLabel)
	assert.Empty(t, ix.Lookup("cat"))
	assert.Equal(t, []string{"dog"}, ix.Words())
}

func TestIndexDocument(t *testing.T) {
	doc := &sent.Doc{
		Tokens: []sent.Token{
			{Index: 0, Text: "dog", Lemma: "dog", Pos: "NOUN", Tag: "NN", IsMatchable: true},
			{Index: 1, Text: "barked", Lemma: "bark", Pos: "VERB", Tag: "VBD", Idx: 4, Head: 1, IsMatchable: true},
		},
		Sentences: []sent.Span{{Start: 0, End: 2}},
	}
	doc.Tokens[0].Head = 1

	ix := NewIndex()
	ix.IndexDocument([]Strategy{DirectStrategy{}, DerivationStrategy{}}, doc, "d1")

	require.NotEmpty(t, ix.Lookup("dog"))
	require.NotEmpty(t, ix.Lookup("bark"))
	assert.Equal(t, 0, ix.Lookup("dog")[0].Index.Token)
}
