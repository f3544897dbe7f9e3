package pool

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revelaction/sematch/corpus"
	sent "github.com/revelaction/sematch/sentence"
)

func newCoordinator(t *testing.T, n int) *Coordinator {
	t.Helper()
	c, err := New(n, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func chaseDoc() *sent.Doc {
	doc := &sent.Doc{}
	specs := [][4]string{
		{"The", "the", "DET", "DT"},
		{"dog", "dog", "NOUN", "NN"},
		{"chased", "chase", "VERB", "VBD"},
		{"the", "the", "DET", "DT"},
		{"cat", "cat", "NOUN", "NN"},
	}
	idx := 0
	for i, s := range specs {
		doc.Tokens = append(doc.Tokens, sent.Token{
			Index: i, Text: s[0], Lemma: s[1], Pos: s[2], Tag: s[3],
			Idx: idx, Head: i, IsMatchable: s[2] != "DET",
		})
		idx += len(s[0]) + 1
	}
	doc.Sentences = []sent.Span{{Start: 0, End: len(doc.Tokens)}}
	for _, d := range [][3]interface{}{{1, "nsubj", 2}, {4, "dobj", 2}} {
		child, label, parent := d[0].(int), d[1].(string), d[2].(int)
		doc.Tokens[parent].Children = append(doc.Tokens[parent].Children,
			sent.Dependency{Label: label, ChildIndex: child})
		doc.Tokens[child].Parents = append(doc.Tokens[child].Parents,
			sent.ParentDependency{Label: label, ParentIndex: parent})
		doc.Tokens[child].Head = parent
	}
	return doc
}

func chaseQuery() *sent.Doc {
	doc := &sent.Doc{}
	specs := [][4]string{
		{"dog", "dog", "NOUN", "NN"},
		{"chases", "chase", "VERB", "VBZ"},
		{"cat", "cat", "NOUN", "NN"},
	}
	idx := 0
	for i, s := range specs {
		doc.Tokens = append(doc.Tokens, sent.Token{
			Index: i, Text: s[0], Lemma: s[1], Pos: s[2], Tag: s[3],
			Idx: idx, Head: i, IsMatchable: true,
		})
		idx += len(s[0]) + 1
	}
	doc.Sentences = []sent.Span{{Start: 0, End: len(doc.Tokens)}}
	for _, d := range [][3]interface{}{{0, "nsubj", 1}, {2, "dobj", 1}} {
		child, label, parent := d[0].(int), d[1].(string), d[2].(int)
		doc.Tokens[parent].Children = append(doc.Tokens[parent].Children,
			sent.Dependency{Label: label, ChildIndex: child})
		doc.Tokens[child].Parents = append(doc.Tokens[child].Parents,
			sent.ParentDependency{Label: label, ParentIndex: parent})
		doc.Tokens[child].Head = parent
	}
	return doc
}

func TestRegisterFansOutToAllReplicas(t *testing.T) {
	c := newCoordinator(t, 3)
	require.NoError(t, c.RegisterDocument("pets", chaseDoc()))

	// every replica carries the document, so repeated label reads hit
	// different replicas round robin and all agree.
	for i := 0; i < 6; i++ {
		labels, err := c.DocumentLabels()
		require.NoError(t, err)
		assert.Equal(t, []string{"pets"}, labels)
	}
}

func TestTopicMatchAfterRegister(t *testing.T) {
	c := newCoordinator(t, 2)
	require.NoError(t, c.RegisterDocument("pets", chaseDoc()))

	for i := 0; i < 4; i++ {
		results, err := c.TopicMatch(chaseQuery())
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "pets", results[0].DocumentLabel)
	}
}

func TestDuplicateRegisterPropagates(t *testing.T) {
	c := newCoordinator(t, 2)
	require.NoError(t, c.RegisterDocument("pets", chaseDoc()))
	assert.ErrorIs(t, c.RegisterDocument("pets", chaseDoc()), corpus.ErrDuplicateDocument)
}

func TestRemoveFansOut(t *testing.T) {
	c := newCoordinator(t, 2)
	require.NoError(t, c.RegisterDocument("pets", chaseDoc()))
	require.NoError(t, c.RemoveDocument("pets"))

	labels, err := c.DocumentLabels()
	require.NoError(t, err)
	assert.Empty(t, labels)

	require.NoError(t, c.RegisterDocument("pets", chaseDoc()))
	require.NoError(t, c.RemoveAllDocuments())
	labels, err = c.DocumentLabels()
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestClosedCoordinator(t *testing.T) {
	c, err := New(1, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	c.Close()

	assert.ErrorIs(t, c.RegisterDocument("pets", chaseDoc()), ErrClosed)
	_, err = c.DocumentLabels()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.TopicMatch(chaseQuery())
	assert.ErrorIs(t, err, ErrClosed)

	c.Close()
}

func TestSerializedRoundTripThroughPool(t *testing.T) {
	c := newCoordinator(t, 2)
	require.NoError(t, c.RegisterDocument("pets", chaseDoc()))

	dicts, err := c.TopicMatchReturningDictionaries(chaseQuery(), "A dog chases a cat")
	require.NoError(t, err)
	require.NotEmpty(t, dicts)
	assert.Equal(t, "A dog chases a cat", dicts[0].TextToMatch)
}
