package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sent "github.com/revelaction/sematch/sentence"
)

func openStore(t *testing.T, morphology string) *Badger {
	t.Helper()
	b, err := Open("", morphology, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func sampleDoc(lemma string) *sent.Doc {
	return &sent.Doc{
		Tokens: []sent.Token{
			{Index: 0, Text: lemma, Lemma: lemma, Pos: "NOUN", Tag: "NN", IsMatchable: true},
		},
		Sentences:              []sent.Span{{Start: 0, End: 1}},
		DerivationalMorphology: true,
	}
}

func plainDoc(lemma string) *sent.Doc {
	doc := sampleDoc(lemma)
	doc.DerivationalMorphology = false
	return doc
}

func TestPutGetDelete(t *testing.T) {
	b := openStore(t, MorphologyDerivational)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "animals", sampleDoc("dog")))

	doc, err := b.Get(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, "dog", doc.Tokens[0].Lemma)

	require.NoError(t, b.Delete(ctx, "animals"))
	_, err = b.Get(ctx, "animals")
	assert.Error(t, err)
}

func TestPutOverwrites(t *testing.T) {
	b := openStore(t, MorphologyDerivational)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "animals", sampleDoc("dog")))
	require.NoError(t, b.Put(ctx, "animals", sampleDoc("cat")))

	doc, err := b.Get(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, "cat", doc.Tokens[0].Lemma)
}

func TestPutUnchangedIsIdempotent(t *testing.T) {
	b := openStore(t, MorphologyDerivational)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "animals", sampleDoc("dog")))
	require.NoError(t, b.Put(ctx, "animals", sampleDoc("dog")))

	doc, err := b.Get(ctx, "animals")
	require.NoError(t, err)
	assert.Equal(t, "dog", doc.Tokens[0].Lemma)
}

func TestLabelsSorted(t *testing.T) {
	b := openStore(t, MorphologyDerivational)
	ctx := context.Background()

	for _, label := range []string{"zebra", "ant", "mole"} {
		require.NoError(t, b.Put(ctx, label, sampleDoc(label)))
	}
	labels, err := b.Labels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ant", "mole", "zebra"}, labels)
}

func TestContextCancellation(t *testing.T) {
	b := openStore(t, MorphologyDerivational)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Put(ctx, "animals", sampleDoc("dog")), context.Canceled)
	_, err := b.Get(ctx, "animals")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = b.Labels(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMorphologyModes(t *testing.T) {
	ctx := context.Background()

	t.Run("none mode round trips", func(t *testing.T) {
		b := openStore(t, MorphologyNone)
		require.NoError(t, b.Put(ctx, "animals", plainDoc("dog")))
		doc, err := b.Get(ctx, "animals")
		require.NoError(t, err)
		assert.Equal(t, "dog", doc.Tokens[0].Lemma)
		assert.False(t, doc.DerivationalMorphology)
	})

	t.Run("put rejects the other mode", func(t *testing.T) {
		b := openStore(t, MorphologyDerivational)
		err := b.Put(ctx, "animals", plainDoc("dog"))
		assert.ErrorIs(t, err, ErrIncompatibleSerialization)
	})
}

func TestSerializationVersionGuard(t *testing.T) {
	data, err := SerializeDocument(sampleDoc("dog"))
	require.NoError(t, err)

	doc, err := DeserializeDocument(data, MorphologyDerivational)
	require.NoError(t, err)
	assert.Equal(t, "dog", doc.Tokens[0].Lemma)

	t.Run("none mode round trips", func(t *testing.T) {
		data, err := SerializeDocument(plainDoc("dog"))
		require.NoError(t, err)
		doc, err := DeserializeDocument(data, MorphologyNone)
		require.NoError(t, err)
		assert.Equal(t, "dog", doc.Tokens[0].Lemma)
	})

	t.Run("wrong version", func(t *testing.T) {
		_, err := DeserializeDocument([]byte(`{"version": 99, "doc": {}}`), MorphologyDerivational)
		assert.ErrorIs(t, err, ErrIncompatibleSerialization)
	})

	t.Run("wrong morphology mode", func(t *testing.T) {
		_, err := DeserializeDocument([]byte(`{"version": 1, "morphology": "none", "doc": {}}`), MorphologyDerivational)
		assert.ErrorIs(t, err, ErrIncompatibleSerialization)
	})

	t.Run("empty envelope", func(t *testing.T) {
		_, err := DeserializeDocument([]byte(`{"version": 1, "morphology": "derivational"}`), MorphologyDerivational)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DeserializeDocument([]byte(`not json`), MorphologyDerivational)
		assert.Error(t, err)
	})
}
