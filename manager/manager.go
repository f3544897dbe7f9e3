// Package manager ties the matching machinery together behind one
// facade: a document corpus, registered search phrases, structural
// matching and topic matching.
package manager

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/revelaction/sematch/corpus"
	"github.com/revelaction/sematch/match"
	"github.com/revelaction/sematch/ontology"
	"github.com/revelaction/sematch/phrase"
	"github.com/revelaction/sematch/phraselet"
	sent "github.com/revelaction/sematch/sentence"
	"github.com/revelaction/sematch/storage"
	"github.com/revelaction/sematch/topic"
)

type Manager struct {
	ontology                   *ontology.Index
	overallSimilarityThreshold float64
	embeddingOnRoot            bool
	morphology                 string
	topicCfg                   topic.Config

	strategies []match.Strategy
	matcher    *match.Matcher
	corpus     *corpus.Corpus

	searchPhrases []*phrase.SearchPhrase

	log zerolog.Logger
}

func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		overallSimilarityThreshold: 1.0,
		morphology:                 storage.MorphologyDerivational,
		topicCfg:                   topic.DefaultConfig(),
		log:                        defaultLogger(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.embeddingOnRoot && m.overallSimilarityThreshold >= 1 {
		return nil, ErrEmbeddingWithoutThreshold
	}

	m.strategies = []match.Strategy{
		match.DirectStrategy{},
		match.DerivationStrategy{},
		match.EntityStrategy{},
	}
	if m.ontology != nil {
		m.strategies = append(m.strategies, match.OntologyStrategy{Ontology: m.ontology})
	}
	m.matcher = match.NewMatcher(m.strategies)
	m.corpus = corpus.New(m.strategies)

	m.topicCfg.OverallSimilarityThreshold = m.overallSimilarityThreshold
	m.topicCfg.EmbeddingBasedMatchingOnRootWords = m.embeddingOnRoot
	return m, nil
}

// RegisterDocument adds an annotated document under a unique label.
func (m *Manager) RegisterDocument(label string, doc *sent.Doc) error {
	if err := m.corpus.Register(label, doc); err != nil {
		return err
	}
	m.log.Debug().Str("label", label).Int("tokens", len(doc.Tokens)).Msg("document registered")
	return nil
}

// RegisterSerializedDocument deserializes and registers a document
// produced by SerializeDocument.
func (m *Manager) RegisterSerializedDocument(data []byte, label string) error {
	doc, err := storage.DeserializeDocument(data, m.morphology)
	if err != nil {
		return fmt.Errorf("register %q: %w", label, err)
	}
	return m.RegisterDocument(label, doc)
}

// SerializeDocument returns the registered document in its portable
// form, including the compatibility version.
func (m *Manager) SerializeDocument(label string) ([]byte, error) {
	doc, err := m.corpus.Doc(label)
	if err != nil {
		return nil, err
	}
	return storage.SerializeDocument(doc)
}

// RemoveDocument drops a document. Registering the same label again
// afterwards behaves like a first registration.
func (m *Manager) RemoveDocument(label string) error {
	return m.corpus.Remove(label)
}

func (m *Manager) RemoveAllDocuments() {
	for _, label := range m.corpus.Labels() {
		_ = m.corpus.Remove(label)
	}
}

func (m *Manager) DocumentLabels() []string { return m.corpus.Labels() }

func (m *Manager) Document(label string) (*sent.Doc, error) { return m.corpus.Doc(label) }

// RegisterSearchPhrase compiles the annotated search phrase document
// and adds it to the active set. Multiple phrases may share a label.
func (m *Manager) RegisterSearchPhrase(label string, doc *sent.Doc, text string) (*phrase.SearchPhrase, error) {
	sp, err := phrase.Compile(doc, label, text)
	if err != nil {
		return nil, fmt.Errorf("search phrase %q: %w", label, err)
	}
	for _, s := range m.strategies {
		s.AddRootWords(sp)
	}
	m.searchPhrases = append(m.searchPhrases, sp)
	m.log.Debug().Str("label", label).Str("text", text).Msg("search phrase registered")
	return sp, nil
}

func (m *Manager) RemoveAllSearchPhrases() { m.searchPhrases = nil }

func (m *Manager) RemoveAllSearchPhrasesWithLabel(label string) error {
	kept := m.searchPhrases[:0]
	found := false
	for _, sp := range m.searchPhrases {
		if sp.Label == label {
			found = true
			continue
		}
		kept = append(kept, sp)
	}
	m.searchPhrases = kept
	if !found {
		return fmt.Errorf("%w: %q", ErrSearchPhraseNotFound, label)
	}
	return nil
}

func (m *Manager) SearchPhraseLabels() []string {
	labels := make([]string, 0, len(m.searchPhrases))
	for _, sp := range m.searchPhrases {
		labels = append(labels, sp.Label)
	}
	return labels
}

func (m *Manager) matchOptions() match.Options {
	opts := match.Options{}
	if m.overallSimilarityThreshold < 1 {
		opts.CompareEmbeddingsOnNonRootWords = true
		opts.EmbeddingOverallThreshold = m.overallSimilarityThreshold
		opts.CompareEmbeddingsOnRootWords = m.embeddingOnRoot
	}
	return opts
}

func (m *Manager) matchingMatcher() *match.Matcher {
	if m.overallSimilarityThreshold >= 1 {
		return m.matcher
	}
	strategies := append(append([]match.Strategy{}, m.strategies...),
		match.EmbeddingStrategy{OverallThreshold: m.overallSimilarityThreshold})
	return match.NewMatcher(strategies)
}

// Match runs every registered search phrase against the whole corpus.
func (m *Manager) Match() ([]*match.Match, error) {
	return m.matchFiltered("")
}

// MatchAgainstDocument runs every registered search phrase against one
// document.
func (m *Manager) MatchAgainstDocument(label string) ([]*match.Match, error) {
	if !m.corpus.Contains(label) {
		return nil, fmt.Errorf("%w: %q", corpus.ErrDocumentNotFound, label)
	}
	return m.matchFiltered(label)
}

func (m *Manager) matchFiltered(label string) ([]*match.Match, error) {
	if len(m.searchPhrases) == 0 {
		return nil, ErrNoSearchPhrases
	}
	opts := m.matchOptions()
	opts.DocumentLabelFilter = label
	matcher := m.matchingMatcher()
	var out []*match.Match
	for _, sp := range m.searchPhrases {
		out = append(out, matcher.MatchCorpus(sp, m.corpus.Docs(), m.corpus.Index(), opts)...)
	}
	if label != "" {
		// The matcher's label filter is a prefix; this call wants the
		// one document.
		exact := out[:0]
		for _, mt := range out {
			if mt.DocumentLabel == label {
				exact = append(exact, mt)
			}
		}
		out = exact
	}
	match.SortMatches(out)
	return out, nil
}

// MatchReturningDictionaries runs Match and renders each match against
// its source document.
func (m *Manager) MatchReturningDictionaries() ([]match.Dictionary, error) {
	matches, err := m.Match()
	if err != nil {
		return nil, err
	}
	out := make([]match.Dictionary, 0, len(matches))
	for _, mt := range matches {
		doc, _ := m.corpus.Doc(mt.DocumentLabel)
		out = append(out, mt.ToDictionary(doc))
	}
	return out, nil
}

func (m *Manager) phraseletGenerator() *phraselet.Generator {
	gen := phraselet.NewGenerator()
	freq := m.corpus.Frequencies()
	gen.Frequencies = freq.Frequencies
	gen.MaxFrequency = freq.Maximum
	if m.ontology != nil && m.ontology.SymmetricMatching() {
		gen.Ontology = m.ontology
		gen.ReplaceHypernyms = true
	}
	return gen
}

// TopicMatch scores the corpus against the subject matter of the query
// document.
func (m *Manager) TopicMatch(queryDoc *sent.Doc) ([]*topic.TopicMatch, error) {
	tm, err := topic.New(m.topicCfg, m.corpus, m.strategies, m.phraseletGenerator(), m.log)
	if err != nil {
		return nil, err
	}
	return tm.Match(queryDoc)
}

// TopicMatchReturningDictionaries runs TopicMatch and renders the
// results in their serializable form.
func (m *Manager) TopicMatchReturningDictionaries(queryDoc *sent.Doc, queryText string) ([]topic.Dictionary, error) {
	results, err := m.TopicMatch(queryDoc)
	if err != nil {
		return nil, err
	}
	return topic.Dictionaries(queryText, results), nil
}

// CorpusFrequencyInformation exposes the per-word occurrence counts
// backing the phraselet frequency factors.
func (m *Manager) CorpusFrequencyInformation() corpus.FrequencyInfo {
	return m.corpus.Frequencies()
}
