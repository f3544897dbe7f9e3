package manager

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/revelaction/sematch/ontology"
	"github.com/revelaction/sematch/storage"
	"github.com/revelaction/sematch/topic"
)

// Option configures a Manager.
type Option func(*Manager) error

// WithOntology installs an ontology for ontology-based word matching
// and hypernym replacement during phraselet generation.
func WithOntology(ont *ontology.Index) Option {
	return func(m *Manager) error {
		m.ontology = ont
		return nil
	}
}

// WithOverallSimilarityThreshold enables embedding-based word matching
// below 1.0. The per-word threshold is derived from the number of
// vector-bearing words in each search phrase.
func WithOverallSimilarityThreshold(threshold float64) Option {
	return func(m *Manager) error {
		if threshold < 0 || threshold > 1 {
			return ErrThresholdOutOfRange
		}
		m.overallSimilarityThreshold = threshold
		return nil
	}
}

// WithEmbeddingBasedMatchingOnRootWords also allows the root word of a
// search phrase to match by embedding, which widens candidate discovery
// considerably.
func WithEmbeddingBasedMatchingOnRootWords() Option {
	return func(m *Manager) error {
		m.embeddingOnRoot = true
		return nil
	}
}

// WithoutDerivationalMorphology marks the pipeline as running without
// derivational lemma analysis. Serialized documents are then accepted
// and produced in the "none" morphology mode.
func WithoutDerivationalMorphology() Option {
	return func(m *Manager) error {
		m.morphology = storage.MorphologyNone
		return nil
	}
}

// WithTopicConfig overrides the topic matching parameters.
func WithTopicConfig(cfg topic.Config) Option {
	return func(m *Manager) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.topicCfg = cfg
		return nil
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) error {
		m.log = log
		return nil
	}
}

func defaultLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("component", "manager").Logger()
}
