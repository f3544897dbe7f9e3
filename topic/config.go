package topic

import "errors"

// ErrInvalidConfiguration is returned when the scoring parameters are
// inconsistent.
var ErrInvalidConfiguration = errors.New("topic: invalid configuration")

// Config holds the scoring and span parameters of a topic matching run.
type Config struct {
	// MaximumActivationDistance is the token distance over which an
	// activation decays linearly back to zero.
	MaximumActivationDistance int

	// Scores awarded per match kind before weighting.
	RelationScore            float64
	ReverseOnlyRelationScore float64
	SingleWordScore          float64
	SingleWordAnyTagScore    float64

	// OverlappingRelationMultiplier boosts relation matches that share
	// a document word with another relation match.
	OverlappingRelationMultiplier float64

	// EmbeddingPenalty scales matches that rely on an embedding word
	// match; OntologyPenalty is raised to the ontology depth plus one.
	EmbeddingPenalty float64
	OntologyPenalty  float64

	// RelationMatchingFrequencyThreshold and the two ceilings bound the
	// targeted retry passes. EmbeddingRetryCeiling must not exceed
	// RelationRetryCeiling.
	RelationRetryCeiling  int
	EmbeddingRetryCeiling int

	// EmbeddingBasedMatchingOnRootWords additionally retries the parent
	// pole of relation phraselets through embeddings.
	EmbeddingBasedMatchingOnRootWords bool

	// OverallSimilarityThreshold gates embedding word matches. 1.0
	// disables embedding matching entirely.
	OverallSimilarityThreshold float64

	// SidewaysMatchExtent is how far a topic match span may stretch
	// sideways from its peak to swallow nearby matches.
	SidewaysMatchExtent int

	// DifferentMatchCutoff is the topic score a neighboring match must
	// reach to be pulled into a passage instead of starting its own.
	DifferentMatchCutoff float64

	// DocumentLabelFilter, when non-empty, restricts matching to
	// documents whose label starts with it.
	DocumentLabelFilter string

	// NumberOfResults limits the returned topic matches.
	NumberOfResults int

	// TiedResultQuotient is the score ratio at which two consecutive
	// results count as tied in rank.
	TiedResultQuotient float64

	// OnlyOnePerDocument keeps only the best topic match per document.
	OnlyOnePerDocument bool
}

func DefaultConfig() Config {
	return Config{
		MaximumActivationDistance:     75,
		RelationScore:                 30,
		ReverseOnlyRelationScore:      20,
		SingleWordScore:               5,
		SingleWordAnyTagScore:         2,
		OverlappingRelationMultiplier: 1.5,
		EmbeddingPenalty:              0.6,
		OntologyPenalty:               0.9,
		RelationRetryCeiling:          500,
		EmbeddingRetryCeiling:         100,
		OverallSimilarityThreshold:    1.0,
		SidewaysMatchExtent:           100,
		DifferentMatchCutoff:          15,
		NumberOfResults:               10,
		TiedResultQuotient:            0.9,
	}
}

func (c Config) Validate() error {
	if c.EmbeddingRetryCeiling > c.RelationRetryCeiling {
		return errors.Join(ErrInvalidConfiguration,
			errors.New("embedding retry ceiling exceeds relation retry ceiling"))
	}
	if c.OverallSimilarityThreshold < 0 || c.OverallSimilarityThreshold > 1 {
		return errors.Join(ErrInvalidConfiguration,
			errors.New("overall similarity threshold outside [0, 1]"))
	}
	if c.MaximumActivationDistance <= 0 {
		return errors.Join(ErrInvalidConfiguration,
			errors.New("maximum activation distance must be positive"))
	}
	if c.NumberOfResults <= 0 {
		return errors.Join(ErrInvalidConfiguration,
			errors.New("number of results must be positive"))
	}
	return nil
}
