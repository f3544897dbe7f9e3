package manager

import "errors"

var (
	// ErrNoSearchPhrases is returned by Match when no search phrase is
	// registered.
	ErrNoSearchPhrases = errors.New("manager: no search phrases registered")

	// ErrSearchPhraseNotFound is returned when removing by a label that
	// is not registered.
	ErrSearchPhraseNotFound = errors.New("manager: search phrase not found")

	// ErrThresholdOutOfRange is returned for a similarity threshold
	// outside [0, 1].
	ErrThresholdOutOfRange = errors.New("manager: overall similarity threshold outside [0, 1]")

	// ErrEmbeddingWithoutThreshold is returned when embedding-based
	// matching on root words is requested with matching by embedding
	// disabled.
	ErrEmbeddingWithoutThreshold = errors.New("manager: embedding matching on root words needs a threshold below 1")
)
