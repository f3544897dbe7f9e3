package phrase

import "errors"

// Compilation rejects pattern graphs whose structure cannot be matched
// deterministically.
var (
	// ErrNoMatchableWords indicates the pattern contains only function
	// words or punctuation.
	ErrNoMatchableWords = errors.New("search phrase contains no matchable words")

	// ErrContainsNegation indicates the pattern itself is negated.
	// Negation belongs in documents, not in search phrases.
	ErrContainsNegation = errors.New("search phrase contains negation")

	// ErrContainsConjunction indicates the pattern contains coordination,
	// which would make the match semantics ambiguous.
	ErrContainsConjunction = errors.New("search phrase contains conjunction")

	// ErrCoreferringPronoun indicates the pattern contains a pronoun that
	// corefers with another pattern token.
	ErrCoreferringPronoun = errors.New("search phrase contains a coreferring pronoun")

	// ErrMultipleClauses indicates the pattern parses into more than one
	// sentence.
	ErrMultipleClauses = errors.New("search phrase contains multiple clauses")
)
