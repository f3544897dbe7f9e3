package corpus

import "errors"

var (
	// ErrDuplicateDocument is returned when a document label is already
	// registered.
	ErrDuplicateDocument = errors.New("corpus: duplicate document label")

	// ErrDocumentNotFound is returned when a label is not registered.
	ErrDocumentNotFound = errors.New("corpus: document not found")
)
