package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	sent "github.com/revelaction/sematch/sentence"
)

// SerializedDocumentVersion is bumped whenever the document layout
// changes incompatibly. Deserialization refuses other versions.
const SerializedDocumentVersion = 1

// Morphology modes name the lemma analysis the documents were produced
// with. A document from a pipeline without derivational morphology
// carries no derived lemmas and would silently miss derivation matches
// in a pipeline that has them, so deserialization rejects documents
// from a different mode.
const (
	MorphologyDerivational = "derivational"
	MorphologyNone         = "none"
)

// ErrIncompatibleSerialization is returned for documents serialized
// under a different version or morphology mode.
var ErrIncompatibleSerialization = errors.New("storage: incompatible serialized document")

type documentEnvelope struct {
	Version    int       `json:"version"`
	Morphology string    `json:"morphology"`
	Doc        *sent.Doc `json:"doc"`
}

func morphologyOf(doc *sent.Doc) string {
	if doc.DerivationalMorphology {
		return MorphologyDerivational
	}
	return MorphologyNone
}

// SerializeDocument renders a document in its portable form.
func SerializeDocument(doc *sent.Doc) ([]byte, error) {
	return json.Marshal(documentEnvelope{
		Version:    SerializedDocumentVersion,
		Morphology: morphologyOf(doc),
		Doc:        doc,
	})
}

// DeserializeDocument is the inverse of SerializeDocument. morphology
// is the consuming pipeline's mode; documents serialized under the
// other mode are rejected.
func DeserializeDocument(data []byte, morphology string) (*sent.Doc, error) {
	var env documentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("storage: decode document: %w", err)
	}
	if env.Version != SerializedDocumentVersion {
		return nil, fmt.Errorf("%w: version %d, want %d",
			ErrIncompatibleSerialization, env.Version, SerializedDocumentVersion)
	}
	if env.Morphology != morphology {
		return nil, fmt.Errorf("%w: morphology mode %q, want %q",
			ErrIncompatibleSerialization, env.Morphology, morphology)
	}
	if env.Doc == nil {
		return nil, fmt.Errorf("storage: decode document: empty envelope")
	}
	return env.Doc, nil
}
