package phraselet

// Template describes one two-token relation shape (or the single-word
// shape) that topic matching extracts from a query document.
type Template struct {
	// Label prefixes the labels of all phraselets produced from this
	// template.
	Label string

	// ParentTags and ChildTags restrict which fine-grained tags may
	// occupy the two poles. For the single-word template only
	// ParentTags is consulted.
	ParentTags []string
	ChildTags  []string

	// DependencyLabels lists the document dependency labels that
	// trigger this template.
	DependencyLabels []string

	// AssignedLabel is the dependency label written into the compiled
	// phraselet, the canonical member of DependencyLabels.
	AssignedLabel string

	// ReverseOnly phraselets are only matched starting from the child
	// pole. Used for shapes whose parent is too frequent to index.
	ReverseOnly bool

	// Subwords marks templates that pair subwords of a single token
	// rather than two tokens.
	Subwords bool
}

// SingleWord reports whether the template has no child pole.
func (t Template) SingleWord() bool { return t.AssignedLabel == "" }

var (
	nounTags      = []string{"NN", "NNP", "NNPS", "NNS"}
	nounlikeTags  = []string{"NN", "NNP", "NNPS", "NNS", "CD", "ADD", "PRP"}
	verbTags      = []string{"VB", "VBD", "VBG", "VBN", "VBP", "VBZ"}
	adjectiveTags = []string{"JJ", "JJR", "JJS", "RB", "RBR", "RBS"}
	numberTags    = []string{"CD"}
	prepTags      = []string{"IN"}
)

// DefaultTemplates returns the template catalogue in priority order.
// Relation templates come first so a token pair is claimed by the most
// specific shape that fits it.
func DefaultTemplates() []Template {
	return []Template{
		{
			Label:            "predicate-actor",
			ParentTags:       verbTags,
			ChildTags:        nounlikeTags,
			DependencyLabels: []string{"nsubj", "csubj", "pobjb"},
			AssignedLabel:    "nsubj",
		},
		{
			Label:            "predicate-patient",
			ParentTags:       verbTags,
			ChildTags:        nounlikeTags,
			DependencyLabels: []string{"dobj", "pobjo", "dative"},
			AssignedLabel:    "dobj",
		},
		{
			Label:            "predicate-passivesubject",
			ParentTags:       verbTags,
			ChildTags:        nounlikeTags,
			DependencyLabels: []string{"nsubjpass", "csubjpass"},
			AssignedLabel:    "nsubjpass",
		},
		{
			Label:            "word-ofword",
			ParentTags:       nounTags,
			ChildTags:        nounlikeTags,
			DependencyLabels: []string{"pobjo", "poss"},
			AssignedLabel:    "pobjo",
		},
		{
			Label:            "governor-adjective",
			ParentTags:       append(append([]string{}, nounTags...), verbTags...),
			ChildTags:        adjectiveTags,
			DependencyLabels: []string{"amod", "acomp", "advmod"},
			AssignedLabel:    "amod",
		},
		{
			Label:            "noun-noun",
			ParentTags:       nounTags,
			ChildTags:        nounTags,
			DependencyLabels: []string{"compound", "nmod"},
			AssignedLabel:    "compound",
		},
		{
			Label:            "number-noun",
			ParentTags:       nounTags,
			ChildTags:        numberTags,
			DependencyLabels: []string{"nummod"},
			AssignedLabel:    "nummod",
		},
		{
			Label:            "prepgovernor-noun",
			ParentTags:       append(append([]string{}, nounTags...), verbTags...),
			ChildTags:        nounlikeTags,
			DependencyLabels: []string{"pobjp"},
			AssignedLabel:    "pobjp",
		},
		{
			Label:            "prep-noun",
			ParentTags:       prepTags,
			ChildTags:        nounlikeTags,
			DependencyLabels: []string{"pobj"},
			AssignedLabel:    "pobj",
			ReverseOnly:      true,
		},
		{
			Label:            "intcompound",
			ParentTags:       nounTags,
			ChildTags:        nounTags,
			DependencyLabels: []string{"intcompound"},
			AssignedLabel:    "intcompound",
			Subwords:         true,
		},
		{
			Label:      "word",
			ParentTags: nounTags,
		},
	}
}

// stopLemmas never yield single-word phraselets. Discourse connectives
// and light verbs carry no topical content.
var stopLemmas = map[string]bool{
	"then":      true,
	"therefore": true,
	"so":        true,
	"be":        true,
	"have":      true,
	"do":        true,
}

// reverseOnlyParentLemmas lists verb lemmas too frequent to serve as
// indexed relation parents. Relations governed by them are matched from
// the child pole only.
var reverseOnlyParentLemmas = map[string]bool{
	"be":   true,
	"have": true,
	"do":   true,
	"say":  true,
	"go":   true,
}
