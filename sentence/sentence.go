package sentence

// Dependency is a directed edge in the semantic graph of a sentence.
// The edge runs from the owning token to the token at ChildIndex.
type Dependency struct {
	Label      string `json:"label"`
	ChildIndex int    `json:"child"`

	// IsUncertain marks edges produced by expanding an "or"-type
	// conjunction. Matching through such an edge marks the resulting
	// match as uncertain.
	IsUncertain bool `json:"uncertain,omitempty"`
}

// ParentDependency is the inverse view of a Dependency, kept on the child
// token so reverse matching does not need a graph traversal.
type ParentDependency struct {
	Label       string `json:"label"`
	ParentIndex int    `json:"parent"`
}

// Subword is a morphologically decomposed fragment of a compound token,
// independently matchable. "Informationsextraktion" yields the subwords
// "information" and "extraktion".
type Subword struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Lemma        string `json:"lemma"`
	DerivedLemma string `json:"derived_lemma,omitempty"`

	// CharStartIndex is the offset of the subword within the token text.
	CharStartIndex int `json:"char_start"`

	// ContainingTokenIndex is the token on which this subword is
	// modelled. For meaning distributed over several words of a
	// conjunction it may differ from the token carrying the subword.
	ContainingTokenIndex int `json:"containing_token"`

	// IsHead is true for the semantically governing subword of the
	// compound. Only head subwords take part in relation matching with
	// material outside their own token.
	IsHead bool `json:"is_head,omitempty"`

	// DependentIndex and GovernorIndex are subword indexes within the
	// same token, or -1 when absent.
	DependentIndex int `json:"dependent_index"`
	GovernorIndex  int `json:"governor_index"`

	// DependencyLabel labels the edge to DependentIndex;
	// GoverningDependencyLabel labels the edge from GovernorIndex.
	DependencyLabel          string `json:"dependency_label,omitempty"`
	GoverningDependencyLabel string `json:"governing_dependency_label,omitempty"`

	Vector []float32 `json:"vector,omitempty"`
}

// MultiwordSpan is a multi-token unit, either entity-defined or
// ontology-defined, anchored on one of its member tokens.
type MultiwordSpan struct {
	Text         string `json:"text"`
	Lemma        string `json:"lemma"`
	DerivedLemma string `json:"derived_lemma,omitempty"`
	TokenIndexes []int  `json:"token_indexes"`
}

// Token represents a word of a parsed document together with the
// annotations the external linguistic pipeline produced for it.
type Token struct {
	Index      int    `json:"index"`
	SentenceID int    `json:"sent"`
	Text       string `json:"text"`
	Lemma      string `json:"lemma"`

	// DerivedLemma is the morphologically reduced form shared by a word
	// family ("assess" for "assessment"). Empty when no reduction exists
	// or the pipeline did not analyze derivational morphology.
	DerivedLemma string `json:"derived_lemma,omitempty"`

	Pos string `json:"pos"`

	// A string containing detailed POS data
	Tag string `json:"tag"`

	Dep string `json:"dep"`

	// Head is the index of the syntactic governor, or the token's own
	// index at the sentence root.
	Head int `json:"head"`

	// the index of the start character of the token in the original doc
	Idx int `json:"idx"`

	EntityType string `json:"ent_type,omitempty"`

	Children []Dependency       `json:"children,omitempty"`
	Parents  []ParentDependency `json:"parents,omitempty"`

	Subwords       []Subword       `json:"subwords,omitempty"`
	MultiwordSpans []MultiwordSpan `json:"multiword_spans,omitempty"`

	Vector []float32 `json:"vector,omitempty"`

	// IsMatchable is false for function words and punctuation.
	IsMatchable bool `json:"matchable"`

	IsNegated   bool `json:"negated,omitempty"`
	IsUncertain bool `json:"uncertain,omitempty"`

	// CorefIndexes lists the indexes of all tokens coreferring with this
	// one, including the token's own index, in document order. Empty when
	// the token takes part in no coreference chain.
	CorefIndexes []int `json:"coref_indexes,omitempty"`
}

// Span is a half-open token range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Doc is one parsed document: the ordered token list plus sentence
// boundaries. Docs are immutable once registered with a corpus.
type Doc struct {
	Tokens    []Token `json:"tokens"`
	Sentences []Span  `json:"sentences"`

	// DerivationalMorphology records whether the producing pipeline ran
	// derivational-morphology analysis. Documents must not be mixed
	// across modes within one corpus.
	DerivationalMorphology bool `json:"derivational_morphology"`
}

// Index addresses a matchable position: a whole token, or one of its
// subwords when Subword >= 0.
type Index struct {
	Token   int
	Subword int
}

// WholeWord returns the Index for token i without subword addressing.
func WholeWord(i int) Index {
	return Index{Token: i, Subword: -1}
}

// IsSubword reports whether the index addresses a subword.
func (i Index) IsSubword() bool {
	return i.Subword >= 0
}

// Less orders indexes by token position, whole words before subwords,
// then by subword position.
func (i Index) Less(other Index) bool {
	if i.Token != other.Token {
		return i.Token < other.Token
	}
	if i.IsSubword() != other.IsSubword() {
		return !i.IsSubword()
	}
	return i.Subword < other.Subword
}

// CorefChain returns the coreference chain of token i including i itself.
func (d *Doc) CorefChain(i int) []int {
	t := &d.Tokens[i]
	if len(t.CorefIndexes) == 0 {
		return []int{i}
	}
	return t.CorefIndexes
}

// SentenceSpanOf returns the sentence span containing token index i.
func (d *Doc) SentenceSpanOf(i int) Span {
	for _, s := range d.Sentences {
		if i >= s.Start && i < s.End {
			return s
		}
	}
	// Token outside any declared sentence: treat the whole doc as one.
	return Span{Start: 0, End: len(d.Tokens)}
}

// DerivedOrLemma returns the derived lemma if the pipeline produced one,
// otherwise the plain lemma.
func (t *Token) DerivedOrLemma() string {
	if t.DerivedLemma != "" {
		return t.DerivedLemma
	}
	return t.Lemma
}

// DerivedOrLemma is the subword analogue of Token.DerivedOrLemma.
func (s *Subword) DerivedOrLemma() string {
	if s.DerivedLemma != "" {
		return s.DerivedLemma
	}
	return s.Lemma
}

// DerivedOrLemma is the multiword analogue of Token.DerivedOrLemma.
func (m *MultiwordSpan) DerivedOrLemma() string {
	if m.DerivedLemma != "" {
		return m.DerivedLemma
	}
	return m.Lemma
}

// HeadSubwords returns the head subwords of the token.
func (t *Token) HeadSubwords() []Subword {
	var heads []Subword
	for _, s := range t.Subwords {
		if s.IsHead {
			heads = append(heads, s)
		}
	}
	return heads
}

// DependencyLabelTo returns the label of the dependency from t to the
// token at childIndex, or "" if no such dependency exists.
func (t *Token) DependencyLabelTo(childIndex int) string {
	for _, dep := range t.Children {
		if dep.ChildIndex == childIndex {
			return dep.Label
		}
	}
	return ""
}

// Text reconstructs the surface text of the token span [start, end) from
// the character offsets the pipeline recorded. Tokens sharing an offset,
// as happens with split clitics, are rendered once.
func (d *Doc) Text(start, end int) string {
	if end > len(d.Tokens) {
		end = len(d.Tokens)
	}
	if start >= end {
		return ""
	}
	out := make([]byte, 0, 16*(end-start))
	lastIdx := -1
	base := d.Tokens[start].Idx
	for i := start; i < end; i++ {
		t := &d.Tokens[i]
		if t.Idx == lastIdx {
			continue
		}
		pos := t.Idx - base
		for len(out) < pos {
			out = append(out, ' ')
		}
		out = append(out[:pos], t.Text...)
		lastIdx = t.Idx
	}
	return string(out)
}
