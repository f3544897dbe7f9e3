package match

import (
	"math"
	"sort"
	"strings"

	"github.com/revelaction/sematch/phrase"
	sent "github.com/revelaction/sematch/sentence"
)

// labelImplications lists, per search-phrase dependency label, the
// document dependency labels it also covers. Derived from the usual
// active/passive and adjectival equivalences of the dependency scheme.
var labelImplications = map[string][]string{
	"nsubj":     {"csubj", "pobjb"},
	"csubj":     {"nsubj"},
	"dobj":      {"pobjo", "poss", "nsubjpass", "csubjpass"},
	"nsubjpass": {"dobj", "pobjo"},
	"pobjo":     {"dobj", "poss"},
	"poss":      {"pobjo"},
	"dative":    {"pobjt"},
	"pobjt":     {"dative"},
	"amod":      {"acomp", "advmod", "npadvmod", "compound"},
	"acomp":     {"amod", "advmod", "npadvmod"},
	"advmod":    {"amod", "acomp", "npadvmod"},
	"compound":  {"amod", "nmod", "poss"},
	"nmod":      {"compound"},
	"prep":      {"prepposs"},
	"pobjp":     {"pobj"},
	"pobj":      {"pobjp"},
}

// inverseLabelImplications covers alignments where the governing
// direction is swapped between pattern and document, as with compound
// heads inside noun phrases. Matches through this table are uncertain.
var inverseLabelImplications = map[string][]string{
	"intcompound": {"intcompound", "compound", "prep", "of"},
	"compound":    {"intcompound"},
}

func dependencyMatches(spLabel, docLabel string) bool {
	if spLabel == docLabel {
		return true
	}
	for _, l := range labelImplications[spLabel] {
		if l == docLabel {
			return true
		}
	}
	return false
}

func inverseDependencyMatches(spLabel, docLabel string) bool {
	for _, l := range inverseLabelImplications[spLabel] {
		if l == docLabel {
			return true
		}
	}
	return false
}

// Options controls a single matching run. The zero value matches every
// search phrase structurally with embedding strategies disabled.
type Options struct {
	// CompareEmbeddingsOnRootWords enables embedding-based discovery of
	// root candidates by scanning document tokens.
	CompareEmbeddingsOnRootWords bool

	// CompareEmbeddingsOnNonRootWords enables the embedding strategy on
	// child pattern tokens.
	CompareEmbeddingsOnNonRootWords bool

	// EmbeddingOverallThreshold is the overall similarity threshold in
	// effect when either embedding switch is on.
	EmbeddingOverallThreshold float64

	// ReverseMatchingPositions restricts reverse-only search phrases to
	// parents of these document positions. Nil disables reverse
	// matching entirely.
	ReverseMatchingPositions PositionSet

	// EmbeddingReverseMatchingPositions restricts the root anchors of an
	// embedding retry pass to these positions. Nil means scan every
	// token (root retries) or keep the index-derived anchors (non-root
	// retries).
	EmbeddingReverseMatchingPositions PositionSet

	// DocumentLabelFilter, when non-empty, limits matching to documents
	// whose label starts with it.
	DocumentLabelFilter string
}

// Matcher aligns compiled search phrases with annotated documents.
type Matcher struct {
	strategies []Strategy
}

func NewMatcher(strategies []Strategy) *Matcher {
	return &Matcher{strategies: strategies}
}

// Strategies returns the word-level strategies in matching order.
func (m *Matcher) Strategies() []Strategy { return m.strategies }

type visitKey struct {
	spIndex int
	pos     sent.Index
}

type visitState int

const (
	visitPending visitState = iota + 1
	visitMatched
)

// matchRun holds the per-root-candidate state of one recursive descent.
type matchRun struct {
	m           *Matcher
	sp          *phrase.SearchPhrase
	doc         *sent.Doc
	docLabel    string
	opts        Options
	visited     map[visitKey]visitState
	wordMatches map[int][]*WordMatch
}

// MatchDocument returns all matches of sp in a single document, trying
// every token as root candidate.
func (m *Matcher) MatchDocument(sp *phrase.SearchPhrase, doc *sent.Doc, label string, opts Options) []*Match {
	var matches []*Match
	for i := range doc.Tokens {
		matches = append(matches, m.matchAt(sp, doc, label, sent.WholeWord(i), opts)...)
		for _, sub := range doc.Tokens[i].Subwords {
			pos := sent.Index{Token: i, Subword: sub.Index}
			matches = append(matches, m.matchAt(sp, doc, label, pos, opts)...)
		}
	}
	SortMatches(matches)
	return matches
}

// MatchCorpus matches sp against every registered document, using the
// reverse index to find root candidates instead of scanning.
func (m *Matcher) MatchCorpus(sp *phrase.SearchPhrase, docs map[string]*sent.Doc, ix *Index, opts Options) []*Match {
	candidates := m.rootCandidates(sp, docs, ix, opts)
	var matches []*Match
	for _, c := range candidates {
		if opts.DocumentLabelFilter != "" && !strings.HasPrefix(c.DocumentLabel, opts.DocumentLabelFilter) {
			continue
		}
		doc, ok := docs[c.DocumentLabel]
		if !ok {
			continue
		}
		matches = append(matches, m.matchAt(sp, doc, c.DocumentLabel, c.Index, opts)...)
	}
	SortMatches(matches)
	return matches
}

// rootCandidates gathers the document positions worth trying as root
// alignments, deduplicated and ordered deterministically.
func (m *Matcher) rootCandidates(sp *phrase.SearchPhrase, docs map[string]*sent.Doc, ix *Index, opts Options) []Position {
	seen := map[Position]bool{}
	var out []Position
	add := func(p Position) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	rootPlaceholder := phrase.EntityPlaceholder(sp.Root())
	switch {
	case rootPlaceholder == "ENTITYNOUN":
		// ENTITYNOUN matches any noun, so there is nothing to look up.
		labels := make([]string, 0, len(docs))
		for label := range docs {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			doc := docs[label]
			for i := range doc.Tokens {
				if doc.Tokens[i].Pos == "NOUN" || doc.Tokens[i].Pos == "PROPN" {
					add(Position{DocumentLabel: label, Index: sent.WholeWord(i)})
				}
			}
		}
	default:
		for _, word := range sp.WordsMatchingRoot {
			for _, p := range ix.Lookup(word) {
				add(p)
			}
		}
	}

	if (sp.ReverseOnly || sp.TreatAsReverseOnly) && opts.ReverseMatchingPositions != nil {
		for p := range opts.ReverseMatchingPositions {
			doc, ok := docs[p.DocumentLabel]
			if !ok || p.Index.IsSubword() {
				continue
			}
			for _, dep := range doc.Tokens[p.Index.Token].Parents {
				add(Position{DocumentLabel: p.DocumentLabel, Index: sent.WholeWord(dep.ParentIndex)})
			}
		}
	}

	if opts.CompareEmbeddingsOnRootWords && sp.Root().Vector != nil {
		if opts.EmbeddingReverseMatchingPositions != nil {
			for p := range opts.EmbeddingReverseMatchingPositions {
				add(p)
			}
		} else {
			labels := make([]string, 0, len(docs))
			for label := range docs {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				doc := docs[label]
				for i := range doc.Tokens {
					if doc.Tokens[i].IsMatchable && doc.Tokens[i].Vector != nil {
						add(Position{DocumentLabel: label, Index: sent.WholeWord(i)})
					}
				}
			}
		}
	}
	if opts.CompareEmbeddingsOnNonRootWords && !opts.CompareEmbeddingsOnRootWords &&
		opts.EmbeddingReverseMatchingPositions != nil {
		filtered := out[:0]
		for _, p := range out {
			if opts.EmbeddingReverseMatchingPositions[p] {
				filtered = append(filtered, p)
			}
		}
		out = filtered
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentLabel != out[j].DocumentLabel {
			return out[i].DocumentLabel < out[j].DocumentLabel
		}
		return out[i].Index.Less(out[j].Index)
	})
	return out
}

// matchAt tries to anchor the search phrase root at one document
// position and build the full structural alignment from there.
func (m *Matcher) matchAt(sp *phrase.SearchPhrase, doc *sent.Doc, label string, pos sent.Index, opts Options) []*Match {
	run := &matchRun{
		m:           m,
		sp:          sp,
		doc:         doc,
		docLabel:    label,
		opts:        opts,
		visited:     map[visitKey]visitState{},
		wordMatches: map[int][]*WordMatch{},
	}
	if !run.matchRecursively(sp.RootIndex, pos, false, pos.Token) {
		return nil
	}
	for _, i := range sp.MatchableIndexes {
		if len(run.wordMatches[i]) == 0 {
			return nil
		}
	}
	return run.buildMatches()
}

// matchRecursively aligns one pattern token with one document position
// and then descends into the pattern token's matchable children. It
// returns true when the position carries a word match and every
// matchable pattern child could be aligned below it.
func (r *matchRun) matchRecursively(spIndex int, pos sent.Index, isUncertain bool, structurallyMatched int) bool {
	key := visitKey{spIndex: spIndex, pos: pos}
	if state := r.visited[key]; state != 0 {
		// A certain route to an already matched position clears the
		// uncertainty an earlier route left behind.
		if state == visitMatched && !isUncertain && !r.doc.Tokens[pos.Token].IsUncertain {
			for _, prev := range r.wordMatches[spIndex] {
				if prev.DocumentIndex() == pos {
					prev.IsUncertain = false
				}
			}
		}
		return state == visitMatched
	}
	r.visited[key] = visitPending

	wm := r.wordMatch(spIndex, pos)
	if wm == nil {
		return false
	}

	spToken := &r.sp.Doc.Tokens[spIndex]
	docToken := &r.doc.Tokens[pos.Token]
	wm.IsNegated = docToken.IsNegated
	wm.IsUncertain = isUncertain || docToken.IsUncertain
	wm.StructurallyMatchedTokenIndex = structurallyMatched

	for _, spDep := range spToken.Children {
		if !r.sp.IsMatchableIndex(spDep.ChildIndex) {
			continue
		}
		matched := false
		for _, cand := range r.childCandidates(spDep, pos) {
			if r.matchRecursively(spDep.ChildIndex, cand.pos, wm.IsUncertain || cand.uncertain, cand.structural) {
				matched = true
			}
		}
		if !matched {
			return false
		}
	}
	r.wordMatches[spIndex] = append(r.wordMatches[spIndex], wm)
	r.visited[key] = visitMatched
	return true
}

type childCandidate struct {
	pos       sent.Index
	uncertain bool

	// structural is the token the dependency actually points at, which
	// differs from pos when the alignment goes through a coreferent
	// mention.
	structural int
}

// childCandidates lists the document positions the pattern dependency
// may descend to from the given parent position: direct children with a
// compatible label, their coreferents, subword-internal edges and
// inverse-polarity parents.
func (r *matchRun) childCandidates(spDep sent.Dependency, parent sent.Index) []childCandidate {
	var out []childCandidate
	seen := map[sent.Index]int{}
	add := func(pos sent.Index, uncertain bool, structural int) {
		if i, ok := seen[pos]; ok {
			// A certain route to the same position supersedes an
			// uncertain one.
			if out[i].uncertain && !uncertain {
				out[i].uncertain = false
				out[i].structural = structural
			}
			return
		}
		seen[pos] = len(out)
		out = append(out, childCandidate{pos: pos, uncertain: uncertain, structural: structural})
	}

	if parent.IsSubword() {
		// Subword alignment descends only through the compound edges
		// recorded on the subword itself.
		sub := r.subwordAt(parent)
		if sub != nil && sub.DependentIndex >= 0 && dependencyMatches(spDep.Label, sub.DependencyLabel) {
			add(sent.Index{Token: parent.Token, Subword: sub.DependentIndex}, spDep.IsUncertain, parent.Token)
		}
		if sub != nil && sub.GovernorIndex >= 0 && inverseDependencyMatches(spDep.Label, sub.GoverningDependencyLabel) {
			add(sent.Index{Token: parent.Token, Subword: sub.GovernorIndex}, true, parent.Token)
		}
		return out
	}

	parentToken := &r.doc.Tokens[parent.Token]
	for _, docDep := range parentToken.Children {
		if !dependencyMatches(spDep.Label, docDep.Label) {
			continue
		}
		uncertain := docDep.IsUncertain && !spDep.IsUncertain
		for _, mention := range r.doc.CorefChain(docDep.ChildIndex) {
			child := &r.doc.Tokens[mention]
			if mention != docDep.ChildIndex && child.Pos == "PRON" {
				continue
			}
			add(sent.WholeWord(mention), uncertain, docDep.ChildIndex)
			for _, sub := range child.HeadSubwords() {
				add(sent.Index{Token: mention, Subword: sub.Index}, uncertain, docDep.ChildIndex)
			}
		}
	}

	// Inverse polarity: the document governs where the pattern is
	// governed. Such alignments are inherently uncertain.
	for _, docDep := range parentToken.Parents {
		if inverseDependencyMatches(spDep.Label, docDep.Label) {
			add(sent.WholeWord(docDep.ParentIndex), true, docDep.ParentIndex)
		}
	}
	return out
}

func (r *matchRun) subwordAt(pos sent.Index) *sent.Subword {
	for i := range r.doc.Tokens[pos.Token].Subwords {
		sub := &r.doc.Tokens[pos.Token].Subwords[i]
		if sub.Index == pos.Subword {
			return sub
		}
	}
	return nil
}

// wordMatch runs the strategies in order at one position and returns
// the first hit.
func (r *matchRun) wordMatch(spIndex int, pos sent.Index) *WordMatch {
	embeddingsAllowed := r.opts.CompareEmbeddingsOnNonRootWords ||
		(spIndex == r.sp.RootIndex && r.opts.CompareEmbeddingsOnRootWords)
	for _, s := range r.m.strategies {
		if _, ok := s.(EmbeddingStrategy); ok && !embeddingsAllowed {
			continue
		}
		var wm *WordMatch
		if pos.IsSubword() {
			wm = s.MatchSubword(r.sp, spIndex, r.doc, pos.Token, pos.Subword)
		} else {
			wm = s.MatchMultiword(r.sp, spIndex, r.doc, pos.Token)
			if wm == nil {
				wm = s.MatchToken(r.sp, spIndex, r.doc, pos.Token)
			}
		}
		if wm != nil {
			return wm
		}
	}
	return nil
}

// buildMatches assembles a match per combination of word matches across
// the matchable pattern tokens. Conjunction at either pole fans out
// into one match per alignment.
func (r *matchRun) buildMatches() []*Match {
	indexes := append([]int(nil), r.sp.MatchableIndexes...)
	sort.Ints(indexes)

	combos := [][]*WordMatch{nil}
	for _, spIndex := range indexes {
		var next [][]*WordMatch
		for _, combo := range combos {
			for _, wm := range r.wordMatches[spIndex] {
				grown := make([]*WordMatch, len(combo), len(combo)+1)
				copy(grown, combo)
				next = append(next, append(grown, wm))
			}
		}
		combos = next
	}

	var matches []*Match
	for _, combo := range combos {
		if !r.structurallyConsistent(indexes, combo) {
			continue
		}
		matches = append(matches, r.newMatch(combo))
	}
	return matches
}

// structurallyConsistent rejects combinations where a chosen child
// alignment does not hang below the chosen parent alignment. Coreferent
// and inverse-polarity positions count as below.
func (r *matchRun) structurallyConsistent(indexes []int, combo []*WordMatch) bool {
	byIndex := map[int]*WordMatch{}
	for i, spIndex := range indexes {
		byIndex[spIndex] = combo[i]
	}
	for _, spIndex := range indexes {
		spToken := &r.sp.Doc.Tokens[spIndex]
		parentWM := byIndex[spIndex]
		for _, spDep := range spToken.Children {
			childWM, ok := byIndex[spDep.ChildIndex]
			if !ok {
				continue
			}
			if !r.connected(parentWM, childWM) {
				return false
			}
		}
	}
	return true
}

func (r *matchRun) connected(parentWM, childWM *WordMatch) bool {
	parent := parentWM.DocumentIndex()
	child := childWM.DocumentIndex()
	if parent.Token == child.Token && parent.Subword != child.Subword {
		return true
	}
	for _, mention := range r.doc.CorefChain(parent.Token) {
		for _, dep := range r.doc.Tokens[mention].Children {
			for _, childMention := range r.doc.CorefChain(child.Token) {
				if dep.ChildIndex == childMention {
					return true
				}
			}
		}
		for _, dep := range r.doc.Tokens[mention].Parents {
			if dep.ParentIndex == child.Token {
				return true
			}
		}
	}
	return false
}

func (r *matchRun) newMatch(combo []*WordMatch) *Match {
	wms := make([]WordMatch, len(combo))
	for i, wm := range combo {
		wms[i] = *wm
	}
	m := &Match{
		SearchPhraseLabel:               r.sp.Label,
		SearchPhraseText:                r.sp.Text,
		DocumentLabel:                   r.docLabel,
		WordMatches:                     wms,
		FromSingleWordPhraselet:         r.sp.TopicMatchPhraselet && r.sp.HasSingleMatchableWord(),
		FromReverseOnlyPhraselet:        r.sp.ReverseOnly || r.sp.TreatAsReverseOnly,
		FromPhraseletWithoutMatchingTags: r.sp.CreatedWithoutMatchingTags,
		RootPatternIndex:                r.sp.RootIndex,
	}
	similarityProduct := 1.0
	vectorCount := 0
	for _, wm := range combo {
		if wm.IsNegated {
			m.IsNegated = true
		}
		if wm.IsUncertain {
			m.IsUncertain = true
		}
		if wm.Type == TypeEmbedding {
			similarityProduct *= wm.Similarity
			vectorCount++
		}
	}
	m.OverallSimilarity = 1.0
	if vectorCount > 0 {
		m.OverallSimilarity = round8(math.Pow(similarityProduct, 1/float64(vectorCount)))
	}
	if root := m.RootWordMatch(); root != nil {
		m.IndexWithinDocument = root.DocumentTokenIndex
	}
	return m
}

func round8(f float64) float64 {
	return math.Round(f*1e8) / 1e8
}

// SortMatches orders matches deterministically: best overall similarity
// first, then document label, then position within the document.
func SortMatches(matches []*Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].OverallSimilarity != matches[j].OverallSimilarity {
			return matches[i].OverallSimilarity > matches[j].OverallSimilarity
		}
		if c := strings.Compare(matches[i].DocumentLabel, matches[j].DocumentLabel); c != 0 {
			return c < 0
		}
		return matches[i].IndexWithinDocument < matches[j].IndexWithinDocument
	})
}
