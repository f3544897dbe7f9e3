// Package topic finds the passages of a corpus that best match the
// subject matter of a query document. Phraselets extracted from the
// query are matched in several passes of increasing looseness, and the
// matches feed a positional activation score per document.
package topic

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/revelaction/sematch/corpus"
	"github.com/revelaction/sematch/match"
	"github.com/revelaction/sematch/phrase"
	"github.com/revelaction/sematch/phraselet"
	sent "github.com/revelaction/sematch/sentence"
)

// Matcher runs topic matching against one corpus.
type Matcher struct {
	cfg        Config
	corpus     *corpus.Corpus
	strategies []match.Strategy
	generator  *phraselet.Generator
	log        zerolog.Logger
}

func New(cfg Config, c *corpus.Corpus, strategies []match.Strategy, gen *phraselet.Generator, log zerolog.Logger) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		cfg:        cfg,
		corpus:     c,
		strategies: strategies,
		generator:  gen,
		log:        log,
	}, nil
}

// scoredMatch pairs a structural match with its originating phraselet.
type scoredMatch struct {
	match *match.Match
	info  *phraselet.Info

	// score is the match's own weighted contribution; topicScore is the
	// summed activation of all phraselets at its position.
	score      float64
	topicScore float64

	// posIndex is the match's index in the position-sorted slice.
	posIndex int

	start int
	end   int
}

// Match returns the best topic matches for the query document, at most
// NumberOfResults, ordered by score.
func (tm *Matcher) Match(queryDoc *sent.Doc) ([]*TopicMatch, error) {
	infos := map[phraselet.Key]*phraselet.Info{}
	tm.generator.Generate(infos, queryDoc, false)
	if len(infos) == 0 {
		tm.generator.Generate(infos, queryDoc, true)
	}

	singles, relations, reverses := tm.compile(infos)
	tm.log.Debug().
		Int("single_word", len(singles)).
		Int("relation", len(relations)).
		Int("reverse_only", len(reverses)).
		Msg("phraselets generated")

	matches := tm.runPasses(singles, relations, reverses)
	matches = tm.filterSuperfluous(matches, rebuildWordInfo(matches))
	matches = dedup(matches)
	tm.score(matches)
	tm.activationScores(matches)
	results := tm.buildTopicMatches(matches)
	tm.log.Debug().Int("matches", len(matches)).Int("results", len(results)).Msg("topic matching done")
	return results, nil
}

// compiledPhraselet couples a phraselet info with its compiled search
// phrase.
type compiledPhraselet struct {
	info *phraselet.Info
	sp   *phrase.SearchPhrase
}

func (tm *Matcher) compile(infos map[phraselet.Key]*phraselet.Info) (singles, relations, reverses []*compiledPhraselet) {
	keys := make([]phraselet.Key, 0, len(infos))
	for k := range infos {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Label() < keys[j].Label() })

	for _, k := range keys {
		info := infos[k]
		sp := phraselet.ToSearchPhrase(info)
		for _, s := range tm.strategies {
			s.AddRootWords(sp)
		}
		c := &compiledPhraselet{info: info, sp: sp}
		switch {
		case info.SingleWord():
			singles = append(singles, c)
		case info.ReverseOnly || info.TreatAsReverseOnly:
			reverses = append(reverses, c)
		default:
			relations = append(relations, c)
		}
	}
	return singles, relations, reverses
}

// runPasses executes the matching protocol: single words, relations,
// targeted reverse matching, then embedding retries on each pole. The
// retry passes anchor at positions the earlier passes already matched,
// never at raw corpus occurrences.
func (tm *Matcher) runPasses(singles, relations, reverses []*compiledPhraselet) []*scoredMatch {
	docs := tm.corpus.Docs()
	ix := tm.corpus.Index()
	structural := match.NewMatcher(tm.strategies)
	base := match.Options{DocumentLabelFilter: tm.cfg.DocumentLabelFilter}
	var out []*scoredMatch

	collect := func(c *compiledPhraselet, ms []*match.Match) {
		for _, m := range ms {
			out = append(out, &scoredMatch{match: m, info: c.info})
		}
	}

	for _, c := range singles {
		collect(c, structural.MatchCorpus(c.sp, docs, ix, base))
	}
	for _, c := range relations {
		collect(c, structural.MatchCorpus(c.sp, docs, ix, base))
	}

	words := rebuildWordInfo(out)
	for _, c := range reverses {
		anchors := words.childRetryPositions(c.info)
		if len(anchors) == 0 || len(anchors) > tm.cfg.RelationRetryCeiling {
			continue
		}
		opts := base
		opts.ReverseMatchingPositions = anchors
		collect(c, structural.MatchCorpus(c.sp, docs, ix, opts))
	}

	if tm.cfg.OverallSimilarityThreshold >= 1 {
		return out
	}

	embedding := match.NewMatcher(append(append([]match.Strategy{}, tm.strategies...),
		match.EmbeddingStrategy{OverallThreshold: tm.cfg.OverallSimilarityThreshold}))

	words = rebuildWordInfo(out)
	for _, c := range append(append([]*compiledPhraselet{}, relations...), reverses...) {
		if c.info.ChildVector != nil {
			anchors := words.parentRetryPositions(c.info)
			if n := len(anchors); n > 0 && n <= tm.cfg.EmbeddingRetryCeiling {
				opts := base
				opts.CompareEmbeddingsOnNonRootWords = true
				opts.EmbeddingOverallThreshold = tm.cfg.OverallSimilarityThreshold
				opts.EmbeddingReverseMatchingPositions = anchors
				collect(c, embedding.MatchCorpus(c.sp, docs, ix, opts))
			}
		}
		if tm.cfg.EmbeddingBasedMatchingOnRootWords && c.info.ParentVector != nil {
			childAnchors := words.childRetryPositions(c.info)
			if n := len(childAnchors); n == 0 || n > tm.cfg.EmbeddingRetryCeiling {
				continue
			}
			roots := match.PositionSet{}
			for p := range childAnchors {
				doc, ok := docs[p.DocumentLabel]
				if !ok || p.Index.IsSubword() {
					continue
				}
				for _, dep := range doc.Tokens[p.Index.Token].Parents {
					roots[match.Position{DocumentLabel: p.DocumentLabel, Index: sent.WholeWord(dep.ParentIndex)}] = true
				}
			}
			opts := base
			opts.CompareEmbeddingsOnRootWords = true
			opts.EmbeddingOverallThreshold = tm.cfg.OverallSimilarityThreshold
			opts.EmbeddingReverseMatchingPositions = roots
			collect(c, embedding.MatchCorpus(c.sp, docs, ix, opts))
		}
	}
	return out
}

// wordMatchInfo records where one phraselet pole word has been matched
// so far: as a single word, and as the parent or child pole of each
// relation phraselet.
type wordMatchInfo struct {
	singleWord    match.PositionSet
	parentByLabel map[string]match.PositionSet
	childByLabel  map[string]match.PositionSet
	parentMatches map[match.Position][]*scoredMatch
	childMatches  map[match.Position][]*scoredMatch
}

type wordInfoIndex map[string]*wordMatchInfo

func (ix wordInfoIndex) at(word string) *wordMatchInfo {
	w := strings.ToLower(word)
	wi := ix[w]
	if wi == nil {
		wi = &wordMatchInfo{
			singleWord:    match.PositionSet{},
			parentByLabel: map[string]match.PositionSet{},
			childByLabel:  map[string]match.PositionSet{},
			parentMatches: map[match.Position][]*scoredMatch{},
			childMatches:  map[match.Position][]*scoredMatch{},
		}
		ix[w] = wi
	}
	return wi
}

// rebuildWordInfo indexes the matches produced so far by pole word.
func rebuildWordInfo(ms []*scoredMatch) wordInfoIndex {
	ix := wordInfoIndex{}
	for _, sm := range ms {
		m := sm.match
		if m.FromSingleWordPhraselet {
			pos := match.Position{DocumentLabel: m.DocumentLabel, Index: m.WordMatches[0].DocumentIndex()}
			ix.at(sm.info.Key.ParentWord).singleWord[pos] = true
			continue
		}
		root, child := m.RootWordMatch(), m.ChildWordMatch()
		if child == nil {
			continue
		}
		label := m.SearchPhraseLabel

		parentPos := match.Position{DocumentLabel: m.DocumentLabel, Index: root.DocumentIndex()}
		pi := ix.at(sm.info.Key.ParentWord)
		if pi.parentByLabel[label] == nil {
			pi.parentByLabel[label] = match.PositionSet{}
		}
		pi.parentByLabel[label][parentPos] = true
		pi.parentMatches[parentPos] = append(pi.parentMatches[parentPos], sm)

		childPos := match.Position{DocumentLabel: m.DocumentLabel, Index: child.DocumentIndex()}
		ci := ix.at(sm.info.Key.ChildWord)
		if ci.childByLabel[label] == nil {
			ci.childByLabel[label] = match.PositionSet{}
		}
		ci.childByLabel[label][childPos] = true
		ci.childMatches[childPos] = append(ci.childMatches[childPos], sm)
	}
	return ix
}

// childRetryPositions returns the positions where the phraselet's child
// word was matched as a single word but the phraselet itself has not
// matched yet.
func (ix wordInfoIndex) childRetryPositions(info *phraselet.Info) match.PositionSet {
	wi := ix[strings.ToLower(info.Key.ChildWord)]
	if wi == nil {
		return nil
	}
	return difference(wi.singleWord, wi.childByLabel[info.Label()])
}

func (ix wordInfoIndex) parentRetryPositions(info *phraselet.Info) match.PositionSet {
	wi := ix[strings.ToLower(info.Key.ParentWord)]
	if wi == nil {
		return nil
	}
	return difference(wi.singleWord, wi.parentByLabel[info.Label()])
}

func difference(a, b match.PositionSet) match.PositionSet {
	out := match.PositionSet{}
	for p := range a {
		if !b[p] {
			out[p] = true
		}
	}
	return out
}

// filterSuperfluous drops relation matches outclassed by another match
// anchored at the same document word: a pole loses when a different
// match at the anchor aligned the other pole with higher similarity, or
// with a whole word where this match only reached a subword. Compound
// phraselets matched entirely inside one document token are dropped
// too.
func (tm *Matcher) filterSuperfluous(ms []*scoredMatch, words wordInfoIndex) []*scoredMatch {
	out := ms[:0]
	for _, sm := range ms {
		if sm.match.FromSingleWordPhraselet {
			out = append(out, sm)
			continue
		}
		if sameTokenCompound(sm.match) {
			continue
		}
		if !tm.poleCheck(sm, words, true) || !tm.poleCheck(sm, words, false) {
			continue
		}
		out = append(out, sm)
	}
	return out
}

func sameTokenCompound(m *match.Match) bool {
	if !strings.HasPrefix(m.SearchPhraseLabel, "intcompound") {
		return false
	}
	tok := m.WordMatches[0].DocumentTokenIndex
	for i := range m.WordMatches {
		if m.WordMatches[i].DocumentTokenIndex != tok {
			return false
		}
	}
	return true
}

// poleCheck compares sm against the other relation matches anchored at
// the same pole position and reports whether sm survives.
func (tm *Matcher) poleCheck(sm *scoredMatch, words wordInfoIndex, parentPole bool) bool {
	m := sm.match
	thisPole, otherPole := m.RootWordMatch(), m.ChildWordMatch()
	word := sm.info.Key.ParentWord
	if !parentPole {
		thisPole, otherPole = otherPole, thisPole
		word = sm.info.Key.ChildWord
	}
	if thisPole == nil || otherPole == nil {
		return true
	}
	wi := words[strings.ToLower(word)]
	if wi == nil {
		return true
	}
	pos := match.Position{DocumentLabel: m.DocumentLabel, Index: thisPole.DocumentIndex()}
	others := wi.parentMatches[pos]
	if !parentPole {
		others = wi.childMatches[pos]
	}
	for _, other := range others {
		if other == sm {
			continue
		}
		var otherOther *match.WordMatch
		if parentPole {
			otherOther = other.match.ChildWordMatch()
		} else {
			otherOther = other.match.RootWordMatch()
		}
		if otherOther == nil {
			continue
		}
		if otherOther.DocumentIndex() == otherPole.DocumentIndex() &&
			otherOther.Similarity > otherPole.Similarity {
			return false
		}
		if otherOther.DocumentTokenIndex == otherPole.DocumentTokenIndex &&
			otherPole.SubwordIndex != -1 && otherOther.SubwordIndex == -1 {
			return false
		}
		if !parentPole && tm.corefPreferred(sm, other, thisPole, otherPole, otherOther) {
			return false
		}
	}
	return true
}

// corefPreferred reports whether another match of the same phraselet
// reaches this child through a coreferring, closer parent.
func (tm *Matcher) corefPreferred(sm, other *scoredMatch, child, parent, otherParent *match.WordMatch) bool {
	if other.match.SearchPhraseLabel != sm.match.SearchPhraseLabel {
		return false
	}
	if otherParent.DocumentTokenIndex == parent.DocumentTokenIndex {
		return false
	}
	doc, err := tm.corpus.Doc(sm.match.DocumentLabel)
	if err != nil {
		return false
	}
	linked := false
	for _, mention := range doc.CorefChain(parent.DocumentTokenIndex) {
		if mention == otherParent.DocumentTokenIndex {
			linked = true
			break
		}
	}
	if !linked {
		return false
	}
	dThis := absInt(parent.DocumentTokenIndex - child.DocumentTokenIndex)
	dOther := absInt(otherParent.DocumentTokenIndex - child.DocumentTokenIndex)
	return dThis > dOther ||
		(dThis == dOther && parent.DocumentTokenIndex > otherParent.DocumentTokenIndex)
}

// dedup removes matches that align the same document words, keeping the
// first in deterministic order, and drops subword matches on tokens a
// whole-word single-word match already covers.
func dedup(matches []*scoredMatch) []*scoredMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].match, matches[j].match
		if a.DocumentLabel != b.DocumentLabel {
			return a.DocumentLabel < b.DocumentLabel
		}
		if a.IndexWithinDocument != b.IndexWithinDocument {
			return a.IndexWithinDocument < b.IndexWithinDocument
		}
		if a.SubwordIndex() != b.SubwordIndex() {
			return a.SubwordIndex() < b.SubwordIndex()
		}
		if a.FromSingleWordPhraselet != b.FromSingleWordPhraselet {
			return !a.FromSingleWordPhraselet
		}
		return a.SearchPhraseLabel < b.SearchPhraseLabel
	})

	wholeSingles := map[string]map[int]bool{}
	for _, sm := range matches {
		if sm.match.FromSingleWordPhraselet && sm.match.SubwordIndex() == -1 {
			if wholeSingles[sm.match.DocumentLabel] == nil {
				wholeSingles[sm.match.DocumentLabel] = map[int]bool{}
			}
			wholeSingles[sm.match.DocumentLabel][sm.match.IndexWithinDocument] = true
		}
	}

	seen := map[string]bool{}
	var out []*scoredMatch
	for _, sm := range matches {
		if sm.match.SubwordIndex() != -1 &&
			wholeSingles[sm.match.DocumentLabel][sm.match.IndexWithinDocument] {
			continue
		}
		key := matchFingerprint(sm.match)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sm)
	}
	return out
}

func matchFingerprint(m *match.Match) string {
	var b strings.Builder
	b.WriteString(m.DocumentLabel)
	positions := make([]sent.Index, 0, len(m.WordMatches))
	for i := range m.WordMatches {
		positions = append(positions, m.WordMatches[i].DocumentIndex())
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	for _, p := range positions {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(p.Token))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(p.Subword))
	}
	return b.String()
}

// score assigns each match its weighted contribution and the word span
// it covers.
func (tm *Matcher) score(matches []*scoredMatch) {
	overlapping := relationOverlaps(matches)
	for _, sm := range matches {
		m := sm.match
		var base float64
		switch {
		case m.FromSingleWordPhraselet && m.FromPhraseletWithoutMatchingTags:
			base = tm.cfg.SingleWordAnyTagScore
		case m.FromSingleWordPhraselet:
			base = tm.cfg.SingleWordScore
		case m.FromReverseOnlyPhraselet:
			base = tm.cfg.ReverseOnlyRelationScore
		default:
			base = tm.cfg.RelationScore
		}
		if !m.FromSingleWordPhraselet && overlapping[sm] {
			base *= tm.cfg.OverlappingRelationMultiplier
		}
		score := base * sm.info.FrequencyFactor
		for i := range m.WordMatches {
			wm := &m.WordMatches[i]
			switch wm.Type {
			case match.TypeEmbedding:
				score *= tm.cfg.EmbeddingPenalty * wm.Similarity
			case match.TypeOntology:
				score *= math.Pow(tm.cfg.OntologyPenalty, float64(absInt(wm.Depth)+1))
			}
		}
		sm.score = score
		sm.start, sm.end = matchExtent(m)
	}
}

// tracker carries the decaying activation one phraselet contributes.
type tracker struct {
	position int
	score    float64
}

func (t *tracker) activation(pos, maxDistance int) float64 {
	q := float64(pos-t.position) / float64(maxDistance)
	if q > 1 {
		q = 1
	}
	return (1 - q) * t.score
}

// activationScores walks each document's matches in position order and
// assigns every match the summed live activation of all its document's
// phraselets at its position. The matches arrive sorted by document and
// position.
func (tm *Matcher) activationScores(ms []*scoredMatch) {
	trackers := map[string]*tracker{}
	var labels []string
	currentDoc := ""
	started := false
	for i, sm := range ms {
		sm.posIndex = i
		m := sm.match
		if !started || m.DocumentLabel != currentDoc {
			currentDoc = m.DocumentLabel
			started = true
			trackers = map[string]*tracker{}
			labels = labels[:0]
		}
		pos := m.IndexWithinDocument
		t := trackers[m.SearchPhraseLabel]
		if t == nil {
			t = &tracker{position: pos, score: sm.score}
			trackers[m.SearchPhraseLabel] = t
			labels = append(labels, m.SearchPhraseLabel)
		} else {
			if decayed := t.activation(pos, tm.cfg.MaximumActivationDistance); decayed > sm.score {
				t.score = decayed
			} else {
				t.score = sm.score
			}
			t.position = pos
		}

		// Iterating the labels in insertion order keeps the float
		// summation deterministic.
		total := 0.0
		kept := labels[:0]
		for _, label := range labels {
			a := trackers[label].activation(pos, tm.cfg.MaximumActivationDistance)
			if a <= 0 {
				delete(trackers, label)
				continue
			}
			total += a
			kept = append(kept, label)
		}
		labels = kept
		sm.topicScore = total
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func matchExtent(m *match.Match) (start, end int) {
	start = m.WordMatches[0].FirstTokenIndex
	end = m.WordMatches[0].LastTokenIndex
	for i := range m.WordMatches {
		if m.WordMatches[i].FirstTokenIndex < start {
			start = m.WordMatches[i].FirstTokenIndex
		}
		if m.WordMatches[i].LastTokenIndex > end {
			end = m.WordMatches[i].LastTokenIndex
		}
	}
	return start, end
}

// relationOverlaps marks relation matches that share a document word
// position with a relation match from a different phraselet.
func relationOverlaps(matches []*scoredMatch) map[*scoredMatch]bool {
	type posKey struct {
		doc string
		pos sent.Index
	}
	claims := map[posKey]map[string]bool{}
	for _, sm := range matches {
		if sm.match.FromSingleWordPhraselet {
			continue
		}
		for i := range sm.match.WordMatches {
			k := posKey{sm.match.DocumentLabel, sm.match.WordMatches[i].DocumentIndex()}
			if claims[k] == nil {
				claims[k] = map[string]bool{}
			}
			claims[k][sm.match.SearchPhraseLabel] = true
		}
	}
	out := map[*scoredMatch]bool{}
	for _, sm := range matches {
		if sm.match.FromSingleWordPhraselet {
			continue
		}
		for i := range sm.match.WordMatches {
			k := posKey{sm.match.DocumentLabel, sm.match.WordMatches[i].DocumentIndex()}
			if len(claims[k]) > 1 {
				out[sm] = true
				break
			}
		}
	}
	return out
}
