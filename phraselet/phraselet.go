// Package phraselet derives small search phrases from a query document
// for topic matching: one phraselet per topical word and one per
// relation shape the template catalogue recognizes.
package phraselet

import (
	"math"
	"strings"

	"github.com/revelaction/sematch/ontology"
	"github.com/revelaction/sematch/phrase"
	sent "github.com/revelaction/sematch/sentence"
)

// Key identifies a phraselet. Two extractions with the same key are the
// same phraselet regardless of which tokens produced them.
type Key struct {
	Template   string
	ParentWord string
	ChildWord  string
}

func (k Key) Label() string {
	if k.ChildWord == "" {
		return k.Template + ": " + k.ParentWord
	}
	return k.Template + ": " + k.ParentWord + "-" + k.ChildWord
}

// Info is the extracted content of one phraselet, sufficient to compile
// a search phrase without the source document.
type Info struct {
	Key Key

	// DependencyLabel is the canonical label connecting the two poles.
	// Empty for single-word phraselets.
	DependencyLabel string

	ParentLemma        string
	ParentDerivedLemma string
	ParentPos          string
	ParentTag          string
	ParentEntityType   string
	ParentVector       []float32

	ChildLemma        string
	ChildDerivedLemma string
	ChildPos          string
	ChildTag          string
	ChildVector       []float32

	CreatedWithoutMatchingTags bool
	ReverseOnly                bool
	TreatAsReverseOnly         bool

	ParentFrequencyFactor float64
	ChildFrequencyFactor  float64

	// FrequencyFactor is the product of the pole factors and scales the
	// phraselet's contribution to topic scores.
	FrequencyFactor float64

	// SourceTokenIndex is the lowest token index the phraselet was
	// extracted at, the final canonicalization tie-break.
	SourceTokenIndex int
}

func (i *Info) Label() string { return i.Key.Label() }

func (i *Info) SingleWord() bool { return i.DependencyLabel == "" }

// Generator extracts phraselets from annotated documents.
type Generator struct {
	Templates []Template

	// Ontology, when set together with ReplaceHypernyms, replaces each
	// pole word with its most general hypernym ancestor.
	Ontology         *ontology.Index
	ReplaceHypernyms bool

	// Frequencies and MaxFrequency feed the per-word frequency factors.
	// A nil map disables frequency weighting; every factor is 1.
	Frequencies  map[string]int
	MaxFrequency int
}

func NewGenerator() *Generator {
	return &Generator{Templates: DefaultTemplates()}
}

// frequencyFactor weights a word by corpus rarity: 1 for words seen at
// most once, falling towards 0 as the count approaches the corpus
// maximum.
func frequencyFactor(freq, maxFreq int) float64 {
	if freq <= 1 || maxFreq <= 1 {
		return 1
	}
	f := 1 - math.Log(float64(freq-1))/math.Log(float64(maxFreq))
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// wordFactor pools the pole's representations, including any words the
// ontology links to them, and weights the pole by the most frequent
// one.
func (g *Generator) wordFactor(words ...string) float64 {
	if g.Frequencies == nil {
		return 1
	}
	pooled := map[string]bool{}
	for _, w := range words {
		if w == "" {
			continue
		}
		pooled[strings.ToLower(w)] = true
		if g.Ontology != nil {
			for _, linked := range g.Ontology.WordsMatching(w) {
				pooled[strings.ToLower(linked)] = true
			}
		}
	}
	max := 0
	for w := range pooled {
		if n := g.Frequencies[w]; n > max {
			max = n
		}
	}
	return frequencyFactor(max, g.MaxFrequency)
}

type pole struct {
	lemma      string
	derived    string
	pos        string
	tag        string
	entityType string
	vector     []float32
}

func (g *Generator) tokenPole(t *sent.Token) pole {
	p := pole{
		lemma:      strings.ToLower(t.Lemma),
		derived:    strings.ToLower(t.DerivedLemma),
		pos:        t.Pos,
		tag:        t.Tag,
		entityType: t.EntityType,
		vector:     t.Vector,
	}
	g.replaceHypernym(&p)
	return p
}

func (g *Generator) subwordPole(t *sent.Token, sub *sent.Subword) pole {
	p := pole{
		lemma:   strings.ToLower(sub.Lemma),
		derived: strings.ToLower(sub.DerivedLemma),
		pos:     t.Pos,
		tag:     t.Tag,
		vector:  sub.Vector,
	}
	g.replaceHypernym(&p)
	return p
}

func (g *Generator) replaceHypernym(p *pole) {
	if g.Ontology == nil || !g.ReplaceHypernyms {
		return
	}
	for _, repr := range []string{p.derived, p.lemma} {
		if repr == "" {
			continue
		}
		if ancestor := g.Ontology.MostGeneralHypernymAncestor(repr); ancestor != "" && ancestor != repr {
			p.lemma = ancestor
			p.derived = ""
			return
		}
	}
}

func (p pole) word() string {
	if p.derived != "" {
		return p.derived
	}
	return p.lemma
}

func tagIn(tag string, tags []string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Generate extracts phraselets from doc into infos, merging with any
// phraselets already present. With matchAllWords every matchable token
// yields a single-word phraselet even when its tag falls outside the
// word template, flagged so scoring can discount it.
func (g *Generator) Generate(infos map[Key]*Info, doc *sent.Doc, matchAllWords bool) {
	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if !t.IsMatchable {
			continue
		}
		for _, tmpl := range g.Templates {
			switch {
			case tmpl.SingleWord():
				g.addSingleWord(infos, tmpl, t, i, matchAllWords)
			case tmpl.Subwords:
				g.addSubwordRelations(infos, tmpl, t, i)
			default:
				g.addRelations(infos, tmpl, doc, t, i)
			}
		}
	}
}

func (g *Generator) addSingleWord(infos map[Key]*Info, tmpl Template, t *sent.Token, index int, matchAllWords bool) {
	if stopLemmas[strings.ToLower(t.Lemma)] {
		return
	}
	tagMatches := tagIn(t.Tag, tmpl.ParentTags)
	if !tagMatches && !matchAllWords {
		return
	}
	p := g.tokenPole(t)
	info := &Info{
		Key:                        Key{Template: tmpl.Label, ParentWord: p.word()},
		ParentLemma:                p.lemma,
		ParentDerivedLemma:         p.derived,
		ParentPos:                  p.pos,
		ParentTag:                  p.tag,
		ParentEntityType:           p.entityType,
		ParentVector:               p.vector,
		CreatedWithoutMatchingTags: !tagMatches,
		SourceTokenIndex:           index,
	}
	info.ParentFrequencyFactor = g.wordFactor(p.lemma, p.derived)
	info.FrequencyFactor = info.ParentFrequencyFactor
	g.merge(infos, info)
}

func (g *Generator) addRelations(infos map[Key]*Info, tmpl Template, doc *sent.Doc, t *sent.Token, index int) {
	if !tagIn(t.Tag, tmpl.ParentTags) {
		return
	}
	for _, dep := range t.Children {
		if !tagIn(dep.Label, tmpl.DependencyLabels) && dep.Label != tmpl.AssignedLabel {
			continue
		}
		for _, mention := range doc.CorefChain(dep.ChildIndex) {
			child := &doc.Tokens[mention]
			if mention != dep.ChildIndex && child.Pos == "PRON" {
				continue
			}
			if !child.IsMatchable || !tagIn(child.Tag, tmpl.ChildTags) {
				continue
			}
			g.addRelation(infos, tmpl, g.tokenPole(t), g.tokenPole(child), index)
		}
	}
}

func (g *Generator) addSubwordRelations(infos map[Key]*Info, tmpl Template, t *sent.Token, index int) {
	for si := range t.Subwords {
		sub := &t.Subwords[si]
		if sub.DependentIndex < 0 || sub.DependencyLabel == "" {
			continue
		}
		var dependent *sent.Subword
		for di := range t.Subwords {
			if t.Subwords[di].Index == sub.DependentIndex {
				dependent = &t.Subwords[di]
				break
			}
		}
		if dependent == nil {
			continue
		}
		g.addRelation(infos, tmpl, g.subwordPole(t, sub), g.subwordPole(t, dependent), index)
	}
}

func (g *Generator) addRelation(infos map[Key]*Info, tmpl Template, parent, child pole, index int) {
	info := &Info{
		Key:                Key{Template: tmpl.Label, ParentWord: parent.word(), ChildWord: child.word()},
		DependencyLabel:    tmpl.AssignedLabel,
		ParentLemma:        parent.lemma,
		ParentDerivedLemma: parent.derived,
		ParentPos:          parent.pos,
		ParentTag:          parent.tag,
		ParentEntityType:   parent.entityType,
		ParentVector:       parent.vector,
		ChildLemma:         child.lemma,
		ChildDerivedLemma:  child.derived,
		ChildPos:           child.pos,
		ChildTag:           child.tag,
		ChildVector:        child.vector,
		ReverseOnly:        tmpl.ReverseOnly,
		TreatAsReverseOnly: reverseOnlyParentLemmas[parent.lemma],
		SourceTokenIndex:   index,
	}
	info.ParentFrequencyFactor = g.wordFactor(parent.lemma, parent.derived)
	info.ChildFrequencyFactor = g.wordFactor(child.lemma, child.derived)
	info.FrequencyFactor = info.ParentFrequencyFactor * info.ChildFrequencyFactor
	g.merge(infos, info)
}

// preferredPos ranks content-word part-of-speech values ahead of the
// rest when two extractions collide on the same key.
var preferredPos = map[string]bool{
	"NOUN":  true,
	"PROPN": true,
	"VERB":  true,
	"ADJ":   true,
}

// merge stores info unless an extraction with the same key already won:
// preferred part-of-speech first, then the shorter derived lemma, then
// the lower source token index.
func (g *Generator) merge(infos map[Key]*Info, info *Info) {
	existing, ok := infos[info.Key]
	if !ok {
		infos[info.Key] = info
		return
	}
	if preferredPos[existing.ParentPos] != preferredPos[info.ParentPos] {
		if preferredPos[info.ParentPos] {
			infos[info.Key] = info
		}
		return
	}
	if len(existing.ParentDerivedLemma) != len(info.ParentDerivedLemma) {
		if len(info.ParentDerivedLemma) < len(existing.ParentDerivedLemma) {
			infos[info.Key] = info
		}
		return
	}
	if info.SourceTokenIndex < existing.SourceTokenIndex {
		infos[info.Key] = info
	}
}

// ToSearchPhrase compiles the phraselet into a one- or two-token search
// phrase ready for structural matching.
func ToSearchPhrase(info *Info) *phrase.SearchPhrase {
	parent := sent.Token{
		Index:        0,
		Text:         info.ParentLemma,
		Lemma:        info.ParentLemma,
		DerivedLemma: info.ParentDerivedLemma,
		Pos:          info.ParentPos,
		Tag:          info.ParentTag,
		Dep:          "ROOT",
		EntityType:   info.ParentEntityType,
		Vector:       info.ParentVector,
		IsMatchable:  true,
	}
	doc := &sent.Doc{Tokens: []sent.Token{parent}, Sentences: []sent.Span{{Start: 0, End: 1}}}
	matchable := []int{0}
	text := info.ParentLemma
	if !info.SingleWord() {
		doc.Tokens[0].Children = []sent.Dependency{{Label: info.DependencyLabel, ChildIndex: 1}}
		doc.Tokens = append(doc.Tokens, sent.Token{
			Index:        1,
			Text:         info.ChildLemma,
			Lemma:        info.ChildLemma,
			DerivedLemma: info.ChildDerivedLemma,
			Pos:          info.ChildPos,
			Tag:          info.ChildTag,
			Dep:          info.DependencyLabel,
			Vector:       info.ChildVector,
			IsMatchable:  true,
			Parents:      []sent.ParentDependency{{Label: info.DependencyLabel, ParentIndex: 0}},
		})
		doc.Sentences[0].End = 2
		matchable = []int{0, 1}
		text = info.ParentLemma + " " + info.ChildLemma
	}
	return &phrase.SearchPhrase{
		Label:                      info.Label(),
		Text:                       text,
		Doc:                        doc,
		RootIndex:                  0,
		MatchableIndexes:           matchable,
		TopicMatchPhraselet:        true,
		CreatedWithoutMatchingTags: info.CreatedWithoutMatchingTags,
		ReverseOnly:                info.ReverseOnly,
		TreatAsReverseOnly:         info.TreatAsReverseOnly,
	}
}
