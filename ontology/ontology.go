// Package ontology provides a pre-built queryable index over a hand
// constructed hypernym/hyponym/synonym graph. Loading and parsing of
// ontology files is the caller's concern; the index is populated through
// explicit assertions and then queried during matching.
package ontology

import (
	"sort"
	"strings"
)

// Entry is one word reachable from a search word in the ontology.
//
// Depth is the number of hyponym levels between the search word and the
// entry: positive when the entry is a hyponym of the search word, zero for
// synonyms, negative (symmetric mode only) when the entry is a hypernym.
// IsIndividual is true for named individuals as opposed to classes.
type Entry struct {
	Word         string
	Depth        int
	IsIndividual bool
}

// Index is an immutable queryable ontology. Matching is case-insensitive.
//
// An Index must not be mutated after the first query. It is safe for
// concurrent use by multiple goroutines once populated.
type Index struct {
	symmetric bool

	hyponyms     map[string][]string // class -> direct subclasses and individuals
	hypernyms    map[string][]string
	synonyms     map[string][]string
	isIndividual map[string]bool

	multiwords map[string]bool

	matchDict map[string][]Entry
}

// New returns an empty Index. With symmetric matching enabled, hypernyms
// of a search word also match, carrying negative depths.
func New(symmetric bool) *Index {
	return &Index{
		symmetric:    symmetric,
		hyponyms:     map[string][]string{},
		hypernyms:    map[string][]string{},
		synonyms:     map[string][]string{},
		isIndividual: map[string]bool{},
		multiwords:   map[string]bool{},
	}
}

// SymmetricMatching reports whether hypernym (upward) matching is enabled.
func (ix *Index) SymmetricMatching() bool {
	return ix.symmetric
}

// AddHyponym asserts that child is a hyponym (subclass) of parent.
func (ix *Index) AddHyponym(parent, child string) {
	parent, child = normalize(parent), normalize(child)
	ix.hyponyms[parent] = append(ix.hyponyms[parent], child)
	ix.hypernyms[child] = append(ix.hypernyms[child], parent)
	ix.observe(parent)
	ix.observe(child)
}

// AddSynonym asserts that a and b are equivalent.
func (ix *Index) AddSynonym(a, b string) {
	a, b = normalize(a), normalize(b)
	ix.synonyms[a] = append(ix.synonyms[a], b)
	ix.synonyms[b] = append(ix.synonyms[b], a)
	ix.observe(a)
	ix.observe(b)
}

// AddIndividual asserts that name is a named individual of class.
func (ix *Index) AddIndividual(class, name string) {
	class, name = normalize(class), normalize(name)
	ix.hyponyms[class] = append(ix.hyponyms[class], name)
	ix.hypernyms[name] = append(ix.hypernyms[name], class)
	ix.isIndividual[name] = true
	ix.observe(class)
	ix.observe(name)
}

func (ix *Index) observe(word string) {
	ix.matchDict = nil
	if strings.Contains(word, " ") {
		ix.multiwords[word] = true
	}
}

// Matches returns the entry linking searchWord to any of docReprs, or nil
// when the ontology does not relate them. When several representations
// match, the one with the smallest absolute depth wins.
func (ix *Index) Matches(searchWord string, docReprs []string) *Entry {
	entries := ix.entries(normalize(searchWord))
	var best *Entry
	for _, repr := range docReprs {
		repr = normalize(repr)
		for i := range entries {
			if entries[i].Word != repr {
				continue
			}
			if best == nil || abs(entries[i].Depth) < abs(best.Depth) {
				e := entries[i]
				best = &e
			}
		}
	}
	return best
}

// WordsMatching returns all words the ontology relates to word, including
// word itself. Used to pool corpus frequencies across an ontology
// neighbourhood.
func (ix *Index) WordsMatching(word string) []string {
	word = normalize(word)
	words := []string{word}
	for _, e := range ix.entries(word) {
		words = append(words, e.Word)
	}
	return words
}

// MostGeneralHypernymAncestor returns the most general class reachable
// upward from word, or word itself when it has no hypernyms. Ties between
// equally distant roots break lexicographically for determinism.
func (ix *Index) MostGeneralHypernymAncestor(word string) string {
	word = normalize(word)
	if _, ok := ix.hypernyms[word]; !ok {
		if _, ok := ix.hyponyms[word]; !ok && len(ix.synonyms[word]) == 0 {
			return word
		}
	}
	type node struct {
		word  string
		depth int
	}
	visited := map[string]bool{word: true}
	queue := []node{{word, 0}}
	best := node{word, 0}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.depth > best.depth || (n.depth == best.depth && n.word < best.word) {
			best = n
		}
		next := append([]string{}, ix.hypernyms[n.word]...)
		for _, syn := range ix.synonyms[n.word] {
			if !visited[syn] {
				visited[syn] = true
				queue = append(queue, node{syn, n.depth})
			}
		}
		for _, up := range next {
			if !visited[up] {
				visited[up] = true
				queue = append(queue, node{up, n.depth + 1})
			}
		}
	}
	return best.word
}

// ContainsMultiword reports whether the ontology defines the given
// space-separated word sequence.
func (ix *Index) ContainsMultiword(text string) bool {
	return ix.multiwords[normalize(text)]
}

// entries returns the match entries for word, computing and caching the
// full dictionary on first use.
func (ix *Index) entries(word string) []Entry {
	if ix.matchDict == nil {
		ix.buildMatchDict()
	}
	return ix.matchDict[word]
}

func (ix *Index) buildMatchDict() {
	ix.matchDict = map[string][]Entry{}
	words := map[string]bool{}
	for w := range ix.hyponyms {
		words[w] = true
	}
	for w := range ix.hypernyms {
		words[w] = true
	}
	for w := range ix.synonyms {
		words[w] = true
	}
	for w := range words {
		ix.matchDict[w] = ix.collect(w)
	}
}

// collect walks the graph outward from word. Downward steps increase
// depth, synonym steps keep it, upward steps (symmetric mode) decrease
// it. Upward walks never turn downward again into sibling branches.
func (ix *Index) collect(word string) []Entry {
	type state struct {
		word     string
		depth    int
		downward bool // false once the walk has moved upward
	}
	seen := map[string]int{word: 0}
	queue := []state{{word, 0, true}}
	var out []Entry
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		step := func(next string, depth int, downward bool) {
			if prev, ok := seen[next]; ok && abs(prev) <= abs(depth) {
				return
			}
			seen[next] = depth
			queue = append(queue, state{next, depth, downward})
			out = append(out, Entry{
				Word:         next,
				Depth:        depth,
				IsIndividual: ix.isIndividual[next],
			})
		}
		for _, syn := range ix.synonyms[s.word] {
			step(syn, s.depth, s.downward)
		}
		if s.downward {
			for _, hyp := range ix.hyponyms[s.word] {
				step(hyp, s.depth+1, true)
			}
		}
		if ix.symmetric && s.depth <= 0 {
			for _, up := range ix.hypernyms[s.word] {
				step(up, s.depth-1, false)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if abs(out[i].Depth) != abs(out[j].Depth) {
			return abs(out[i].Depth) < abs(out[j].Depth)
		}
		return out[i].Word < out[j].Word
	})
	return out
}

func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
