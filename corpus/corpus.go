// Package corpus keeps the registered documents together with the
// reverse index and word frequencies derived from them.
package corpus

import (
	"fmt"
	"sort"

	"github.com/revelaction/sematch/match"
	sent "github.com/revelaction/sematch/sentence"
)

// Corpus is the set of registered documents. It is not safe for
// concurrent use; callers serialize access.
type Corpus struct {
	docs       map[string]*sent.Doc
	index      *match.Index
	strategies []match.Strategy
}

func New(strategies []match.Strategy) *Corpus {
	return &Corpus{
		docs:       map[string]*sent.Doc{},
		index:      match.NewIndex(),
		strategies: strategies,
	}
}

// Register adds a document under a unique label and indexes it.
func (c *Corpus) Register(label string, doc *sent.Doc) error {
	if _, ok := c.docs[label]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateDocument, label)
	}
	c.docs[label] = doc
	c.index.IndexDocument(c.strategies, doc, label)
	return nil
}

// Remove drops a document and its index entries. A later Register with
// the same label behaves as if the document had never been registered.
func (c *Corpus) Remove(label string) error {
	if _, ok := c.docs[label]; !ok {
		return fmt.Errorf("%w: %q", ErrDocumentNotFound, label)
	}
	delete(c.docs, label)
	c.index.RemoveDocument(label)
	return nil
}

func (c *Corpus) Doc(label string) (*sent.Doc, error) {
	doc, ok := c.docs[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDocumentNotFound, label)
	}
	return doc, nil
}

func (c *Corpus) Contains(label string) bool {
	_, ok := c.docs[label]
	return ok
}

// Labels returns the registered labels in sorted order.
func (c *Corpus) Labels() []string {
	labels := make([]string, 0, len(c.docs))
	for label := range c.docs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func (c *Corpus) Len() int { return len(c.docs) }

// Docs exposes the label to document map for matching. Callers must not
// mutate it.
func (c *Corpus) Docs() map[string]*sent.Doc { return c.docs }

func (c *Corpus) Index() *match.Index { return c.index }

// FrequencyInfo is the per-word occurrence count across the corpus
// together with the highest count observed.
type FrequencyInfo struct {
	Frequencies map[string]int
	Maximum     int
}

// Frequencies counts, per indexed word, the number of positions in the
// corpus where it occurs.
func (c *Corpus) Frequencies() FrequencyInfo {
	info := FrequencyInfo{Frequencies: map[string]int{}}
	for _, word := range c.index.Words() {
		n := len(c.index.Lookup(word))
		info.Frequencies[word] = n
		if n > info.Maximum {
			info.Maximum = n
		}
	}
	return info
}
