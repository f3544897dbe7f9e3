package topic

import (
	"sort"
	"strconv"

	"github.com/revelaction/sematch/match"
)

// TopicMatch is one scored passage of one document.
type TopicMatch struct {
	DocumentLabel string

	// Index is the token position where the activation peaked;
	// SubwordIndex is -1 unless the peak sat on a subword.
	Index        int
	SubwordIndex int

	// StartIndex and EndIndex delimit the matched passage in tokens,
	// SentenceStartIndex and SentenceEndIndex the surrounding whole
	// sentences.
	StartIndex         int
	EndIndex           int
	SentenceStartIndex int
	SentenceEndIndex   int

	// Text is the passage text covering the whole sentences.
	Text string

	Score float64

	// Rank is "1", "2", ... with an "=" suffix when tied with a
	// neighboring result.
	Rank string

	Matches []*match.Match
}

// buildTopicMatches grows a passage around each high-scoring match:
// position neighbors are pulled in while their topic score clears the
// cutoff and they stay within the sideways extent of the seed. The
// matches arrive sorted by document and position, with topic scores
// already assigned.
func (tm *Matcher) buildTopicMatches(ms []*scoredMatch) []*TopicMatch {
	seeds := make([]*scoredMatch, len(ms))
	copy(seeds, ms)
	sort.SliceStable(seeds, func(i, j int) bool { return seeds[i].topicScore > seeds[j].topicScore })

	var results []*TopicMatch
	contained := func(label string, index int) bool {
		for _, r := range results {
			if r.DocumentLabel == label && index >= r.StartIndex && index <= r.EndIndex {
				return true
			}
		}
		return false
	}

	perDoc := map[string]bool{}
	for _, seed := range seeds {
		if len(results) == tm.cfg.NumberOfResults {
			break
		}
		label := seed.match.DocumentLabel
		if tm.cfg.OnlyOnePerDocument && perDoc[label] {
			continue
		}
		if contained(label, seed.match.IndexWithinDocument) {
			continue
		}

		start, end := seed.start, seed.end
		first, last := seed.posIndex, seed.posIndex
		// The backward boundary tests the inner match's score, so a
		// passage often opens on the single noun that starts a
		// structure.
		for first > 0 {
			prev := ms[first-1]
			if prev.match.DocumentLabel != label ||
				ms[first].topicScore <= tm.cfg.DifferentMatchCutoff ||
				contained(label, prev.match.IndexWithinDocument) ||
				absInt(seed.match.IndexWithinDocument-prev.match.IndexWithinDocument) > tm.cfg.SidewaysMatchExtent {
				break
			}
			if prev.start < start {
				start = prev.start
			}
			if prev.end > end {
				end = prev.end
			}
			first--
		}
		for last < len(ms)-1 {
			next := ms[last+1]
			if next.match.DocumentLabel != label ||
				next.topicScore < tm.cfg.DifferentMatchCutoff ||
				contained(label, next.match.IndexWithinDocument) ||
				absInt(next.match.IndexWithinDocument-seed.match.IndexWithinDocument) > tm.cfg.SidewaysMatchExtent {
				break
			}
			if next.start < start {
				start = next.start
			}
			if next.end > end {
				end = next.end
			}
			last++
		}

		result := &TopicMatch{
			DocumentLabel: label,
			Index:         seed.match.IndexWithinDocument,
			SubwordIndex:  seed.match.SubwordIndex(),
			StartIndex:    start,
			EndIndex:      end,
			Score:         seed.topicScore,
		}
		for i := first; i <= last; i++ {
			result.Matches = append(result.Matches, ms[i].match)
		}
		if doc, err := tm.corpus.Doc(label); err == nil {
			startSpan := doc.SentenceSpanOf(start)
			endSpan := doc.SentenceSpanOf(end)
			result.SentenceStartIndex = startSpan.Start
			result.SentenceEndIndex = endSpan.End - 1
			result.Text = doc.Text(startSpan.Start, endSpan.End)
		}
		perDoc[label] = true
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if al, bl := a.EndIndex-a.StartIndex, b.EndIndex-b.StartIndex; al != bl {
			return al > bl
		}
		if a.DocumentLabel != b.DocumentLabel {
			return a.DocumentLabel < b.DocumentLabel
		}
		return a.StartIndex < b.StartIndex
	})
	assignRanks(results, tm.cfg.TiedResultQuotient)
	return results
}

// assignRanks labels results "1", "2", ... in score order, marking runs
// of near-equal scores as tied with an "=" suffix.
func assignRanks(results []*TopicMatch, quotient float64) {
	i := 0
	for i < len(results) {
		j := i + 1
		for j < len(results) && results[i].Score > 0 &&
			results[j].Score/results[j-1].Score > quotient {
			j++
		}
		rank := strconv.Itoa(i + 1)
		if j-i > 1 {
			rank += "="
		}
		for k := i; k < j; k++ {
			results[k].Rank = rank
		}
		i = j
	}
}

// WordInfo locates one matched word inside a topic match passage.
type WordInfo struct {
	// RelativeStartIndex and RelativeEndIndex are token offsets from
	// the start of the passage sentences.
	RelativeStartIndex  int    `json:"relative_start_index"`
	RelativeEndIndex    int    `json:"relative_end_index"`
	Type                string `json:"type"`
	IsHighestActivation bool   `json:"is_highest_activation"`
	Explanation         string `json:"explanation"`
}

// Dictionary is the serializable form of a topic match.
type Dictionary struct {
	DocumentLabel      string     `json:"document_label"`
	TextToMatch        string     `json:"text_to_match"`
	Text               string     `json:"text"`
	Rank               string     `json:"rank"`
	Index              int        `json:"index_within_document"`
	SubwordIndex       int        `json:"subword_index"`
	StartIndex         int        `json:"start_index"`
	EndIndex           int        `json:"end_index"`
	SentenceStartIndex int        `json:"sentences_start_index"`
	SentenceEndIndex   int        `json:"sentences_end_index"`
	Score              float64    `json:"score"`
	WordInfos          []WordInfo `json:"word_infos"`
}

// Dictionaries converts topic matches into their serializable form.
// Word infos covering the same tokens are merged, keeping the strongest
// type: an overlapping relation beats a relation beats a single word.
func Dictionaries(queryText string, results []*TopicMatch) []Dictionary {
	out := make([]Dictionary, 0, len(results))
	for _, r := range results {
		d := Dictionary{
			DocumentLabel:      r.DocumentLabel,
			TextToMatch:        queryText,
			Text:               r.Text,
			Rank:               r.Rank,
			Index:              r.Index,
			SubwordIndex:       r.SubwordIndex,
			StartIndex:         r.StartIndex,
			EndIndex:           r.EndIndex,
			SentenceStartIndex: r.SentenceStartIndex,
			SentenceEndIndex:   r.SentenceEndIndex,
			Score:              r.Score,
			WordInfos:          wordInfos(r),
		}
		out = append(out, d)
	}
	return out
}

func wordInfoType(m *match.Match, overlapping bool) string {
	switch {
	case m.FromSingleWordPhraselet:
		return "single"
	case overlapping:
		return "overlapping_relation"
	default:
		return "relation"
	}
}

func strongerType(a, b string) string {
	rank := map[string]int{"single": 0, "relation": 1, "overlapping_relation": 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func wordInfos(r *TopicMatch) []WordInfo {
	type span struct{ start, end int }
	claimed := map[span]int{}
	for _, m := range r.Matches {
		if m.FromSingleWordPhraselet {
			continue
		}
		for i := range m.WordMatches {
			wm := &m.WordMatches[i]
			claimed[span{wm.FirstTokenIndex, wm.LastTokenIndex}]++
		}
	}

	infos := map[span]*WordInfo{}
	for _, m := range r.Matches {
		isPeak := m.IndexWithinDocument == r.Index && m.SubwordIndex() == r.SubwordIndex
		for i := range m.WordMatches {
			wm := &m.WordMatches[i]
			s := span{wm.FirstTokenIndex, wm.LastTokenIndex}
			overlapping := !m.FromSingleWordPhraselet && claimed[s] > 1
			wi, ok := infos[s]
			if !ok {
				infos[s] = &WordInfo{
					RelativeStartIndex:  s.start - r.SentenceStartIndex,
					RelativeEndIndex:    s.end - r.SentenceStartIndex,
					Type:                wordInfoType(m, overlapping),
					IsHighestActivation: isPeak,
					Explanation:         wm.Explanation,
				}
				continue
			}
			wi.Type = strongerType(wi.Type, wordInfoType(m, overlapping))
			if isPeak {
				wi.IsHighestActivation = true
			}
		}
	}

	spans := make([]span, 0, len(infos))
	for s := range infos {
		spans = append(spans, s)
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})
	out := make([]WordInfo, 0, len(spans))
	for _, s := range spans {
		out = append(out, *infos[s])
	}
	return out
}
