package match

import (
	sent "github.com/revelaction/sematch/sentence"
)

// WordMatchDictionary is the serializable form of a word match.
type WordMatchDictionary struct {
	SearchPhraseWord    string  `json:"search_phrase_word"`
	DocumentWord        string  `json:"document_word"`
	DocumentPhrase      string  `json:"document_phrase"`
	MatchType           string  `json:"match_type"`
	Similarity          float64 `json:"similarity_measure"`
	Negated             bool    `json:"negated"`
	Uncertain           bool    `json:"uncertain"`
	StructurallyMatched string  `json:"structurally_matched_document_word"`
	Depth               int     `json:"depth"`
	Explanation         string  `json:"explanation"`
}

// Dictionary is the serializable form of a match.
type Dictionary struct {
	SearchPhraseLabel   string                `json:"search_phrase_label"`
	SearchPhraseText    string                `json:"search_phrase_text"`
	DocumentLabel       string                `json:"document"`
	Index               int                   `json:"index_within_document"`
	Sentences           string                `json:"sentences_within_document"`
	Negated             bool                  `json:"negated"`
	Uncertain           bool                  `json:"uncertain"`
	InvolvesCoreference bool                  `json:"involves_coreference"`
	OverallSimilarity   float64               `json:"overall_similarity_measure"`
	WordMatches         []WordMatchDictionary `json:"word_matches"`
}

// ToDictionary renders the match against its source document. The
// document supplies the sentence text around each matched word.
func (m *Match) ToDictionary(doc *sent.Doc) Dictionary {
	d := Dictionary{
		SearchPhraseLabel:   m.SearchPhraseLabel,
		SearchPhraseText:    m.SearchPhraseText,
		DocumentLabel:       m.DocumentLabel,
		Index:               m.IndexWithinDocument,
		Negated:             m.IsNegated,
		Uncertain:           m.IsUncertain,
		InvolvesCoreference: m.InvolvesCoreference(),
		OverallSimilarity:   m.OverallSimilarity,
	}
	if doc != nil && len(m.WordMatches) > 0 {
		start := doc.SentenceSpanOf(m.WordMatches[0].FirstTokenIndex)
		end := start
		for i := range m.WordMatches {
			s := doc.SentenceSpanOf(m.WordMatches[i].FirstTokenIndex)
			if s.Start < start.Start {
				start = s
			}
			if s.End > end.End {
				end = s
			}
		}
		d.Sentences = doc.Text(start.Start, end.End)
	}
	for i := range m.WordMatches {
		wm := &m.WordMatches[i]
		wd := WordMatchDictionary{
			SearchPhraseWord: wm.SearchPhraseWord,
			DocumentWord:     wm.DocumentWord,
			MatchType:        wm.Type,
			Similarity:       wm.Similarity,
			Negated:          wm.IsNegated,
			Uncertain:        wm.IsUncertain,
			Depth:            wm.Depth,
			Explanation:      wm.Explanation,
		}
		if doc != nil {
			wd.DocumentPhrase = doc.Text(wm.FirstTokenIndex, wm.LastTokenIndex+1)
			wd.StructurallyMatched = doc.Tokens[wm.StructurallyMatchedTokenIndex].Text
		}
		d.WordMatches = append(d.WordMatches, wd)
	}
	return d
}
