// Package console provides interactive prompts for topic matching and
// structural search against a loaded corpus.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/revelaction/sematch/manager"
	sent "github.com/revelaction/sematch/sentence"
	"github.com/revelaction/sematch/storage"
)

// Parser turns raw text into an annotated document. The console needs
// one for free-text queries; without it only serialized query documents
// can be used.
type Parser interface {
	Parse(text string) (*sent.Doc, error)
}

type Console struct {
	Manager *manager.Manager
	Parser  Parser
	Out     io.Writer

	// QueryDir is where the completer looks for serialized query
	// documents, offered with the @ prefix.
	QueryDir string
}

func New(m *manager.Manager) *Console {
	return &Console{Manager: m, Out: os.Stdout}
}

// queryDoc resolves a console input line to an annotated document:
// either @file.json relative to QueryDir, or free text through the
// parser.
func (c *Console) queryDoc(in string) (*sent.Doc, string, error) {
	if strings.HasPrefix(in, "@") {
		path := filepath.Join(c.QueryDir, strings.TrimPrefix(in, "@"))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		doc, err := storage.DeserializeDocument(data, storage.MorphologyDerivational)
		if err != nil {
			return nil, "", err
		}
		return doc, doc.Text(0, len(doc.Tokens)), nil
	}
	if c.Parser == nil {
		return nil, "", fmt.Errorf("no parser available, use @file to load a serialized query")
	}
	doc, err := c.Parser.Parse(in)
	if err != nil {
		return nil, "", err
	}
	return doc, in, nil
}

func (c *Console) completer(in prompt.Document) []prompt.Suggest {
	word := in.GetWordBeforeCursor()
	if !strings.HasPrefix(word, "@") || c.QueryDir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.QueryDir)
	if err != nil {
		return nil
	}
	var suggests []prompt.Suggest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		suggests = append(suggests, prompt.Suggest{Text: "@" + e.Name()})
	}
	return prompt.FilterHasPrefix(suggests, word, true)
}

// RunTopicMatching loops reading queries and printing ranked topic
// matches until the user types quit.
func (c *Console) RunTopicMatching() error {
	fmt.Fprintln(c.Out, "topic matching console, @file loads a serialized query, quit exits")
	history := []string{}
	for {
		in := prompt.Input("topic> ", c.completer,
			prompt.OptionTitle("sematch topic"),
			prompt.OptionPrefixTextColor(prompt.Yellow),
			prompt.OptionMaxSuggestion(12),
			prompt.OptionHistory(history),
		)
		in = strings.TrimSpace(in)
		if in == "quit" {
			return nil
		}
		if in == "" {
			continue
		}
		history = append(history, in)

		doc, text, err := c.queryDoc(in)
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
			continue
		}
		dicts, err := c.Manager.TopicMatchReturningDictionaries(doc, text)
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
			continue
		}
		if len(dicts) == 0 {
			fmt.Fprintln(c.Out, "no matches")
			continue
		}
		for _, d := range dicts {
			fmt.Fprintf(c.Out, "%s %s (%.2f) %s\n", d.Rank, d.DocumentLabel, d.Score, d.Text)
		}
	}
}

// RunStructuralSearch loops reading search phrases, matching each one
// against the corpus and printing the match dictionaries.
func (c *Console) RunStructuralSearch() error {
	fmt.Fprintln(c.Out, "structural search console, @file loads a serialized phrase, quit exits")
	history := []string{}
	for {
		in := prompt.Input("search> ", c.completer,
			prompt.OptionTitle("sematch search"),
			prompt.OptionPrefixTextColor(prompt.Green),
			prompt.OptionMaxSuggestion(12),
			prompt.OptionHistory(history),
		)
		in = strings.TrimSpace(in)
		if in == "quit" {
			return nil
		}
		if in == "" {
			continue
		}
		history = append(history, in)

		doc, text, err := c.queryDoc(in)
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
			continue
		}
		c.Manager.RemoveAllSearchPhrases()
		if _, err := c.Manager.RegisterSearchPhrase("console", doc, text); err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
			continue
		}
		dicts, err := c.Manager.MatchReturningDictionaries()
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
			continue
		}
		if len(dicts) == 0 {
			fmt.Fprintln(c.Out, "no matches")
			continue
		}
		out, err := json.MarshalIndent(dicts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.Out, string(out))
	}
}
