package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/revelaction/sematch/console"
	"github.com/revelaction/sematch/manager"
	"github.com/revelaction/sematch/pool"
	sent "github.com/revelaction/sematch/sentence"
	"github.com/revelaction/sematch/storage"
	"github.com/revelaction/sematch/topic"
)

// loadManager builds a manager preloaded with every document in the
// store.
func loadManager(dbPath string, opts ...manager.Option) (*manager.Manager, error) {
	store, err := storage.Open(dbPath, storage.MorphologyDerivational, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	m, err := manager.New(append(opts, manager.WithLogger(log))...)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	labels, err := store.Labels(ctx)
	if err != nil {
		return nil, err
	}
	for _, label := range labels {
		doc, err := store.Get(ctx, label)
		if err != nil {
			return nil, err
		}
		if err := m.RegisterDocument(label, doc); err != nil {
			return nil, err
		}
	}
	log.Info().Int("documents", len(labels)).Msg("corpus loaded")
	return m, nil
}

func readDoc(path string) (*sent.Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return storage.DeserializeDocument(data, storage.MorphologyDerivational)
}

func topicCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("topic needs exactly one query document argument")
	}
	queryDoc, err := readDoc(c.Args().First())
	if err != nil {
		return err
	}

	var opts []manager.Option
	if t := c.Float64("threshold"); t < 1 {
		opts = append(opts, manager.WithOverallSimilarityThreshold(t))
	}
	topicCfg := topic.DefaultConfig()
	topicCfg.NumberOfResults = c.Int("results")
	opts = append(opts, manager.WithTopicConfig(topicCfg), manager.WithLogger(log))

	store, err := storage.Open(c.String("db"), storage.MorphologyDerivational, log)
	if err != nil {
		return err
	}
	defer store.Close()

	coord, err := pool.New(c.Int("workers"), 0, log, opts...)
	if err != nil {
		return err
	}
	defer coord.Close()

	ctx := context.Background()
	labels, err := store.Labels(ctx)
	if err != nil {
		return err
	}
	for _, label := range labels {
		doc, err := store.Get(ctx, label)
		if err != nil {
			return err
		}
		if err := coord.RegisterDocument(label, doc); err != nil {
			return err
		}
	}

	queryText := queryDoc.Text(0, len(queryDoc.Tokens))
	dicts, err := coord.TopicMatchReturningDictionaries(queryDoc, queryText)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(dicts, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("search needs exactly one phrase document argument")
	}
	phraseDoc, err := readDoc(c.Args().First())
	if err != nil {
		return err
	}

	m, err := loadManager(c.String("db"))
	if err != nil {
		return err
	}
	text := phraseDoc.Text(0, len(phraseDoc.Tokens))
	if _, err := m.RegisterSearchPhrase(c.String("label"), phraseDoc, text); err != nil {
		return err
	}
	dicts, err := m.MatchReturningDictionaries()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(dicts, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func consoleCommand(c *cli.Context) error {
	m, err := loadManager(c.String("db"))
	if err != nil {
		return err
	}
	con := console.New(m)
	con.QueryDir = c.String("queries")
	switch c.String("mode") {
	case "topic":
		return con.RunTopicMatching()
	case "search":
		return con.RunStructuralSearch()
	default:
		return fmt.Errorf("unknown console mode %q", c.String("mode"))
	}
}
