package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosuri/uiprogress"
	"github.com/urfave/cli/v2"

	"github.com/revelaction/sematch/storage"
)

// importCommand loads every *.json serialized document in the directory
// into the store, keyed by file name without extension.
func importCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("import needs exactly one directory argument")
	}
	dir := c.Args().First()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no serialized documents in %s", dir)
	}

	store, err := storage.Open(c.String("db"), storage.MorphologyDerivational, log)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Importing %d documents from %s...\n", len(files), dir)
	uiprogress.Start()
	bar := uiprogress.AddBar(len(files))
	bar.AppendCompleted()
	bar.PrependElapsed()

	ctx := context.Background()
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			uiprogress.Stop()
			return fmt.Errorf("read %s: %w", name, err)
		}
		doc, err := storage.DeserializeDocument(data, storage.MorphologyDerivational)
		if err != nil {
			uiprogress.Stop()
			return fmt.Errorf("decode %s: %w", name, err)
		}
		label := strings.TrimSuffix(name, ".json")
		if err := store.Put(ctx, label, doc); err != nil {
			uiprogress.Stop()
			return fmt.Errorf("store %s: %w", label, err)
		}
		bar.Incr()
	}
	uiprogress.Stop()
	fmt.Println("done")
	return nil
}

func lsCommand(c *cli.Context) error {
	store, err := storage.Open(c.String("db"), storage.MorphologyDerivational, log)
	if err != nil {
		return err
	}
	defer store.Close()

	labels, err := store.Labels(context.Background())
	if err != nil {
		return err
	}
	for _, label := range labels {
		fmt.Println(label)
	}
	return nil
}
