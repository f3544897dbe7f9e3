// Package storage persists annotated documents between runs.
package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/go-crypt/x/blake2b"
	"github.com/rs/zerolog"

	sent "github.com/revelaction/sematch/sentence"
)

const (
	docPrefix         = "doc:"
	fingerprintPrefix = "fp:"
)

// Store persists labeled documents.
type Store interface {
	Put(ctx context.Context, label string, doc *sent.Doc) error
	Get(ctx context.Context, label string) (*sent.Doc, error)
	Delete(ctx context.Context, label string) error
	Labels(ctx context.Context) ([]string, error)
	Close() error
}

// Badger implements Store on a badger key-value database.
type Badger struct {
	db         *badger.DB
	morphology string
	log        zerolog.Logger
}

// Open opens or creates the database at path. An empty path opens an
// in-memory database, useful in tests. morphology is the consuming
// pipeline's mode; documents from the other mode are rejected on both
// reads and writes.
func Open(path, morphology string, log zerolog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}
	return &Badger{db: db, morphology: morphology, log: log}, nil
}

func (b *Badger) Close() error { return b.db.Close() }

// fingerprint is a short content id over the serialized document. An
// unchanged document is not rewritten.
func fingerprint(data []byte) string {
	h, _ := blake2b.New(8, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (b *Badger) Put(ctx context.Context, label string, doc *sent.Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mode := morphologyOf(doc); mode != b.morphology {
		return fmt.Errorf("storage: put %q: %w: morphology mode %q, want %q",
			label, ErrIncompatibleSerialization, mode, b.morphology)
	}
	data, err := SerializeDocument(doc)
	if err != nil {
		return fmt.Errorf("storage: put %q: %w", label, err)
	}
	fp := fingerprint(data)

	return b.db.Update(func(txn *badger.Txn) error {
		if item, err := txn.Get([]byte(fingerprintPrefix + label)); err == nil {
			var existing string
			_ = item.Value(func(v []byte) error {
				existing = string(v)
				return nil
			})
			if existing == fp {
				b.log.Debug().Str("label", label).Msg("document unchanged, skipping write")
				return nil
			}
		}
		if err := txn.Set([]byte(docPrefix+label), data); err != nil {
			return err
		}
		return txn.Set([]byte(fingerprintPrefix+label), []byte(fp))
	})
}

func (b *Badger) Get(ctx context.Context, label string) (*sent.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docPrefix + label))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("storage: get %q: %w", label, err)
	}
	if err != nil {
		return nil, err
	}
	return DeserializeDocument(data, b.morphology)
}

func (b *Badger) Delete(ctx context.Context, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(docPrefix + label)); err != nil {
			return err
		}
		return txn.Delete([]byte(fingerprintPrefix + label))
	})
}

func (b *Badger) Labels(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var labels []string
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(docPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			labels = append(labels, strings.TrimPrefix(key, docPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(labels)
	return labels, nil
}
