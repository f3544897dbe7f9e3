// Package pool runs several manager replicas behind one facade so
// topic matching requests can be served in parallel. Documents are
// fanned out to every replica; queries go round robin.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/revelaction/sematch/manager"
	sent "github.com/revelaction/sematch/sentence"
	"github.com/revelaction/sematch/topic"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pool: closed")

	// ErrWaitTimeout is returned when the replicas do not finish a
	// broadcast operation within the wait budget. The replicas are out
	// of sync afterwards; the coordinator is unusable.
	ErrWaitTimeout = errors.New("pool: worker wait timeout")
)

// DefaultWaitTimeout bounds every broadcast to the replicas.
const DefaultWaitTimeout = 60 * time.Second

type replica struct {
	mu sync.Mutex
	m  *manager.Manager
}

// Coordinator owns the replicas and the worker pool dispatching to
// them.
type Coordinator struct {
	replicas []*replica
	workers  *ants.Pool
	next     atomic.Uint64
	timeout  time.Duration
	closed   atomic.Bool
	broken   atomic.Bool
	log      zerolog.Logger
}

// New builds n manager replicas with identical options. n defaults to
// 1 when not positive.
func New(n int, timeout time.Duration, log zerolog.Logger, opts ...manager.Option) (*Coordinator, error) {
	if n < 1 {
		n = 1
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	workers, err := ants.NewPool(n)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{workers: workers, timeout: timeout, log: log}
	for i := 0; i < n; i++ {
		m, err := manager.New(opts...)
		if err != nil {
			workers.Release()
			return nil, err
		}
		c.replicas = append(c.replicas, &replica{m: m})
	}
	return c, nil
}

func (c *Coordinator) usable() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.broken.Load() {
		return ErrWaitTimeout
	}
	return nil
}

// broadcast applies fn to every replica in parallel and waits for all
// of them, bounded by the wait budget.
func (c *Coordinator) broadcast(fn func(*manager.Manager) error) error {
	if err := c.usable(); err != nil {
		return err
	}
	errs := make([]error, len(c.replicas))
	var wg sync.WaitGroup
	for i, r := range c.replicas {
		i, r := i, r
		wg.Add(1)
		submitErr := c.workers.Submit(func() {
			defer wg.Done()
			r.mu.Lock()
			defer r.mu.Unlock()
			errs[i] = fn(r.m)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return errors.Join(errs...)
	case <-time.After(c.timeout):
		c.broken.Store(true)
		c.log.Error().Dur("timeout", c.timeout).Msg("replicas did not finish in time")
		return ErrWaitTimeout
	}
}

// pick returns the next replica round robin.
func (c *Coordinator) pick() *replica {
	n := c.next.Add(1)
	return c.replicas[int(n-1)%len(c.replicas)]
}

func (c *Coordinator) RegisterDocument(label string, doc *sent.Doc) error {
	return c.broadcast(func(m *manager.Manager) error {
		return m.RegisterDocument(label, doc)
	})
}

func (c *Coordinator) RegisterSerializedDocument(data []byte, label string) error {
	return c.broadcast(func(m *manager.Manager) error {
		return m.RegisterSerializedDocument(data, label)
	})
}

func (c *Coordinator) RemoveDocument(label string) error {
	return c.broadcast(func(m *manager.Manager) error {
		return m.RemoveDocument(label)
	})
}

func (c *Coordinator) RemoveAllDocuments() error {
	return c.broadcast(func(m *manager.Manager) error {
		m.RemoveAllDocuments()
		return nil
	})
}

// DocumentLabels reads from a single replica; all replicas carry the
// same corpus.
func (c *Coordinator) DocumentLabels() ([]string, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	r := c.pick()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m.DocumentLabels(), nil
}

// TopicMatch serves the query on one replica.
func (c *Coordinator) TopicMatch(queryDoc *sent.Doc) ([]*topic.TopicMatch, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	type answer struct {
		results []*topic.TopicMatch
		err     error
	}
	r := c.pick()
	ch := make(chan answer, 1)
	submitErr := c.workers.Submit(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		results, err := r.m.TopicMatch(queryDoc)
		ch <- answer{results: results, err: err}
	})
	if submitErr != nil {
		return nil, submitErr
	}
	select {
	case a := <-ch:
		return a.results, a.err
	case <-time.After(c.timeout):
		c.broken.Store(true)
		c.log.Error().Dur("timeout", c.timeout).Msg("topic match did not finish in time")
		return nil, ErrWaitTimeout
	}
}

// TopicMatchReturningDictionaries serves the query on one replica and
// renders the results.
func (c *Coordinator) TopicMatchReturningDictionaries(queryDoc *sent.Doc, queryText string) ([]topic.Dictionary, error) {
	results, err := c.TopicMatch(queryDoc)
	if err != nil {
		return nil, err
	}
	return topic.Dictionaries(queryText, results), nil
}

func (c *Coordinator) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.workers.Release()
}
