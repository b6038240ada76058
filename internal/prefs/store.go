// Package prefs keeps the signed-in user's preferences. Reads are served from local state;
// writes merge locally right away and reach the document store later, in order, one
// top-level field at a time.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/docstore"
	"github.com/04shr/petzy/internal/session"
)

const (
	// Collection holds one document per user, keyed by normalized username.
	Collection = "users"
	// documentField is the key preferences live under inside the user document.
	documentField = "preferences"
	// DefaultWriteTimeout bounds a single remote write.
	DefaultWriteTimeout = 10 * time.Second
)

// Reason explains why a write did not persist.
type Reason string

const (
	ReasonNoUser     Reason = "no_user"
	ReasonStoreError Reason = "store_error"
	ReasonClosed     Reason = "closed"
	ReasonCanceled   Reason = "canceled"
)

// Result is the outcome of persisting one Update.
type Result struct {
	OK     bool
	Reason Reason
	Err    error
}

// Pending resolves once an Update has been written (or has failed).
type Pending struct {
	done chan struct{}
	res  Result
}

func newPending() *Pending { return &Pending{done: make(chan struct{})} }

func resolved(res Result) *Pending {
	p := newPending()
	p.resolve(res)
	return p
}

func (p *Pending) resolve(res Result) {
	p.res = res
	close(p.done)
}

// Done is closed when the result is available.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the write finishes or ctx ends.
func (p *Pending) Wait(ctx context.Context) Result {
	select {
	case <-p.done:
		return p.res
	case <-ctx.Done():
		return Result{Reason: ReasonCanceled, Err: ctx.Err()}
	}
}

// Sink is what the avatar forwards its mutations to.
type Sink interface {
	Update(p Patch) *Pending
}

type job struct {
	fields  map[string]json.RawMessage
	pending *Pending
}

// Store holds the local preference document for one session.
type Store struct {
	docs    docstore.Store
	sess    session.Context
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	cond   *sync.Cond
	doc    Document
	queue  []job
	closed bool
	done   chan struct{}
}

var _ Sink = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithWriteTimeout bounds each remote write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a store for sess starting from Default and starts its writer goroutine.
// Call Close to stop it.
func New(docs docstore.Store, sess session.Context, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		docs:    docs,
		sess:    sess,
		log:     log.With(zap.Stringer("user", sess)),
		timeout: DefaultWriteTimeout,
		doc:     Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

// Session returns the user this store belongs to.
func (s *Store) Session() session.Context { return s.sess }

// Open fetches the remote document once and replaces local state with it. A user without
// a document gets the default one created remotely. Anonymous sessions stay local.
func (s *Store) Open(ctx context.Context) error {
	if s.sess.IsAnonymous() {
		return nil
	}
	id := s.sess.Identifier()
	raw, err := s.docs.Get(ctx, Collection, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return s.createDefault(ctx, id)
	case err != nil:
		return fmt.Errorf("load preferences for %s: %w", id, err)
	}

	stored := gjson.GetBytes(raw, documentField)
	if !stored.Exists() || !stored.IsObject() {
		defaults, err := json.Marshal(Default())
		if err != nil {
			return fmt.Errorf("encode default preferences: %w", err)
		}
		if err := s.docs.Update(ctx, Collection, id, map[string]json.RawMessage{documentField: defaults}); err != nil {
			return fmt.Errorf("create preferences for %s: %w", id, err)
		}
		s.replace(Default())
		return nil
	}

	doc := Default()
	if err := json.Unmarshal([]byte(stored.Raw), &doc); err != nil {
		return fmt.Errorf("decode preferences for %s: %w", id, err)
	}
	s.replace(doc)
	s.log.Debug("preferences loaded", zap.Int("meshes", len(doc.Meshes)))
	return nil
}

func (s *Store) createDefault(ctx context.Context, id string) error {
	body, err := json.Marshal(map[string]any{documentField: Default()})
	if err != nil {
		return fmt.Errorf("encode default preferences: %w", err)
	}
	if err := s.docs.Set(ctx, Collection, id, body); err != nil {
		return fmt.Errorf("create preferences for %s: %w", id, err)
	}
	s.replace(Default())
	s.log.Info("created default preferences")
	return nil
}

func (s *Store) replace(doc Document) {
	doc = doc.Clone()
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// Snapshot returns a copy of the local document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Update merges p into local state immediately and queues the changed fields for the
// document store. A failed write is logged and reported through the Pending; local state
// is not rolled back.
func (s *Store) Update(p Patch) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.apply(&s.doc)
	if p.Empty() {
		return resolved(Result{OK: true})
	}
	if s.sess.IsAnonymous() {
		return resolved(Result{Reason: ReasonNoUser})
	}
	if s.closed {
		return resolved(Result{Reason: ReasonClosed})
	}
	fields, err := p.encode()
	if err != nil {
		s.log.Error("encode preference patch", zap.Error(err))
		return resolved(Result{Reason: ReasonStoreError, Err: err})
	}
	pending := newPending()
	s.queue = append(s.queue, job{fields: fields, pending: pending})
	s.cond.Signal()
	return pending
}

// Close stops accepting writes, flushes the queue and waits for the writer to exit.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
	<-s.done
}

func (s *Store) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue[0] = job{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		j.pending.resolve(s.persist(j.fields))
	}
}

func (s *Store) persist(fields map[string]json.RawMessage) Result {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	id := s.sess.Identifier()
	err := s.docs.Update(ctx, Collection, id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		err = s.createWith(ctx, id, fields)
	}
	if err != nil {
		s.log.Warn("preference write failed", zap.Strings("fields", fieldNames(fields)), zap.Error(err))
		return Result{Reason: ReasonStoreError, Err: err}
	}
	s.log.Debug("preferences saved", zap.Strings("fields", fieldNames(fields)))
	return Result{OK: true}
}

// createWith writes a fresh user document holding the defaults overlaid with fields.
func (s *Store) createWith(ctx context.Context, id string, fields map[string]json.RawMessage) error {
	base, err := json.Marshal(map[string]any{documentField: Default()})
	if err != nil {
		return err
	}
	body, err := docstore.ApplyFields(base, fields)
	if err != nil {
		return err
	}
	return s.docs.Set(ctx, Collection, id, body)
}

func fieldNames(fields map[string]json.RawMessage) []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	return out
}
