// Package engine runs the link index and the open-document set behind a
// single event loop and answers editor queries against them.
package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/starford/starlinks/internal/linkindex"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/resolver"
	"github.com/starford/starlinks/internal/storage"
)

// Event kinds reported to the listener.
const (
	EventReady   = "index.ready"
	EventCreated = "doc.created"
	EventDeleted = "doc.deleted"
)

// Event describes an index change.
type Event struct {
	Kind    string `json:"-"`
	Slug    string `json:"slug,omitempty"`
	Path    string `json:"path,omitempty"`
	Records int    `json:"records,omitempty"`
}

// Listener is called on the event loop after each index change. It must
// not block or call back into the engine.
type Listener func(Event)

type fileOp int

const (
	opCreate fileOp = iota
	opDelete
	opBarrier
)

type fileEvent struct {
	op   fileOp
	path string
	done chan struct{}
}

// Engine owns the link index and the open documents.
//
// Concurrency model: a single internal event loop (goroutine) owns the index,
// the open-document set and the readiness flag. Public methods submit work
// to the loop through a channel, so no mutexes guard that state. File
// events are applied in arrival order by a second goroutine that reads
// front matter off-loop and posts the result back. The initial build runs
// concurrently with file events; whichever finishes last wins for a slug.
type Engine struct {
	index    *linkindex.Index
	resolver *resolver.Resolver
	logger   *slog.Logger
	listener Listener

	// loop-owned
	docs  map[string]string
	ready bool

	ops      chan func()
	events   chan fileEvent
	readyCh  chan struct{}
	started  atomic.Bool
	building sync.WaitGroup

	stopCh  chan struct{}
	stopped chan struct{}
	drained chan struct{}
	closed  atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithListener registers a listener for index changes.
func WithListener(fn Listener) Option {
	return func(e *Engine) { e.listener = fn }
}

// New creates an engine for the content tree behind store and starts its
// event loop. Call Start to build the index.
func New(project models.Project, store storage.Provider, settings models.Settings, opts ...Option) *Engine {
	e := &Engine{
		logger:  slog.Default(),
		docs:    make(map[string]string),
		ops:     make(chan func()),
		events:  make(chan fileEvent, 256),
		readyCh: make(chan struct{}),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
		drained: make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}

	e.index = linkindex.New(project, store, e.logger)
	e.resolver = resolver.New(settings,
		resolver.WithLogger(e.logger),
		resolver.WithReader(e.readTarget(store)),
	)

	go e.run()
	go e.processEvents()
	return e
}

func (e *Engine) run() {
	defer close(e.stopped)
	for {
		select {
		case <-e.stopCh:
			return
		case op := <-e.ops:
			op()
		}
	}
}

// do runs fn on the loop and waits for it to finish. It reports false when
// the engine is closed.
func (e *Engine) do(fn func()) bool {
	if e.closed.Load() {
		return false
	}
	done := make(chan struct{})
	select {
	case e.ops <- func() { fn(); close(done) }:
	case <-e.stopped:
		return false
	}
	<-done
	return true
}

// Start builds the index in the background. Queries return no result until
// the build has been merged. Only the first call has an effect.
func (e *Engine) Start(ctx context.Context) {
	if e.closed.Load() || !e.started.CompareAndSwap(false, true) {
		return
	}
	e.building.Add(1)
	go func() {
		defer e.building.Done()
		recs, err := e.index.Collect(ctx)
		if err != nil {
			e.logger.Error("engine: index build failed", slog.String("error", err.Error()))
			return
		}
		e.do(func() {
			e.index.Merge(recs)
			e.ready = true
			close(e.readyCh)
			e.logger.Info("engine: index ready", slog.Int("records", e.index.Len()))
			e.emit(Event{Kind: EventReady, Records: e.index.Len()})
		})
	}()
}

// Ready returns a channel closed once the index is built.
func (e *Engine) Ready() <-chan struct{} { return e.readyCh }

// IsReady reports whether the index has been built.
func (e *Engine) IsReady() bool {
	select {
	case <-e.readyCh:
		return true
	default:
		return false
	}
}

// Close stops the event loop. An in-flight build runs to completion first.
func (e *Engine) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.stopCh)
	}
	<-e.stopped
	<-e.drained
	e.building.Wait()
}

func (e *Engine) emit(ev Event) {
	if e.listener != nil {
		e.listener(ev)
	}
}

// readTarget reads a link target, preferring the text of an open document.
// It runs on the loop, inside resolver queries.
func (e *Engine) readTarget(store storage.Provider) resolver.ReadFunc {
	return func(path string) ([]byte, error) {
		if text, ok := e.docs[path]; ok {
			return []byte(text), nil
		}
		rel, err := store.Rel(path)
		if err != nil {
			return nil, err
		}
		return store.Read(rel)
	}
}

// Created reports a new content file at path.
func (e *Engine) Created(path string) {
	e.enqueue(fileEvent{op: opCreate, path: filepath.Clean(path)})
}

// Deleted reports the removal of the file at path.
func (e *Engine) Deleted(path string) {
	e.enqueue(fileEvent{op: opDelete, path: filepath.Clean(path)})
}

var _ linkindex.Sink = (*Engine)(nil)

func (e *Engine) enqueue(ev fileEvent) bool {
	if e.closed.Load() {
		return false
	}
	select {
	case e.events <- ev:
		return true
	case <-e.stopped:
		return false
	}
}

// processEvents applies file events in arrival order.
func (e *Engine) processEvents() {
	defer close(e.drained)
	for {
		select {
		case <-e.stopped:
			return
		case ev := <-e.events:
			switch ev.op {
			case opCreate:
				e.applyCreate(ev.path)
			case opDelete:
				e.applyDelete(ev.path)
			case opBarrier:
				close(ev.done)
			}
		}
	}
}

func (e *Engine) applyCreate(path string) {
	rec, err := e.index.Derive(path)
	if err != nil {
		e.logger.Debug("engine: create skipped",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	e.do(func() {
		e.index.Put(rec)
		e.emit(Event{Kind: EventCreated, Slug: rec.Slug, Path: rec.Path})
	})
}

func (e *Engine) applyDelete(path string) {
	e.do(func() {
		if rec, ok := e.index.OnDelete(path); ok {
			e.emit(Event{Kind: EventDeleted, Slug: rec.Slug, Path: rec.Path})
		}
	})
}

// Sync blocks until every file event reported so far has been applied.
func (e *Engine) Sync() {
	done := make(chan struct{})
	if !e.enqueue(fileEvent{op: opBarrier, done: done}) {
		return
	}
	select {
	case <-done:
	case <-e.drained:
	}
}
