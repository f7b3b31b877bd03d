package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/starford/starlinks/internal/linkindex"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/storage"
	"github.com/starford/starlinks/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

var siteFiles = map[string]string{
	"guide.md": "---\ntitle: Guide\ndescription: Getting started\n---\n# Install\n",
	"ref.md":   "# Reference\n",
}

func newEngine(t *testing.T, files map[string]string, opts ...Option) (*Engine, *storage.FS) {
	t.Helper()
	store := testutil.ContentTree(t, files)
	opts = append([]Option{WithLogger(testutil.Logger())}, opts...)
	e := New(models.Project{TrailingSlash: models.TrailingSlashIgnore}, store, models.Settings{UseConsistentLocale: true}, opts...)
	t.Cleanup(e.Close)
	return e, store
}

func waitReady(t *testing.T, e *Engine) {
	t.Helper()
	select {
	case <-e.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("index not ready")
	}
}

func TestEngine_NoResultBeforeReady(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	ref := testutil.Abs(t, store, "ref.md")
	e.OpenDocument(ref, "[x](")

	if e.IsReady() {
		t.Fatal("engine ready before Start")
	}
	if items := e.Completion(ref, models.Position{Character: 4}); items != nil {
		t.Errorf("Completion before ready = %v", items)
	}
	if got := e.Slugs(); got != nil {
		t.Errorf("Slugs before ready = %v", got)
	}
	if _, ok := e.Fragments("/guide"); ok {
		t.Error("Fragments before ready should fail")
	}
}

func TestEngine_CompletionEndToEnd(t *testing.T) {
	log := &eventLog{}
	e, store := newEngine(t, siteFiles, WithListener(log.record))
	e.Start(context.Background())
	waitReady(t, e)

	ref := testutil.Abs(t, store, "ref.md")
	e.OpenDocument(ref, "See [x](")

	items := e.Completion(ref, models.Position{Character: 8})
	var guide *models.CompletionItem
	for i := range items {
		if items[i].Label == "/guide" {
			guide = &items[i]
		}
		if items[i].Label == "/ref" {
			t.Error("completion offers the current document")
		}
	}
	if guide == nil || guide.Detail != "Guide" {
		t.Fatalf("completion = %+v, want /guide with detail Guide", items)
	}

	e.UpdateDocument(ref, "See [x](/guide#")
	items = e.Completion(ref, models.Position{Character: 15})
	if len(items) != 2 || items[0].NewText != "_top" || items[1].NewText != "install" {
		t.Errorf("fragment completion = %+v", items)
	}

	if kinds := log.kinds(); len(kinds) != 1 || kinds[0] != EventReady {
		t.Errorf("events = %v, want [index.ready]", kinds)
	}
}

func TestEngine_ClosedDocumentHasNoResults(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	e.Start(context.Background())
	waitReady(t, e)

	ref := testutil.Abs(t, store, "ref.md")
	e.OpenDocument(ref, "[a](/guide)")
	if links := e.Links(ref); len(links) != 1 {
		t.Fatalf("Links = %+v, want 1", links)
	}
	e.CloseDocument(ref)
	if links := e.Links(ref); links != nil {
		t.Errorf("Links after close = %+v", links)
	}
	if _, ok := e.Hover(ref, models.Position{Character: 5}); ok {
		t.Error("Hover on closed document should be empty")
	}
}

func TestEngine_DefinitionAndHover(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	e.Start(context.Background())
	waitReady(t, e)

	ref := testutil.Abs(t, store, "ref.md")
	e.OpenDocument(ref, "[a](/guide)")

	loc, ok := e.Definition(ref, models.Position{Character: 6})
	if !ok || loc.Path != testutil.Abs(t, store, "guide.md") {
		t.Errorf("Definition = %+v, %v", loc, ok)
	}
	h, ok := e.Hover(ref, models.Position{Character: 6})
	if !ok || h.Markdown != "### Guide\n\nGetting started" {
		t.Errorf("Hover = %+v, %v", h, ok)
	}
}

func TestEngine_CreatedAndDeleted(t *testing.T) {
	log := &eventLog{}
	e, store := newEngine(t, siteFiles, WithListener(log.record))
	e.Start(context.Background())
	waitReady(t, e)

	_ = store.Write("new.md", []byte("---\ntitle: New\n---\n"))
	abs := testutil.Abs(t, store, "new.md")

	e.Created(abs)
	e.Sync()
	rec, ok := e.Lookup("/new")
	if !ok || rec.Title != "New" {
		t.Fatalf("Lookup after create = %+v, %v", rec, ok)
	}

	e.Deleted(abs)
	e.Sync()
	if _, ok := e.Lookup("/new"); ok {
		t.Error("record present after delete")
	}

	want := []string{EventReady, EventCreated, EventDeleted}
	got := log.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEngine_EventsAppliedInArrivalOrder(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	e.Start(context.Background())
	waitReady(t, e)

	_ = store.Write("tmp.md", []byte(""))
	abs := testutil.Abs(t, store, "tmp.md")
	e.Created(abs)
	e.Deleted(abs)
	e.Sync()

	if _, ok := e.Lookup("/tmp"); ok {
		t.Error("create followed by delete left a record behind")
	}
}

func TestEngine_IgnoresNonContentEvents(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	e.Start(context.Background())
	waitReady(t, e)

	_ = store.Write("_partial.md", []byte(""))
	e.Created(testutil.Abs(t, store, "_partial.md"))
	e.Deleted(testutil.Abs(t, store, "never-indexed.md"))
	e.Sync()

	if n := len(e.Slugs()); n != 2 {
		t.Errorf("len(Slugs) = %d, want 2", n)
	}
}

func TestEngine_FragmentsPreferOpenText(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	e.Start(context.Background())
	waitReady(t, e)

	guide := testutil.Abs(t, store, "guide.md")
	e.OpenDocument(guide, "# Unsaved\n")

	frags, ok := e.Fragments("/guide")
	if !ok || len(frags) != 2 || frags[1].Slug != "unsaved" {
		t.Errorf("Fragments = %+v, %v", frags, ok)
	}
}

func TestEngine_QueriesWithCallerText(t *testing.T) {
	e, store := newEngine(t, siteFiles)

	ref := testutil.Abs(t, store, "ref.md")
	if got := e.LinksFor(ref, "[a](/guide)"); got != nil {
		t.Errorf("LinksFor before ready = %+v", got)
	}

	e.Start(context.Background())
	waitReady(t, e)

	e.OpenDocument(ref, "[b](/missing)")

	links := e.LinksFor(ref, "[a](/guide)")
	if len(links) != 1 || links[0].Target != testutil.Abs(t, store, "guide.md") {
		t.Errorf("LinksFor = %+v", links)
	}
	if _, ok := e.DefinitionFor(ref, "[a](/guide)", models.Position{Character: 5}); !ok {
		t.Error("DefinitionFor: no target")
	}
	if h, ok := e.HoverFor(ref, "[a](/guide)", models.Position{Character: 5}); !ok || h.Markdown != "### Guide\n\nGetting started" {
		t.Errorf("HoverFor = %+v, %v", h, ok)
	}
	if items := e.CompletionFor(ref, "[x](/gu", models.Position{Character: 7}); len(items) != 1 || items[0].Label != "/guide" {
		t.Errorf("CompletionFor = %+v", items)
	}

	// The open text is untouched.
	if got := e.Links(ref); len(got) != 0 {
		t.Errorf("open document links = %+v, want none", got)
	}

	// A path that was never opened can still be queried with its text.
	other := testutil.Abs(t, store, "guide.md")
	if got := e.LinksFor(other, "[r](/ref)"); len(got) != 1 {
		t.Errorf("LinksFor unopened = %+v", got)
	}
}

func TestEngine_WithWatcher(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	e.Start(context.Background())
	waitReady(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = linkindex.Watch(ctx, store.Root(), e, testutil.Logger())
	}()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	page := filepath.Join(store.Root(), "watched.md")
	_ = os.WriteFile(page, []byte("---\ntitle: Watched\n---\n"), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if rec, ok := e.Lookup("/watched"); ok && rec.Title == "Watched" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watched page not indexed")
		}
		time.Sleep(50 * time.Millisecond)
	}

	_ = os.Remove(page)
	deadline = time.Now().Add(5 * time.Second)
	for {
		if _, ok := e.Lookup("/watched"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("removed page still indexed")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestEngine_CloseIsIdempotent(t *testing.T) {
	e, store := newEngine(t, siteFiles)
	e.Start(context.Background())
	e.Close()
	e.Close()

	ref := testutil.Abs(t, store, "ref.md")
	e.OpenDocument(ref, "[x](")
	e.Created(ref)
	e.Sync()
	if items := e.Completion(ref, models.Position{Character: 4}); items != nil {
		t.Errorf("Completion after close = %v", items)
	}
	e.Start(context.Background())
}
