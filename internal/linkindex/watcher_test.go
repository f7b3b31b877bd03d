package linkindex

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/starlinks/internal/testutil"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Created(path string) { s.add("created:" + path) }
func (s *recordingSink) Deleted(path string) { s.add("deleted:" + path) }

func (s *recordingSink) add(e string) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) has(e string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, got := range s.events {
		if got == e {
			return true
		}
	}
	return false
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// startWatch runs Watch until the test ends.
func startWatch(t *testing.T, root string, sink Sink) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Watch(ctx, root, sink, testutil.Logger()); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_CreateModifyDelete(t *testing.T) {
	store := testutil.ContentTree(t, nil)
	root := store.Root()
	sink := &recordingSink{}
	startWatch(t, root, sink)

	page := filepath.Join(root, "new.md")
	_ = os.WriteFile(page, []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return sink.has("created:" + page)
	}, "create not reported")

	before := len(sink.snapshot())
	f, err := os.OpenFile(page, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("\nmore")
	_ = f.Close()

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		evs := sink.snapshot()[before:]
		for i := 0; i+1 < len(evs); i++ {
			if evs[i] == "deleted:"+page && evs[i+1] == "created:"+page {
				return true
			}
		}
		return false
	}, "modify not reported as delete then create")

	_ = os.Remove(page)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		evs := sink.snapshot()
		return len(evs) > 0 && evs[len(evs)-1] == "deleted:"+page
	}, "remove not reported")
}

func TestWatcher_NewDirectory(t *testing.T) {
	store := testutil.ContentTree(t, nil)
	root := store.Root()
	sink := &recordingSink{}
	startWatch(t, root, sink)

	dir := filepath.Join(root, "guides")
	_ = os.MkdirAll(dir, 0o755)
	time.Sleep(200 * time.Millisecond)
	page := filepath.Join(dir, "start.mdx")
	_ = os.WriteFile(page, []byte("# Start"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return sink.has("created:" + page)
	}, "page in new directory not reported")
}

func TestWatcher_IgnoresNonPages(t *testing.T) {
	store := testutil.ContentTree(t, nil)
	root := store.Root()
	sink := &recordingSink{}
	startWatch(t, root, sink)

	_ = os.WriteFile(filepath.Join(root, "_partial.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "404.md"), []byte("x"), 0o644)
	page := filepath.Join(root, "real.md")
	_ = os.WriteFile(page, []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return sink.has("created:" + page)
	}, "page not reported")

	// Let any straggling events arrive.
	time.Sleep(settleDelay * 3)
	for _, e := range sink.snapshot() {
		if e != "created:"+page && e != "deleted:"+page {
			t.Errorf("unexpected event %q", e)
		}
	}
}
