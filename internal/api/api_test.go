package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/starlinks/internal/engine"
	"github.com/starford/starlinks/internal/models"
	"github.com/starford/starlinks/internal/storage"
	"github.com/starford/starlinks/internal/testutil"
)

var siteFiles = map[string]string{
	"guide.md":         "---\ntitle: Guide\ndescription: Getting started\n---\n# Install\n## Usage\n",
	"ref/api.md":       "# API\n",
	"_drafts/wip.md":   "# WIP\n",
	"reference/cli.md": "---\ntitle: CLI\n---\n",
}

type testBed struct {
	store  *storage.FS
	eng    *engine.Engine
	svc    *Service
	router http.Handler
}

// testEnv sets up a temp content tree, a started engine and the router.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) *testBed {
	t.Helper()
	tb := newTestBed(t, authToken != "", authToken, nil)
	tb.eng.Start(context.Background())
	select {
	case <-tb.eng.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("index not ready")
	}
	return tb
}

func newTestBed(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) *testBed {
	t.Helper()
	store := testutil.ContentTree(t, siteFiles)
	eng := engine.New(models.Project{TrailingSlash: models.TrailingSlashIgnore}, store, models.Settings{},
		engine.WithLogger(testutil.Logger()))
	t.Cleanup(eng.Close)

	svc := NewService(eng, store.Root())
	return &testBed{
		store:  store,
		eng:    eng,
		svc:    svc,
		router: NewRouter(svc, authEnabled, token, sseHandler),
	}
}

func (tb *testBed) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	tb.router.ServeHTTP(w, req)
	return w
}

func (tb *testBed) open(t *testing.T, path, text string) {
	t.Helper()
	w := tb.do(t, http.MethodPut, "/documents", DocumentRequest{Path: path, Text: text})
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestPutDocument_ResolvesRelativePath(t *testing.T) {
	tb := testEnv(t, "")

	w := tb.do(t, http.MethodPut, "/documents", DocumentRequest{Path: "ref/api.md", Text: "x"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp DocumentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if want := testutil.Abs(t, tb.store, "ref/api.md"); resp.Path != want {
		t.Errorf("path = %q, want %q", resp.Path, want)
	}
}

func TestPutDocument_Validation(t *testing.T) {
	tb := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPut, "/documents", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	tb.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", w.Code)
	}

	w = tb.do(t, http.MethodPut, "/documents", DocumentRequest{Text: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty path = %d, want 400", w.Code)
	}
}

func TestCompletion(t *testing.T) {
	tb := testEnv(t, "")
	tb.open(t, "ref/api.md", "See [guide](/gui")

	w := tb.do(t, http.MethodPost, "/completion", PositionRequest{Path: "ref/api.md", Line: 0, Character: 16})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CompletionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Items) != 2 {
		t.Fatalf("items = %+v, want 2", resp.Items)
	}
	if resp.Items[0].Label != "/guide" || resp.Items[0].Detail != "Guide" {
		t.Errorf("first item = %+v, want /guide", resp.Items[0])
	}
	for _, it := range resp.Items {
		if it.Label == "/ref/api" {
			t.Error("completion offers the current document")
		}
	}
}

func TestCompletion_Fragments(t *testing.T) {
	tb := testEnv(t, "")
	tb.open(t, "ref/api.md", "[g](/guide#us")

	w := tb.do(t, http.MethodPost, "/completion", PositionRequest{Path: "ref/api.md", Character: 13})
	var resp CompletionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	want := []string{"_top", "install", "usage"}
	if len(resp.Items) != len(want) {
		t.Fatalf("items = %+v", resp.Items)
	}
	for i, it := range resp.Items {
		if it.NewText != want[i] {
			t.Errorf("items[%d].NewText = %q, want %q", i, it.NewText, want[i])
		}
	}
}

func TestCompletion_OutsideLinkIsEmpty(t *testing.T) {
	tb := testEnv(t, "")
	tb.open(t, "ref/api.md", "plain text")

	w := tb.do(t, http.MethodPost, "/completion", PositionRequest{Path: "ref/api.md", Character: 5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CompletionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("items = %#v, want empty list", resp.Items)
	}
}

func TestCompletion_InvalidPosition(t *testing.T) {
	tb := testEnv(t, "")

	w := tb.do(t, http.MethodPost, "/completion", PositionRequest{Path: "ref/api.md", Line: -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative line = %d, want 400", w.Code)
	}
}

func TestDefinitionAndHover(t *testing.T) {
	tb := testEnv(t, "")
	tb.open(t, "ref/api.md", "[g](/guide)")

	w := tb.do(t, http.MethodPost, "/definition", PositionRequest{Path: "ref/api.md", Character: 6})
	if w.Code != http.StatusOK {
		t.Fatalf("definition status = %d", w.Code)
	}
	var loc models.Location
	_ = json.Unmarshal(w.Body.Bytes(), &loc)
	if want := testutil.Abs(t, tb.store, "guide.md"); loc.Path != want {
		t.Errorf("definition path = %q, want %q", loc.Path, want)
	}

	w = tb.do(t, http.MethodPost, "/hover", PositionRequest{Path: "ref/api.md", Character: 6})
	if w.Code != http.StatusOK {
		t.Fatalf("hover status = %d", w.Code)
	}
	var hv models.Hover
	_ = json.Unmarshal(w.Body.Bytes(), &hv)
	if hv.Markdown != "### Guide\n\nGetting started" {
		t.Errorf("hover = %q", hv.Markdown)
	}
}

func TestDefinition_NotFound(t *testing.T) {
	tb := testEnv(t, "")
	tb.open(t, "ref/api.md", "[g](/missing)")

	w := tb.do(t, http.MethodPost, "/definition", PositionRequest{Path: "ref/api.md", Character: 6})
	if w.Code != http.StatusNotFound {
		t.Errorf("unindexed target = %d, want 404", w.Code)
	}
	w = tb.do(t, http.MethodPost, "/hover", PositionRequest{Path: "ref/api.md", Character: 6})
	if w.Code != http.StatusNotFound {
		t.Errorf("hover unindexed target = %d, want 404", w.Code)
	}
}

func TestLinks(t *testing.T) {
	tb := testEnv(t, "")
	tb.open(t, "ref/api.md", "[a](/guide) [b](/nope)\n\n[c]: /reference/cli")

	w := tb.do(t, http.MethodPost, "/links", LinksRequest{Path: "ref/api.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp LinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Links) != 2 {
		t.Fatalf("links = %+v, want 2", resp.Links)
	}
	if want := testutil.Abs(t, tb.store, "reference/cli.md"); resp.Links[1].Target != want {
		t.Errorf("links[1].Target = %q, want %q", resp.Links[1].Target, want)
	}
}

func TestCloseDocument(t *testing.T) {
	tb := testEnv(t, "")
	tb.open(t, "ref/api.md", "[a](/guide)")

	w := tb.do(t, http.MethodDelete, "/documents?path=ref/api.md", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("close status = %d", w.Code)
	}
	w = tb.do(t, http.MethodPost, "/links", LinksRequest{Path: "ref/api.md"})
	var resp LinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Links) != 0 {
		t.Errorf("links after close = %+v", resp.Links)
	}

	w = tb.do(t, http.MethodDelete, "/documents", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("close without path = %d, want 400", w.Code)
	}
}

func TestSlugs(t *testing.T) {
	tb := testEnv(t, "")

	w := tb.do(t, http.MethodGet, "/slugs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SlugsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3 (drafts excluded)", resp.Total)
	}
	want := []string{"/guide", "/ref/api", "/reference/cli"}
	for i, rec := range resp.Slugs {
		if rec.Slug != want[i] {
			t.Errorf("slugs[%d] = %q, want %q", i, rec.Slug, want[i])
		}
	}
}

func TestFragments(t *testing.T) {
	tb := testEnv(t, "")

	w := tb.do(t, http.MethodGet, "/fragments?slug=/guide", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp FragmentsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Fragments) != 3 || resp.Fragments[0].Slug != models.TopFragment {
		t.Errorf("fragments = %+v", resp.Fragments)
	}

	w = tb.do(t, http.MethodGet, "/fragments?slug=/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown slug = %d, want 404", w.Code)
	}
	w = tb.do(t, http.MethodGet, "/fragments", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing slug = %d, want 400", w.Code)
	}
}

func TestNotReady(t *testing.T) {
	tb := newTestBed(t, false, "", nil)
	tb.open(t, "ref/api.md", "[g](/")

	for _, tc := range []struct {
		method, target string
		body           any
	}{
		{http.MethodPost, "/completion", PositionRequest{Path: "ref/api.md", Character: 5}},
		{http.MethodPost, "/definition", PositionRequest{Path: "ref/api.md", Character: 5}},
		{http.MethodPost, "/links", LinksRequest{Path: "ref/api.md"}},
		{http.MethodGet, "/slugs", nil},
		{http.MethodGet, "/fragments?slug=/guide", nil},
	} {
		w := tb.do(t, tc.method, tc.target, tc.body)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s = %d, want 503", tc.method, tc.target, w.Code)
		}
	}
}

func TestHealthRoutes(t *testing.T) {
	tb := newTestBed(t, false, "", nil)
	health := HealthRoutes(tb.svc)

	probe := func(path string) int {
		w := httptest.NewRecorder()
		health.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	if code := probe("/live"); code != http.StatusOK {
		t.Errorf("live = %d, want 200", code)
	}
	if code := probe("/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("ready before build = %d, want 503", code)
	}

	tb.eng.Start(context.Background())
	<-tb.eng.Ready()
	if code := probe("/ready"); code != http.StatusOK {
		t.Errorf("ready after build = %d, want 200", code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tb := testEnv(t, "secret123")

	w := tb.do(t, http.MethodGet, "/slugs", nil, "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed slugs = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	tb := testEnv(t, "secret123")

	w := tb.do(t, http.MethodGet, "/slugs", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	tb := testEnv(t, "secret123")

	w := tb.do(t, http.MethodGet, "/slugs", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	tb := testEnv(t, "")

	w := tb.do(t, http.MethodGet, "/slugs", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// stubSSE writes headers and blocks until the request context is done.
var stubSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	tb := newTestBed(t, true, "secret", stubSSE)

	w := tb.do(t, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	tb := newTestBed(t, true, "tok", stubSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	tb.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
