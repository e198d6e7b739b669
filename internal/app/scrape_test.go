package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/pagesift/pagesift/internal/fetch"
	"github.com/pagesift/pagesift/internal/model"
	"github.com/pagesift/pagesift/internal/robots"
)

type stubFetcher struct {
	pages    map[string][]byte
	rendered map[string][]byte
	gets     []string
}

func (s *stubFetcher) get(_ context.Context, url string) ([]byte, error) {
	s.gets = append(s.gets, url)
	b, ok := s.pages[url]
	if !ok {
		return nil, errors.New("fetch failed")
	}
	return b, nil
}

func (s *stubFetcher) render(_ context.Context, url string) ([]byte, error) {
	b, ok := s.rendered[url]
	if !ok {
		return nil, fetch.ErrRenderUnavailable
	}
	return b, nil
}

const articleBody = `
<p>Building a data pipeline that survives partial failure takes more than
retries. Every stage needs a clear contract for what it emits when its
upstream misbehaves, and every consumer needs a plan for missing input.</p>
<p>The first principle is isolation. A slow or broken source must never
stall the rest of the batch. Treat each source as independently fallible
and collect whatever succeeded at the end.</p>
<p>The second principle is idempotence. Re-running the pipeline over the
same inputs should produce the same artifact so operators can retry freely.</p>`

func articleHTML(title string) []byte {
	return []byte(`<html><head><title>` + title + `</title>` +
		`<meta name="author" content="Pat Writer"></head>` +
		`<body><article><h1>` + title + `</h1>` + articleBody + `</article></body></html>`)
}

func indexHTML(links ...string) []byte {
	page := `<html><body><main>`
	for _, l := range links {
		page += `<a href="` + l + `">` + l + `</a>`
	}
	page += `</main></body></html>`
	return []byte(page)
}

func newTestApp(t *testing.T, cfg Config, f *stubFetcher) *App {
	t.Helper()
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = time.Millisecond
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(t.TempDir(), "out.json")
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.fetcher = f
	return a
}

func TestScrape_IndexPipeline(t *testing.T) {
	f := &stubFetcher{pages: map[string][]byte{
		"https://example.com/blog":        indexHTML("/blog/2023/a", "/blog/2023/b", "/about"),
		"https://example.com/blog/2023/a": articleHTML("Post A"),
		"https://example.com/blog/2023/b": articleHTML("Post B"),
	}}
	a := newTestApp(t, Config{Sources: []string{"https://example.com/blog"}}, f)

	out := a.Scrape(context.Background())
	if out.TeamID == "" {
		t.Fatalf("team id not stamped")
	}
	if len(out.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out.Items))
	}
	if out.Items[0].Title != "Post A" || out.Items[1].Title != "Post B" {
		t.Fatalf("unexpected titles: %q, %q", out.Items[0].Title, out.Items[1].Title)
	}
	for _, item := range out.Items {
		if item.ContentType != model.TypeBlog {
			t.Fatalf("unexpected content type: %q", item.ContentType)
		}
		if item.SourceURL == "" || item.Content == "" {
			t.Fatalf("item missing fields: %+v", item)
		}
		if item.Author != "Pat Writer" {
			t.Fatalf("unexpected author: %q", item.Author)
		}
	}
}

func TestScrape_MaxPostsCap(t *testing.T) {
	f := &stubFetcher{pages: map[string][]byte{
		"https://example.com/blog":        indexHTML("/blog/2023/a", "/blog/2023/b", "/blog/2023/c"),
		"https://example.com/blog/2023/a": articleHTML("Post A"),
		"https://example.com/blog/2023/b": articleHTML("Post B"),
		"https://example.com/blog/2023/c": articleHTML("Post C"),
	}}
	a := newTestApp(t, Config{Sources: []string{"https://example.com/blog"}, MaxPostsPerSource: 2}, f)

	out := a.Scrape(context.Background())
	if len(out.Items) != 2 {
		t.Fatalf("expected cap of 2, got %d items", len(out.Items))
	}
	for _, u := range f.gets {
		if u == "https://example.com/blog/2023/c" {
			t.Fatalf("post beyond the cap was fetched")
		}
	}
}

func TestScrape_FailedPostIsolated(t *testing.T) {
	f := &stubFetcher{pages: map[string][]byte{
		"https://example.com/blog":        indexHTML("/blog/2023/a", "/blog/2023/b"),
		"https://example.com/blog/2023/a": articleHTML("Post A"),
		// /blog/2023/b missing: its fetch fails
	}}
	a := newTestApp(t, Config{Sources: []string{"https://example.com/blog"}}, f)

	out := a.Scrape(context.Background())
	if len(out.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out.Items))
	}
	if out.Items[0].Title != "Post A" {
		t.Fatalf("unexpected item: %+v", out.Items[0])
	}
}

func TestScrape_FailedSourceIsolated(t *testing.T) {
	f := &stubFetcher{pages: map[string][]byte{
		"https://good.com/essay": articleHTML("Standalone"),
		// bad.com/blog missing entirely
	}}
	a := newTestApp(t, Config{Sources: []string{"https://bad.com/blog", "https://good.com/essay"}}, f)

	out := a.Scrape(context.Background())
	if len(out.Items) != 1 {
		t.Fatalf("expected the healthy source's item, got %d", len(out.Items))
	}
}

func TestScrape_EmbeddedFallback(t *testing.T) {
	indexURL := "https://example.com/blog"
	page := []byte(`<html><body>
<article><h2>Inline Post Title</h2>` + articleBody + `</article>
</body></html>`)
	f := &stubFetcher{pages: map[string][]byte{indexURL: page}}
	a := newTestApp(t, Config{Sources: []string{indexURL}}, f)

	out := a.Scrape(context.Background())
	if len(out.Items) == 0 {
		t.Fatalf("expected embedded posts")
	}
	for _, item := range out.Items {
		if item.SourceURL != indexURL {
			t.Fatalf("embedded post must point at the index page, got %q", item.SourceURL)
		}
	}
}

func TestScrape_SingleArticleSource(t *testing.T) {
	f := &stubFetcher{pages: map[string][]byte{
		"https://example.com/essay": articleHTML("One Essay"),
	}}
	a := newTestApp(t, Config{Sources: []string{"https://example.com/essay"}}, f)

	out := a.Scrape(context.Background())
	if len(out.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out.Items))
	}
	if out.Items[0].Title != "One Essay" || out.Items[0].SourceURL != "https://example.com/essay" {
		t.Fatalf("unexpected item: %+v", out.Items[0])
	}
}

func TestScrape_RenderFallbackOnSparsePage(t *testing.T) {
	indexURL := "https://example.com/blog"
	f := &stubFetcher{
		pages: map[string][]byte{
			indexURL:                          []byte("<html><body><p>loading...</p></body></html>"),
			"https://example.com/blog/2023/a": articleHTML("Post A"),
		},
		rendered: map[string][]byte{
			indexURL: indexHTML("/blog/2023/a"),
		},
	}
	a := newTestApp(t, Config{Sources: []string{indexURL}}, f)

	out := a.Scrape(context.Background())
	if len(out.Items) != 1 {
		t.Fatalf("expected 1 item via rendered index, got %d", len(out.Items))
	}
}

func TestScrape_Idempotent(t *testing.T) {
	f := &stubFetcher{pages: map[string][]byte{
		"https://example.com/blog":        indexHTML("/blog/2023/a"),
		"https://example.com/blog/2023/a": articleHTML("Post A"),
	}}
	a := newTestApp(t, Config{Sources: []string{"https://example.com/blog"}}, f)

	first := a.Scrape(context.Background())
	second := a.Scrape(context.Background())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scrape not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestScrape_RobotsGating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /blog/2023/b\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	indexURL := srv.URL + "/blog"
	f := &stubFetcher{pages: map[string][]byte{
		indexURL:                 indexHTML("/blog/2023/a", "/blog/2023/b"),
		srv.URL + "/blog/2023/a": articleHTML("Post A"),
		srv.URL + "/blog/2023/b": articleHTML("Post B"),
	}}
	a := newTestApp(t, Config{Sources: []string{indexURL}, RespectRobots: true}, f)
	a.robots = &robots.Manager{UserAgent: a.cfg.UserAgent}

	out := a.Scrape(context.Background())
	if len(out.Items) != 1 {
		t.Fatalf("expected robots to exclude one post, got %d items", len(out.Items))
	}
	if out.Items[0].Title != "Post A" {
		t.Fatalf("wrong post survived: %q", out.Items[0].Title)
	}
}

func TestProcessSource_MissingPDF(t *testing.T) {
	a := newTestApp(t, Config{Sources: []string{"missing.pdf"}}, &stubFetcher{})
	items := a.processSource(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if items != nil {
		t.Fatalf("expected no items for unreadable pdf, got %v", items)
	}
}

func TestRun_NoItemsExitsWithSentinel(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.json")
	f := &stubFetcher{pages: map[string][]byte{
		"https://example.com/blog": []byte("<html><body></body></html>"),
	}}
	a := newTestApp(t, Config{Sources: []string{"https://example.com/blog"}, OutputPath: outPath}, f)

	err := a.Run(context.Background())
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}

	// The artifact is still written, with an empty items array.
	b, rerr := os.ReadFile(outPath)
	if rerr != nil {
		t.Fatalf("read output: %v", rerr)
	}
	var out model.ScrapedOutput
	if jerr := json.Unmarshal(b, &out); jerr != nil {
		t.Fatalf("parse output: %v", jerr)
	}
	if out.Items == nil || len(out.Items) != 0 {
		t.Fatalf("expected empty items array, got %+v", out.Items)
	}
}

func TestRun_WritesArtifact(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.json")
	f := &stubFetcher{pages: map[string][]byte{
		"https://example.com/essay": articleHTML("One Essay"),
	}}
	a := newTestApp(t, Config{Sources: []string{"https://example.com/essay"}, TeamID: "team-t", OutputPath: outPath}, f)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if raw["team_id"] != "team-t" {
		t.Fatalf("team_id missing from artifact: %v", raw)
	}
	items, ok := raw["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("items missing from artifact: %v", raw)
	}
}

func TestIsIndexURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://example.com/blog", true},
		{"https://example.com/Blog/archive", true},
		{"https://example.com/posts", true},
		{"https://example.com/resources/guides", true},
		{"https://example.com/essay", false},
		{"https://example.com/", false},
	}
	for _, tc := range cases {
		if got := isIndexURL(tc.url); got != tc.want {
			t.Fatalf("isIndexURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
