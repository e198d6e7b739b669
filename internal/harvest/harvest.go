package harvest

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagesift/pagesift/internal/model"
)

// Harvester discovers same-domain URLs on an index page that are probably
// individual posts. Discovery runs several strategies in fixed priority
// order against one shared result list, so the output preserves
// first-discovery order and never contains duplicates. It is a pure
// function of its inputs.
type Harvester struct {
	Min model.Thresholds
}

func New() *Harvester {
	return &Harvester{Min: model.DefaultThresholds()}
}

// blogContainers are elements that commonly wrap post teasers on index pages.
var blogContainers = []string{
	"article", ".post", ".blog-post", ".entry",
	".card", ".grid-item", ".blog-item",
	`[class*="post"]`, `[class*="blog"]`, `[class*="article"]`,
	`[class*="card"]`, `[class*="grid"]`,
}

// containerKeywords drive the class-substring match of the fourth strategy.
var containerKeywords = []string{"post", "blog", "article", "content", "grid", "card", "item"}

// DiscoverPostURLs returns the ordered, deduplicated list of absolute URLs
// on the page judged likely to be posts.
func (h *Harvester) DiscoverPostURLs(input []byte, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string
	add := func(href string) {
		abs := resolve(base, href)
		if abs == "" || seen[abs] {
			return
		}
		if !h.isLikelyPost(abs, base) {
			return
		}
		seen[abs] = true
		urls = append(urls, abs)
	}
	addAnchors := func(s *goquery.Selection) {
		s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			add(a.AttrOr("href", ""))
		})
	}

	// 1) every anchor in document order
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		add(a.AttrOr("href", ""))
	})

	// 2) anchors inside known blog containers
	for _, sel := range blogContainers {
		doc.Find(sel).Each(func(_ int, c *goquery.Selection) {
			addAnchors(c)
		})
	}

	// 3) anchors tied to headings: wrapping anchor, or up to three anchor
	// siblings following the heading
	doc.Find("h1, h2, h3, h4").Each(func(_ int, head *goquery.Selection) {
		if parent := head.ParentsFiltered("a[href]").First(); parent.Length() > 0 {
			add(parent.AttrOr("href", ""))
		}
		found := 0
		for sib := head.Next(); sib.Length() > 0 && found < 3; sib = sib.Next() {
			if goquery.NodeName(sib) != "a" {
				continue
			}
			if href, ok := sib.Attr("href"); ok {
				add(href)
				found++
			}
		}
	})

	// 4) anchors inside divs/sections whose class names hint at content
	doc.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		class := strings.ToLower(s.AttrOr("class", ""))
		if class == "" {
			return
		}
		for _, kw := range containerKeywords {
			if strings.Contains(class, kw) {
				addAnchors(s)
				return
			}
		}
	})

	return urls
}

// resolve turns href into an absolute URL against base. Fragment-only and
// unparseable links resolve to "".
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// staticExtensions anywhere in the path mark an asset, not a post.
var staticExtensions = []string{".css", ".js", ".png", ".jpg", ".gif", ".ico", ".xml", ".json"}

// adminPaths are rejected as path substrings.
var adminPaths = []string{"/wp-admin/", "/admin/", "/api/", "/login", "/register"}

// navigationPaths is rejected by exact path equality only (after trimming a
// trailing slash), so a deeper subpath such as /blog/course-design survives
// the denylist and is judged on its own depth.
var navigationPaths = []string{
	"/course", "/book", "/about", "/contact", "/privacy", "/terms",
	"/login", "/signup", "/register", "/checkout", "/cart", "/pricing",
	"/explore", "/tutorial", "/free-tutorial", "/help", "/support",
}

// IsLikelyPost reports whether candidate looks like an individual post
// relative to baseURL.
func (h *Harvester) IsLikelyPost(candidate, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return h.isLikelyPost(candidate, base)
}

func (h *Harvester) isLikelyPost(candidate string, base *url.URL) bool {
	if strings.HasPrefix(candidate, "#") {
		return false
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Host != base.Host {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, ext := range staticExtensions {
		if strings.Contains(path, ext) {
			return false
		}
	}
	for _, p := range adminPaths {
		if strings.Contains(path, p) {
			return false
		}
	}
	for _, nav := range navigationPaths {
		if strings.TrimSuffix(path, "/") == nav {
			return false
		}
	}

	basePath := strings.TrimSuffix(base.Path, "/")
	urlPath := strings.TrimSuffix(u.Path, "/")
	if len(urlPath) <= len(basePath) || urlPath == basePath {
		return false
	}

	hasBlogSegment := strings.Contains(path, "/blog/")
	if hasBlogSegment && len(urlPath) > len(basePath) {
		return true
	}
	if countSegments(path) >= h.Min.MinPathSegments && !containsAny(path, navigationPaths) {
		return true
	}
	return false
}

func countSegments(path string) int {
	n := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CountAnchors reports how many hyperlinks the page carries. A very low
// count on a fetched page suggests client-side rendering and triggers the
// rendering fetch fallback upstream.
func CountAnchors(input []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return 0
	}
	return doc.Find("a[href]").Length()
}
