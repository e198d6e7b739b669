package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/pagesift/pagesift/internal/model"
)

// Article is the readable content extracted from one HTML document.
// An empty Markdown field means every strategy came up short.
type Article struct {
	Title    string
	Markdown string
	Author   string
}

// Extractor converts raw HTML into an Article by running strategies in
// priority order: a readability pass first, then a selector-probing
// heuristic pass. Strategies share one signature so the cascade stays an
// ordered list rather than a type hierarchy.
type Extractor struct {
	Min model.Thresholds
}

func New() *Extractor {
	return &Extractor{Min: model.DefaultThresholds()}
}

type strategy func(input []byte, pageURL string) (Article, bool)

// Extract never panics past this boundary; a strategy that blows up on
// malformed markup is treated as a failed strategy and the cascade moves on.
func (e *Extractor) Extract(input []byte, pageURL string) Article {
	for _, s := range []strategy{e.readabilityPass, e.heuristicPass} {
		if a, ok := runStrategy(s, input, pageURL); ok {
			return a
		}
	}
	return Article{}
}

func runStrategy(s strategy, input []byte, pageURL string) (a Article, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a, ok = Article{}, false
		}
	}()
	return s(input, pageURL)
}

// readabilityPass isolates the main article region by text density, converts
// the cleaned fragment to markdown, and accepts the result only when it
// clears the minimum content length.
func (e *Extractor) readabilityPass(input []byte, pageURL string) (Article, bool) {
	parsed, _ := url.Parse(pageURL)
	art, err := readability.FromReader(bytes.NewReader(input), parsed)
	if err != nil {
		return Article{}, false
	}
	md, err := htmltomarkdown.ConvertString(art.Content)
	if err != nil {
		return Article{}, false
	}
	md = strings.TrimSpace(md)
	if len(md) <= e.Min.MinArticleChars {
		return Article{}, false
	}
	author := ""
	if doc, derr := goquery.NewDocumentFromReader(bytes.NewReader(input)); derr == nil {
		author = AuthorFrom(doc)
	}
	return Article{Title: strings.TrimSpace(art.Title), Markdown: md, Author: author}, true
}

// contentSelectors is probed in order; the first selector matching any
// element wins.
var contentSelectors = []string{
	"article",
	`[role="main"]`,
	".content",
	".post-content",
	".entry-content",
	".article-content",
	"main",
	"#content",
	".post-body",
}

var blankRunRe = regexp.MustCompile(`\n\s*\n\s*\n+`)

// heuristicPass is the last resort: strip noise elements, probe for a main
// content container, and convert whatever is left to markdown. It does not
// enforce the minimum length itself; the caller decides whether a short
// result is worth keeping.
func (e *Extractor) heuristicPass(input []byte, pageURL string) (Article, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Article{}, false
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, header, footer, aside, iframe").Remove()

	var container *goquery.Selection
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			container = s
			break
		}
	}
	if container == nil {
		container = doc.Find("body").First()
		if container.Length() == 0 {
			container = doc.Selection
		}
		container.Find(".sidebar, .comments, .related-posts, .navigation, .menu").Remove()
	}

	frag, err := goquery.OuterHtml(container)
	if err != nil {
		return Article{}, false
	}
	md, err := htmltomarkdown.ConvertString(frag)
	if err != nil {
		return Article{}, false
	}
	md = strings.TrimSpace(blankRunRe.ReplaceAllString(md, "\n\n"))
	if md == "" {
		return Article{}, false
	}
	return Article{Title: title, Markdown: md, Author: AuthorFrom(doc)}, true
}

// authorSelectors is probed in order; meta tags are read via their content
// attribute, everything else via text content.
var authorSelectors = []string{
	`meta[name="author"]`,
	`meta[property="article:author"]`,
	`meta[name="twitter:creator"]`,
	".author",
	".byline",
	".post-author",
	`[rel="author"]`,
}

// AuthorFrom returns the first non-empty author found by the shared probe,
// or "" when none of the selectors match.
func AuthorFrom(doc *goquery.Document) string {
	for _, sel := range authorSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		var v string
		if goquery.NodeName(s) == "meta" {
			v = s.AttrOr("content", "")
		} else {
			v = s.Text()
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
