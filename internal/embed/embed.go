package embed

import (
	"bytes"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/pagesift/pagesift/internal/model"
)

// Detector segments an index page into post-like records when link
// harvesting found no per-post URLs. Three strategies run in order and the
// first one that yields anything wins: article-like elements, heading-driven
// segmentation, then substantial-text containers as a best-effort last
// resort. Every produced item points back at the index URL since the posts
// have no URLs of their own.
type Detector struct {
	Min model.Thresholds
}

func New() *Detector {
	return &Detector{Min: model.DefaultThresholds()}
}

var articleSelectors = []string{
	"article", ".post", ".blog-post", ".entry",
	`[class*="post"]`, `[class*="blog"]`, `[class*="article"]`,
}

// navKeywords disqualify headings and container prefixes that belong to
// page chrome rather than content.
var headingNavKeywords = []string{"blog", "menu", "navigation", "header"}
var containerNavKeywords = []string{"navigation", "menu", "footer", "header"}

// ExtractEmbeddedPosts returns the post-like records found on the page, or
// nil when no strategy produced anything.
func (d *Detector) ExtractEmbeddedPosts(input []byte, baseURL string) []model.ContentItem {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return nil
	}

	if posts := d.fromArticleElements(doc, baseURL); len(posts) > 0 {
		return posts
	}
	if posts := d.fromHeadings(doc, baseURL); len(posts) > 0 {
		return posts
	}
	return d.fromSubstantialDivs(doc, baseURL)
}

func (d *Detector) fromArticleElements(doc *goquery.Document, baseURL string) []model.ContentItem {
	var posts []model.ContentItem
	for _, sel := range articleSelectors {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			if item, ok := d.postFromElement(el, baseURL); ok {
				posts = append(posts, item)
			}
		})
	}
	return posts
}

func (d *Detector) postFromElement(el *goquery.Selection, baseURL string) (model.ContentItem, bool) {
	title := strings.TrimSpace(el.Find("h1, h2, h3, h4").First().Text())
	if len(title) < d.Min.MinEmbedTitleChars {
		return model.ContentItem{}, false
	}
	md, ok := toMarkdown(el)
	if !ok || len(md) < d.Min.MinArticleChars {
		return model.ContentItem{}, false
	}
	author := strings.TrimSpace(el.Find(`.author, .byline, [class*="author"]`).First().Text())
	return model.ContentItem{
		Title:       title,
		Content:     md,
		ContentType: model.TypeBlog,
		SourceURL:   baseURL,
		Author:      author,
	}, true
}

// fromHeadings treats each substantial top-level heading as a post title and
// collects the sibling nodes that follow it, up to the next qualifying
// heading.
func (d *Detector) fromHeadings(doc *goquery.Document, baseURL string) []model.ContentItem {
	var posts []model.ContentItem
	doc.Find("h1, h2, h3").Each(func(_ int, head *goquery.Selection) {
		title := strings.TrimSpace(head.Text())
		if len(title) <= d.Min.MinHeadingChars {
			return
		}
		lower := strings.ToLower(title)
		for _, kw := range headingNavKeywords {
			if strings.Contains(lower, kw) {
				return
			}
		}
		if item, ok := d.postFromHeading(head, title, baseURL); ok {
			posts = append(posts, item)
		}
	})
	return posts
}

func (d *Detector) postFromHeading(head *goquery.Selection, title, baseURL string) (model.ContentItem, bool) {
	var parts []string
	for sib := head.Next(); sib.Length() > 0; sib = sib.Next() {
		name := goquery.NodeName(sib)
		if (name == "h1" || name == "h2" || name == "h3") &&
			len(strings.TrimSpace(sib.Text())) > d.Min.MinHeadingChars {
			break
		}
		if frag, err := goquery.OuterHtml(sib); err == nil {
			parts = append(parts, frag)
		}
	}
	if len(parts) == 0 {
		return model.ContentItem{}, false
	}
	md, err := htmltomarkdown.ConvertString(strings.Join(parts, ""))
	if err != nil {
		return model.ContentItem{}, false
	}
	md = strings.TrimSpace(md)
	if len(md) < d.Min.MinArticleChars {
		return model.ContentItem{}, false
	}
	return model.ContentItem{
		Title:       title,
		Content:     fmt.Sprintf("# %s\n\n%s", title, md),
		ContentType: model.TypeBlog,
		SourceURL:   baseURL,
	}, true
}

// fromSubstantialDivs is approximate by design: a div with enough visible
// text and a plausible nested heading is taken as a post. It can both over-
// and under-match; it only runs when everything else found nothing.
func (d *Detector) fromSubstantialDivs(doc *goquery.Document, baseURL string) []model.ContentItem {
	var posts []model.ContentItem
	doc.Find("div").Each(func(_ int, div *goquery.Selection) {
		text := strings.TrimSpace(div.Text())
		if len(text) <= d.Min.MinDivTextChars || len(strings.Fields(text)) <= d.Min.MinDivWords {
			return
		}
		head := strings.ToLower(text)
		if len(head) > 100 {
			head = head[:100]
		}
		for _, kw := range containerNavKeywords {
			if strings.Contains(head, kw) {
				return
			}
		}
		title := strings.TrimSpace(div.Find("h1, h2, h3, h4").First().Text())
		if len(title) <= d.Min.MinEmbedTitleChars {
			return
		}
		md, ok := toMarkdown(div)
		if !ok || len(md) <= d.Min.MinArticleChars {
			return
		}
		posts = append(posts, model.ContentItem{
			Title:       title,
			Content:     md,
			ContentType: model.TypeBlog,
			SourceURL:   baseURL,
		})
	})
	return posts
}

func toMarkdown(s *goquery.Selection) (string, bool) {
	frag, err := goquery.OuterHtml(s)
	if err != nil {
		return "", false
	}
	md, err := htmltomarkdown.ConvertString(frag)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(md), true
}
