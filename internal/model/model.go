package model

// Content types carried by ContentItem.
const (
	TypeBlog = "blog"
	TypeBook = "book"
)

// ContentItem is one extracted unit of knowledge. Items are created by the
// article extractor, the embedded-post detector, or the PDF segmenter and are
// immutable afterwards.
type ContentItem struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	SourceURL   string `json:"source_url,omitempty"`
	Author      string `json:"author"`
	UserID      string `json:"user_id"`
}

// ScrapedOutput is the final artifact: a team identifier plus items in the
// order their sources were processed. No sorting or cross-source
// deduplication happens here.
type ScrapedOutput struct {
	TeamID string        `json:"team_id"`
	Items  []ContentItem `json:"items"`
}
