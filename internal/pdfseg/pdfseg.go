package pdfseg

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pagesift/pagesift/internal/model"
)

// Segmenter splits extracted PDF text into chapter-like or fixed-budget
// chunks and wraps them as book items.
type Segmenter struct {
	// ChunkSize is the character budget for the sentence-boundary fallback.
	ChunkSize int
	// MaxChapters bounds how much of the document is read: at most
	// MaxChapters*10 pages.
	MaxChapters int
	// BookAuthor is the fixed attribution stamped on every book item.
	BookAuthor string

	Min model.Thresholds
}

func NewSegmenter() *Segmenter {
	return &Segmenter{
		ChunkSize:   2000,
		MaxChapters: 8,
		Min:         model.DefaultThresholds(),
	}
}

// chapterPatterns are tried in priority order; the first pattern with more
// than one match wins.
var chapterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\n\s*Chapter\s+\d+`),
	regexp.MustCompile(`(?i)\n\s*CHAPTER\s+\d+`),
	regexp.MustCompile(`(?i)\n\s*\d+\.\s+[A-Z][A-Za-z\s]+\n`),
}

// ParseFile reads up to the page budget from the document at path and
// segments the text into book items. A document the reader layer cannot
// open yields an error, never a partial result.
func (s *Segmenter) ParseFile(path string) ([]model.ContentItem, error) {
	r, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer r.Close()

	items := s.ParseReader(r)
	log.Info().Int("items", len(items)).Str("path", path).Msg("segmented pdf")
	return items, nil
}

// ParseReader reads up to the page budget from r and segments the combined
// text. Individual page failures are skipped.
func (s *Segmenter) ParseReader(r Reader) []model.ContentItem {
	maxPages := r.NumPages()
	if budget := s.MaxChapters * 10; budget > 0 && maxPages > budget {
		maxPages = budget
	}
	var b strings.Builder
	for i := 0; i < maxPages; i++ {
		text, err := r.PageText(i)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("page text failed; skipping page")
			continue
		}
		b.WriteString(text)
	}
	return s.Segment(b.String())
}

// Segment turns raw text into ordered book items: chapter splitting first,
// sentence-boundary chunking otherwise. Trimmed segments below the minimum
// book item size are dropped but keep their position in the numbering.
func (s *Segmenter) Segment(text string) []model.ContentItem {
	segments := s.SplitChapters(text)
	if len(segments) == 0 {
		segments = s.ChunkText(text, s.ChunkSize)
	}

	var items []model.ContentItem
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" || len(seg) <= s.Min.MinBookItemChars {
			continue
		}
		items = append(items, model.ContentItem{
			Title:       fmt.Sprintf("Chapter %d", i+1),
			Content:     seg,
			ContentType: model.TypeBook,
			Author:      s.BookAuthor,
		})
	}
	return items
}

// SplitChapters splits text at chapter-marker boundaries. The returned
// segments partition the text contiguously from the first marker onward;
// segments at or below the chapter minimum are discarded. A nil result
// means no pattern produced a usable split.
func (s *Segmenter) SplitChapters(text string) []string {
	for _, re := range chapterPatterns {
		locs := re.FindAllStringIndex(text, -1)
		if len(locs) <= 1 {
			continue
		}
		var chapters []string
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			chapter := strings.TrimSpace(text[loc[0]:end])
			if len(chapter) > s.Min.MinChapterChars {
				chapters = append(chapters, chapter)
			}
		}
		if len(chapters) > 0 {
			return chapters
		}
	}
	return nil
}

var sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)

// ChunkText accumulates whole sentences into chunks of roughly budget
// characters. A boundary never falls inside a sentence, and joining all
// chunks with single spaces reproduces the input text.
func (s *Segmenter) ChunkText(text string, budget int) []string {
	sentences := splitSentences(text)
	var chunks []string
	var current string
	for _, sentence := range sentences {
		if len(current)+len(sentence) > budget && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = sentence
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// splitSentences cuts after .!? followed by whitespace, dropping the
// separator whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
