package pdfseg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/pagesift/pagesift/internal/model"
)

func chapterBody() string {
	return strings.TrimSpace(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 15))
}

func chapteredText() string {
	body := chapterBody()
	return "\nChapter 1\n" + body + "\nChapter 2\n" + body + "\nChapter 3\nToo short to keep."
}

func TestSplitChapters(t *testing.T) {
	s := NewSegmenter()
	chapters := s.SplitChapters(chapteredText())
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters (third below minimum), got %d", len(chapters))
	}
	if !strings.HasPrefix(chapters[0], "Chapter 1") || !strings.HasPrefix(chapters[1], "Chapter 2") {
		t.Fatalf("chapters out of order: %q, %q", chapters[0][:20], chapters[1][:20])
	}
	for i, ch := range chapters {
		if len(ch) <= s.Min.MinChapterChars {
			t.Fatalf("chapter %d below minimum length: %d", i, len(ch))
		}
		if !strings.Contains(ch, "quick brown fox") {
			t.Fatalf("chapter %d lost its body text", i)
		}
	}
}

func TestSplitChapters_NoMarkers(t *testing.T) {
	s := NewSegmenter()
	if got := s.SplitChapters("plain text without any structure at all"); got != nil {
		t.Fatalf("expected nil for unmarked text, got %v", got)
	}
}

func TestSplitChapters_SingleMarkerIgnored(t *testing.T) {
	// One match cannot split anything; the pattern needs at least two.
	s := NewSegmenter()
	text := "\nChapter 1\n" + chapterBody()
	if got := s.SplitChapters(text); got != nil {
		t.Fatalf("expected nil for a single marker, got %d segments", len(got))
	}
}

func TestSegment_ChapterItems(t *testing.T) {
	s := NewSegmenter()
	s.BookAuthor = "Test Author"
	items := s.Segment(chapteredText())
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for i, item := range items {
		if want := fmt.Sprintf("Chapter %d", i+1); item.Title != want {
			t.Fatalf("item %d title = %q, want %q", i, item.Title, want)
		}
		if item.ContentType != model.TypeBook {
			t.Fatalf("item %d content type = %q", i, item.ContentType)
		}
		if item.Author != "Test Author" {
			t.Fatalf("item %d author = %q", i, item.Author)
		}
		if item.SourceURL != "" {
			t.Fatalf("book item carries a source url: %q", item.SourceURL)
		}
	}
}

func TestSegment_ChunkFallback(t *testing.T) {
	s := NewSegmenter()
	s.ChunkSize = 300
	var b strings.Builder
	for i := 0; i < 40; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Sentence number %d in a plain running text.", i)
	}
	items := s.Segment(b.String())
	if len(items) < 2 {
		t.Fatalf("expected multiple chunked items, got %d", len(items))
	}
	for i, item := range items {
		if want := fmt.Sprintf("Chapter %d", i+1); item.Title != want {
			t.Fatalf("item %d title = %q, want %q", i, item.Title, want)
		}
		if item.ContentType != model.TypeBook {
			t.Fatalf("item %d content type = %q", i, item.ContentType)
		}
	}
}

func TestChunkText_Reconstruction(t *testing.T) {
	var sentences []string
	for i := 0; i < 20; i++ {
		sentences = append(sentences, fmt.Sprintf("This is sentence number %d of the sample.", i))
	}
	text := strings.Join(sentences, " ")

	s := NewSegmenter()
	chunks := s.ChunkText(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected the budget to force multiple chunks, got %d", len(chunks))
	}
	if got := strings.Join(chunks, " "); got != text {
		t.Fatalf("joined chunks do not reproduce the input:\ngot:  %q\nwant: %q", got, text)
	}
	for i, c := range chunks {
		last := c[len(c)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Fatalf("chunk %d ends mid-sentence: %q", i, c)
		}
	}
}

func TestChunkText_OversizedSentenceKeptWhole(t *testing.T) {
	s := NewSegmenter()
	long := strings.Repeat("word ", 50) + "end."
	chunks := s.ChunkText(long, 40)
	if len(chunks) != 1 {
		t.Fatalf("a single sentence must never be split, got %d chunks", len(chunks))
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third one? Trailing fragment")
	want := []string{"First one.", "Second one!", "Third one?", "Trailing fragment"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type fakeReader struct {
	pages  []string
	failAt int
}

func (f *fakeReader) NumPages() int { return len(f.pages) }

func (f *fakeReader) PageText(i int) (string, error) {
	if i == f.failAt {
		return "", errors.New("undecodable page")
	}
	return f.pages[i], nil
}

func (f *fakeReader) Close() error { return nil }

func TestParseReader_SkipsBadPages(t *testing.T) {
	body := chapterBody()
	r := &fakeReader{
		pages: []string{
			"\nChapter 1\n" + body,
			"garbage page that will fail",
			"\nChapter 2\n" + body,
		},
		failAt: 1,
	}
	s := NewSegmenter()
	items := s.ParseReader(r)
	if len(items) != 2 {
		t.Fatalf("expected 2 items despite the bad page, got %d", len(items))
	}
}

type recordingReader struct {
	fakeReader
	maxIndex int
}

func (r *recordingReader) PageText(i int) (string, error) {
	if i > r.maxIndex {
		r.maxIndex = i
	}
	return r.fakeReader.PageText(i)
}

func TestParseReader_PageBudget(t *testing.T) {
	pages := make([]string, 30)
	for i := range pages {
		pages[i] = fmt.Sprintf("page %d text. ", i)
	}
	s := NewSegmenter()
	s.MaxChapters = 1 // budget of 10 pages
	r := &recordingReader{fakeReader: fakeReader{pages: pages, failAt: -1}}
	_ = s.ParseReader(r)
	if r.maxIndex >= 10 {
		t.Fatalf("read past the page budget: page %d", r.maxIndex)
	}
}

func TestOpenAndReadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.pdf")
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 11)
	doc.AddPage()
	doc.MultiCell(0, 5, "Alpha page with enough words to register.", "", "L", false)
	doc.AddPage()
	doc.MultiCell(0, 5, "Beta page with different words entirely.", "", "L", false)
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("write fixture pdf: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer r.Close()

	if n := r.NumPages(); n != 2 {
		t.Fatalf("expected 2 pages, got %d", n)
	}
	var combined strings.Builder
	for i := 0; i < r.NumPages(); i++ {
		text, err := r.PageText(i)
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		combined.WriteString(text)
	}
	if !strings.Contains(combined.String(), "Alpha") || !strings.Contains(combined.String(), "Beta") {
		t.Fatalf("fixture text not recovered: %q", combined.String())
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, ErrNoReader) {
		t.Fatalf("expected ErrNoReader, got %v", err)
	}
}
