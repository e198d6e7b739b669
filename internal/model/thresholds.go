package model

// Thresholds collects the tuning constants shared by the heuristic cascade.
// Keeping them in one place lets tests and callers adjust a cutoff without
// touching algorithm code.
type Thresholds struct {
	// MinArticleChars is the minimum markdown length for an extracted
	// article or embedded post to count as real content.
	MinArticleChars int
	// MinChapterChars is the minimum size of a chapter segment split out of
	// PDF text; shorter segments are dropped.
	MinChapterChars int
	// MinBookItemChars is the minimum trimmed size of a book chunk kept as
	// an output item.
	MinBookItemChars int
	// MinEmbedTitleChars is the minimum heading length accepted as an
	// embedded-post title.
	MinEmbedTitleChars int
	// MinHeadingChars is the minimum heading length for heading-driven
	// page segmentation.
	MinHeadingChars int
	// MinDivTextChars and MinDivWords gate the substantial-text container
	// fallback. Both must be exceeded.
	MinDivTextChars int
	MinDivWords     int
	// MinPathSegments is the path depth at which a same-domain URL is
	// considered likely content even without a /blog/ segment.
	MinPathSegments int
	// RenderLinkThreshold is the anchor count at or below which a fetched
	// page is suspected to be client-side rendered.
	RenderLinkThreshold int
}

// DefaultThresholds returns the tuning used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinArticleChars:     100,
		MinChapterChars:     500,
		MinBookItemChars:    200,
		MinEmbedTitleChars:  5,
		MinHeadingChars:     10,
		MinDivTextChars:     200,
		MinDivWords:         30,
		MinPathSegments:     3,
		RenderLinkThreshold: 10,
	}
}
