package pdfseg

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// ErrNoReader signals that PDF support is unavailable for the given
// document. Callers report it once and skip the source; it is never fatal
// to the batch.
var ErrNoReader = errors.New("pdf reader unavailable")

// Reader provides page-level access to a PDF document's text.
type Reader interface {
	NumPages() int
	// PageText returns the text of page i, zero-based. Pages the decoder
	// cannot handle return an empty string or an error; either way the
	// document stays usable.
	PageText(i int) (string, error)
	Close() error
}

// Open returns a Reader over the document at path.
func Open(path string) (Reader, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoReader, err)
	}
	return &fileReader{f: f, r: r}, nil
}

type fileReader struct {
	f *os.File
	r *pdf.Reader
}

func (fr *fileReader) NumPages() int { return fr.r.NumPage() }

func (fr *fileReader) PageText(i int) (string, error) {
	p := fr.r.Page(i + 1)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (fr *fileReader) Close() error { return fr.f.Close() }
