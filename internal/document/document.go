// Package document is the boundary to the PDF libraries. The rest of the
// module talks to a Service and the Document handles it returns; nothing
// outside this package imports pdfcpu or rsc.io/pdf.
package document

import (
	"context"
	"io"
	"strings"
	"time"
)

// Info is the document information dictionary.
type Info struct {
	Title        string    `json:"title,omitempty"`
	Author       string    `json:"author,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Producer     string    `json:"producer,omitempty"`
	Creator      string    `json:"creator,omitempty"`
	Keywords     []string  `json:"keywords,omitempty"`
	CreationDate time.Time `json:"creationDate,omitempty"`
	ModDate      time.Time `json:"modDate,omitempty"`
}

// LoadOptions tune how strictly a source document is parsed.
type LoadOptions struct {
	// Tolerant keeps going when validation fails, e.g. on broken or
	// partial encryption dictionaries.
	Tolerant bool
}

// Document is a loaded PDF owned by a single request.
type Document interface {
	PageCount() int
	Info() Info
	SetInfo(info Info) error
	// Stamp queues overlays for a 1-based page. They are drawn on Save.
	Stamp(page int, overlays ...Overlay) error
	Save(w io.Writer) error
}

// Service creates Documents and extracts page text. One Service is built
// per process and shared by all requests; it holds no per-request state.
type Service interface {
	Load(ctx context.Context, data []byte, opts LoadOptions) (Document, error)
	// ExtractPages returns one whitespace-normalised string per page.
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// NormalizeSpace collapses runs of whitespace to a single space and trims.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
