// Package memdoc is an in-memory document.Service. Documents are JSON with
// a magic prefix, so tests can build inputs, run the real tool code on them
// and inspect what was written without going through a PDF parser.
package memdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/document"
)

// Magic prefixes every encoded document.
const Magic = "%MEMDOC\n"

// File is the serialised form of a memdoc document.
type File struct {
	Pages  []string                   `json:"pages"`
	Info   document.Info              `json:"info"`
	Stamps map[int][]document.Overlay `json:"stamps,omitempty"`
}

// Encode builds a document with the given page texts.
func Encode(pages ...string) []byte {
	return EncodeFile(File{Pages: pages})
}

// EncodeFile serialises f.
func EncodeFile(f File) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		panic(err)
	}
	return append([]byte(Magic), b...)
}

// Decode parses bytes produced by EncodeFile or Document.Save.
func Decode(data []byte) (*File, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, fmt.Errorf("%w: not a memdoc file", common.ErrorLoad)
	}
	f := &File{}
	if err := json.Unmarshal(data[len(Magic):], f); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorLoad, err)
	}
	return f, nil
}

// Service implements document.Service over File values.
type Service struct {
	// ExtractErr, when set, is returned by ExtractPages for inputs whose
	// first page text equals the map key.
	ExtractErr map[string]error
}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Load(ctx context.Context, data []byte, opts document.LoadOptions) (document.Document, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if f.Stamps == nil {
		f.Stamps = map[int][]document.Overlay{}
	}
	return &Document{file: f}, nil
}

func (s *Service) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorExtraction, err)
	}
	if len(f.Pages) > 0 && s.ExtractErr != nil {
		if e, ok := s.ExtractErr[f.Pages[0]]; ok {
			return nil, e
		}
	}

	pages := make([]string, len(f.Pages))
	for i, p := range f.Pages {
		pages[i] = document.NormalizeSpace(p)
	}
	return pages, nil
}

// Document is a loaded memdoc File.
type Document struct {
	file *File
}

func (d *Document) PageCount() int {
	return len(d.file.Pages)
}

func (d *Document) Info() document.Info {
	return d.file.Info
}

func (d *Document) SetInfo(info document.Info) error {
	d.file.Info = info
	return nil
}

func (d *Document) Stamp(page int, overlays ...document.Overlay) error {
	if page < 1 || page > len(d.file.Pages) {
		return fmt.Errorf("page %d out of range 1..%d", page, len(d.file.Pages))
	}
	d.file.Stamps[page] = append(d.file.Stamps[page], overlays...)
	return nil
}

func (d *Document) Save(w io.Writer) error {
	_, err := w.Write(EncodeFile(*d.file))
	return err
}

// StampedPages lists pages carrying overlays, ascending.
func (f *File) StampedPages() []int {
	pages := make([]int, 0, len(f.Stamps))
	for p := range f.Stamps {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
