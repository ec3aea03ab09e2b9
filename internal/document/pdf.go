package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// keywordSeparator joins keyword entries in the Keywords string.
const keywordSeparator = ", "

// PDFService implements Service with pdfcpu for structure and metadata and
// rsc.io/pdf for text extraction.
type PDFService struct {
	logger logging.Logger
}

// NewPDFService builds the process-wide document service. pdfcpu's user
// config directory is disabled so the server never touches $HOME.
func NewPDFService(l logging.Logger) *PDFService {
	api.DisableConfigDir()
	return &PDFService{logger: l.With("module", "document")}
}

func (s *PDFService) configuration(opts LoadOptions) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	// classic xref tables keep the output readable by the text extractor
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	if opts.Tolerant {
		conf.ValidationMode = model.ValidationRelaxed
	}
	return conf
}

// Load parses data into a Document. Parser panics are reported as load
// errors.
func (s *PDFService) Load(ctx context.Context, data []byte, opts LoadOptions) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %v", common.ErrorLoad, r)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", common.ErrorLoad)
	}

	pctx, err := api.ReadContext(bytes.NewReader(data), s.configuration(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorLoad, err)
	}

	if err := api.ValidateContext(pctx); err != nil {
		if !opts.Tolerant {
			return nil, fmt.Errorf("%w: %v", common.ErrorLoad, err)
		}
		s.logger.Warn(ctx, "validation failed, continuing in tolerant mode", "error", err.Error())
	}

	if err := pctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorLoad, err)
	}

	return &pdfDocument{ctx: pctx, stamps: map[int][]*model.Watermark{}}, nil
}

type pdfDocument struct {
	ctx    *model.Context
	stamps map[int][]*model.Watermark
	// info is the dictionary set by SetInfo. pdfcpu rewrites Producer and
	// the dates when it writes, so Save appends it as an update section.
	info types.Dict
}

func (d *pdfDocument) PageCount() int {
	return d.ctx.PageCount
}

func (d *pdfDocument) Info() Info {
	if d.ctx.Info == nil {
		return Info{}
	}
	dict, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil || dict == nil {
		return Info{}
	}

	return Info{
		Title:        d.infoString(dict, "Title"),
		Author:       d.infoString(dict, "Author"),
		Subject:      d.infoString(dict, "Subject"),
		Producer:     d.infoString(dict, "Producer"),
		Creator:      d.infoString(dict, "Creator"),
		Keywords:     SplitKeywords(d.infoString(dict, "Keywords")),
		CreationDate: ParseDate(d.infoString(dict, "CreationDate")),
		ModDate:      ParseDate(d.infoString(dict, "ModDate")),
	}
}

func (d *pdfDocument) infoString(dict types.Dict, key string) string {
	o, found := dict.Find(key)
	if !found || o == nil {
		return ""
	}
	o, err := d.ctx.Dereference(o)
	if err != nil || o == nil {
		return ""
	}

	switch v := o.(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		if err != nil {
			return v.Value()
		}
		return s
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		if err != nil {
			return ""
		}
		return s
	case types.Name:
		return v.Value()
	default:
		return ""
	}
}

// SetInfo replaces the information dictionary. Empty fields are omitted.
func (d *pdfDocument) SetInfo(info Info) error {
	dict := infoDict(info)

	ir, err := d.ctx.IndRefForNewObject(dict)
	if err != nil {
		return fmt.Errorf("info dict: %w", err)
	}
	d.ctx.Info = ir
	d.info = infoDict(info)

	return nil
}

func infoDict(info Info) types.Dict {
	dict := types.NewDict()

	put := func(key, value string) {
		if value == "" {
			return
		}
		encode := types.Escape
		if !isASCII(value) {
			encode = types.EscapedUTF16String
		}
		if esc, err := encode(value); err == nil {
			dict.Insert(key, types.StringLiteral(*esc))
		}
	}
	put("Title", info.Title)
	put("Author", info.Author)
	put("Subject", info.Subject)
	put("Producer", info.Producer)
	put("Creator", info.Creator)
	put("Keywords", strings.Join(info.Keywords, keywordSeparator))
	if !info.CreationDate.IsZero() {
		put("CreationDate", FormatDate(info.CreationDate))
	}
	if !info.ModDate.IsZero() {
		put("ModDate", FormatDate(info.ModDate))
	}

	return dict
}

func (d *pdfDocument) Stamp(page int, overlays ...Overlay) error {
	if page < 1 || page > d.ctx.PageCount {
		return fmt.Errorf("page %d out of range 1..%d", page, d.ctx.PageCount)
	}

	for _, o := range overlays {
		wm, err := pdfcpu.ParseTextWatermarkDetails(o.Text, o.Description(), true, types.POINTS)
		if err != nil {
			return fmt.Errorf("overlay %q: %w", o.Text, err)
		}
		d.stamps[page] = append(d.stamps[page], wm)
	}

	return nil
}

func (d *pdfDocument) Save(w io.Writer) error {
	if len(d.stamps) > 0 {
		if err := pdfcpu.AddWatermarksSliceMap(d.ctx, d.stamps); err != nil {
			return fmt.Errorf("apply overlays: %w", err)
		}
		d.stamps = map[int][]*model.Watermark{}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	if d.info != nil {
		if err := d.appendInfoUpdate(&buf); err != nil {
			return fmt.Errorf("write info: %w", err)
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

// appendInfoUpdate adds an incremental update to a written file: one new
// object holding d.info, a single-entry xref section and a trailer whose
// Info points at it.
func (d *pdfDocument) appendInfoUpdate(buf *bytes.Buffer) error {
	prev, err := lastStartXRef(buf.Bytes())
	if err != nil {
		return err
	}
	if d.ctx.XRefTable.Size == nil || d.ctx.Root == nil {
		return errors.New("xref table not initialised")
	}

	objNr := *d.ctx.XRefTable.Size
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}

	offset := buf.Len()
	fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", objNr, d.info.PDFString())

	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n%d 1\n%010d 00000 n \n", objNr, offset)

	trailer := types.NewDict()
	trailer.Insert("Size", types.Integer(objNr+1))
	trailer.Insert("Root", *d.ctx.Root)
	trailer.Insert("Info", *types.NewIndirectRef(objNr, 0))
	if d.ctx.ID != nil {
		trailer.Insert("ID", d.ctx.ID)
	}
	trailer.Insert("Prev", types.Integer(prev))
	fmt.Fprintf(buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer.PDFString(), xref)

	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// lastStartXRef returns the offset recorded after the last startxref
// keyword.
func lastStartXRef(b []byte) (int, error) {
	i := bytes.LastIndex(b, []byte("startxref"))
	if i < 0 {
		return 0, errors.New("startxref not found")
	}
	fields := strings.Fields(string(b[i+len("startxref"):]))
	if len(fields) == 0 {
		return 0, errors.New("startxref offset missing")
	}
	off, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("startxref offset: %w", err)
	}
	return off, nil
}

// SplitKeywords splits a Keywords string on commas and trims each entry.
// Empty entries are dropped.
func SplitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// FormatDate renders t as a PDF date string in UTC.
func FormatDate(t time.Time) string {
	return "D:" + t.UTC().Format("20060102150405") + "Z"
}

// ParseDate reads the leading D:YYYYMMDDHHmmSS part of a PDF date. Shorter
// forms are accepted; anything unparsable yields the zero time.
func ParseDate(s string) time.Time {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	layouts := []string{"20060102150405", "200601021504", "2006010215", "20060102", "200601", "2006"}
	for _, layout := range layouts {
		if len(s) < len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s[:len(layout)]); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
