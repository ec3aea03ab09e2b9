package document

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"rsc.io/pdf"
)

// defaultGlyphWidth is used for fonts that carry no widths and are not one
// of the standard 14 fonts, in glyph space units.
const defaultGlyphWidth = 500

// ExtractPages reads every page's text runs in content order. A page
// without content yields "". Any parser failure, including a panic inside
// rsc.io/pdf, fails the whole extraction.
func (s *PDFService) ExtractPages(ctx context.Context, data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", common.ErrorExtraction, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorExtraction, err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, NormalizeSpace(joinRuns(pageGlyphs(p))))
	}

	return pages, nil
}

// matrix is a PDF transformation matrix in row-vector form.
type matrix [3][3]float64

var identity = matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (x matrix) mul(y matrix) matrix {
	var z matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				z[i][j] += x[i][k] * y[k][j]
			}
		}
	}
	return z
}

func translate(tx, ty float64) matrix {
	return matrix{{1, 0, 0}, {0, 1, 0}, {tx, ty, 1}}
}

func operandMatrix(args []pdf.Value) matrix {
	var m matrix
	for i := 0; i < 6; i++ {
		m[i/2][i%2] = args[i].Float64()
	}
	m[2][2] = 1
	return m
}

// operandCount lists the operators whose operands are read by pageGlyphs.
var operandCount = map[string]int{
	"cm": 6, "Tm": 6, "Td": 2, "TD": 2, "Tf": 2, "Tc": 1, "Tw": 1,
	"Tz": 1, "TL": 1, "Ts": 1, "Tj": 1, "'": 1, "TJ": 1, "\"": 3,
}

// textState is the part of the graphics state that positions glyphs.
type textState struct {
	charSpace  float64
	wordSpace  float64
	hScale     float64
	leading    float64
	rise       float64
	fontSize   float64
	font       pdf.Font
	fontName   string
	coreFont   bool
	textMatrix matrix
	lineMatrix matrix
	ctm        matrix
}

// advance returns the width of code in glyph space units. Widths from the
// font dictionary win; standard 14 fonts without them fall back to the AFM
// metrics shipped with pdfcpu.
func (g *textState) advance(code byte) float64 {
	f := g.font
	if len(f.Widths()) > 0 && int(code) >= f.FirstChar() && int(code) <= f.LastChar() {
		return f.Width(int(code))
	}
	if g.coreFont {
		return float64(font.CharWidth(g.fontName, rune(code)))
	}
	return defaultGlyphWidth
}

// pageGlyphs walks the page's content streams and returns positioned
// glyphs, spaces included. Text inside form XObjects is not visited.
func pageGlyphs(p pdf.Page) []pdf.Text {
	var (
		glyphs []pdf.Text
		stack  []textState
		enc    pdf.TextEncoding
	)
	g := textState{hScale: 1, ctm: identity, textMatrix: identity, lineMatrix: identity}

	show := func(s string) {
		if enc == nil {
			return
		}
		n := 0
		for _, ch := range enc.Decode(s) {
			if n >= len(s) {
				break
			}
			code := s[n]
			n++

			trm := matrix{{g.fontSize * g.hScale, 0, 0}, {0, g.fontSize, 0}, {0, g.rise, 1}}.mul(g.textMatrix).mul(g.ctm)
			w0 := g.advance(code)
			glyphs = append(glyphs, pdf.Text{
				Font:     g.fontName,
				FontSize: trm[0][0],
				X:        trm[2][0],
				Y:        trm[2][1],
				W:        w0 / 1000 * trm[0][0],
				S:        string(ch),
			})

			tx := w0/1000*g.fontSize + g.charSpace
			if code == ' ' {
				tx += g.wordSpace
			}
			g.textMatrix = translate(tx*g.hScale, 0).mul(g.textMatrix)
		}
	}

	nextLine := func() {
		g.lineMatrix = translate(0, -g.leading).mul(g.lineMatrix)
		g.textMatrix = g.lineMatrix
	}

	do := func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		if want, ok := operandCount[op]; ok && len(args) != want {
			panic(fmt.Sprintf("malformed %s operator", op))
		}

		switch op {
		case "q":
			stack = append(stack, g)
		case "Q":
			if len(stack) > 0 {
				g = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case "cm":
			g.ctm = operandMatrix(args).mul(g.ctm)
		case "BT":
			g.textMatrix = identity
			g.lineMatrix = identity
		case "Tm":
			g.textMatrix = operandMatrix(args)
			g.lineMatrix = g.textMatrix
		case "TD":
			g.leading = -args[1].Float64()
			fallthrough
		case "Td":
			g.lineMatrix = translate(args[0].Float64(), args[1].Float64()).mul(g.lineMatrix)
			g.textMatrix = g.lineMatrix
		case "T*":
			nextLine()
		case "Tf":
			g.font = p.Font(args[0].Name())
			g.fontSize = args[1].Float64()
			g.fontName = g.font.BaseFont()
			if i := strings.Index(g.fontName, "+"); i >= 0 {
				g.fontName = g.fontName[i+1:]
			}
			g.coreFont = font.IsCoreFont(g.fontName)
			enc = g.font.Encoder()
		case "Tc":
			g.charSpace = args[0].Float64()
		case "Tw":
			g.wordSpace = args[0].Float64()
		case "Tz":
			g.hScale = args[0].Float64() / 100
		case "TL":
			g.leading = args[0].Float64()
		case "Ts":
			g.rise = args[0].Float64()
		case "\"":
			g.wordSpace = args[0].Float64()
			g.charSpace = args[1].Float64()
			nextLine()
			show(args[2].RawString())
		case "'":
			nextLine()
			show(args[0].RawString())
		case "Tj":
			show(args[0].RawString())
		case "TJ":
			v := args[0]
			for i := 0; i < v.Len(); i++ {
				x := v.Index(i)
				if x.Kind() == pdf.String {
					show(x.RawString())
					continue
				}
				tx := -x.Float64() / 1000 * g.fontSize * g.hScale
				g.textMatrix = translate(tx, 0).mul(g.textMatrix)
			}
		}
	}

	contents := p.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), do)
		}
	} else if contents.Kind() == pdf.Stream {
		pdf.Interpret(contents, do)
	}

	return glyphs
}

// joinRuns glues positioned glyphs back into text. A space is inserted on a
// line change or when the horizontal gap to the previous glyph is wider
// than a fraction of the font size.
func joinRuns(texts []pdf.Text) string {
	var b strings.Builder

	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			size := math.Max(prev.FontSize, 1)
			switch {
			case math.Abs(t.Y-prev.Y) > size*0.5:
				b.WriteByte(' ')
			case t.X-(prev.X+prev.W) > size*0.15:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}

	return b.String()
}
