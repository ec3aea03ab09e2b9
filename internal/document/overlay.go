package document

import (
	"fmt"
	"strings"
)

// Position anchors an overlay on the page.
type Position string

const (
	TopLeft      Position = "tl"
	TopCenter    Position = "tc"
	TopRight     Position = "tr"
	Center       Position = "c"
	BottomLeft   Position = "bl"
	BottomCenter Position = "bc"
	BottomRight  Position = "br"
)

// Overlay is a line of text drawn on top of page content.
type Overlay struct {
	Text     string   `json:"text"`
	Font     string   `json:"font,omitempty"`
	FontSize int      `json:"fontSize,omitempty"`
	Position Position `json:"position"`
	OffsetX  float64  `json:"offsetX,omitempty"`
	OffsetY  float64  `json:"offsetY,omitempty"`
	Rotation float64  `json:"rotation,omitempty"`
	Opacity  float64  `json:"opacity,omitempty"`
	// Color is #RRGGBB.
	Color string `json:"color,omitempty"`
	// RelativeScale > 0 scales the text to that fraction of the page width
	// instead of using FontSize as is.
	RelativeScale float64 `json:"relativeScale,omitempty"`
}

// Description renders the overlay in pdfcpu's watermark description syntax.
func (o Overlay) Description() string {
	font := o.Font
	if font == "" {
		font = "Helvetica"
	}
	size := o.FontSize
	if size <= 0 {
		size = 12
	}
	pos := o.Position
	if pos == "" {
		pos = Center
	}
	opacity := o.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	color := o.Color
	if color == "" {
		color = "#000000"
	}
	scale := "scalefactor:1 abs"
	if o.RelativeScale > 0 {
		scale = fmt.Sprintf("scalefactor:%.2f rel", o.RelativeScale)
	}

	parts := []string{
		"fontname:" + font,
		fmt.Sprintf("points:%d", size),
		"position:" + string(pos),
		fmt.Sprintf("offset:%g %g", o.OffsetX, o.OffsetY),
		scale,
		fmt.Sprintf("rotation:%g", o.Rotation),
		fmt.Sprintf("opacity:%.2f", opacity),
		"fillcolor:" + color,
	}
	return strings.Join(parts, ", ")
}
