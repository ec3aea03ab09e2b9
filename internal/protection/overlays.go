package protection

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/document"
)

const (
	BadgeText     = "PROTECTED"
	WatermarkText = "PROTECTED DOCUMENT"

	footerDateLayout = "2006-01-02"
)

// pageOverlays returns the markings stamped on page (1-based) of total.
// The banner is omitted when nothing is restricted.
func pageOverlays(page, total int, perms Permissions, at time.Time) []document.Overlay {
	out := []document.Overlay{
		{
			Text:     BadgeText,
			Font:     "Helvetica-Bold",
			FontSize: 12,
			Position: document.TopRight,
			OffsetX:  -20,
			OffsetY:  -20,
			Opacity:  0.9,
			Color:    "#CC0000",
		},
		{
			Text:          WatermarkText,
			Font:          "Helvetica-Bold",
			FontSize:      60,
			Position:      document.Center,
			Rotation:      45,
			Opacity:       0.12,
			Color:         "#999999",
			RelativeScale: 0.8,
		},
	}

	if banner := restrictionBanner(perms); banner != "" {
		out = append(out, document.Overlay{
			Text:     banner,
			Font:     "Helvetica",
			FontSize: 9,
			Position: document.BottomCenter,
			OffsetY:  30,
			Opacity:  0.85,
			Color:    "#CC0000",
		})
	}

	out = append(out, document.Overlay{
		Text:     fmt.Sprintf("Page %d of %d | Protected %s", page, total, at.UTC().Format(footerDateLayout)),
		Font:     "Helvetica",
		FontSize: 8,
		Position: document.BottomCenter,
		OffsetY:  12,
		Opacity:  1,
		Color:    "#666666",
	})

	return out
}

func restrictionBanner(perms Permissions) string {
	r := perms.Restrictions()
	if len(r) == 0 {
		return ""
	}
	return "Restricted: " + strings.Join(r, ", ")
}
