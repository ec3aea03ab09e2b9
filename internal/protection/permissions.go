package protection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pdtools/internal/common"
)

// PrintingMode is the printing permission level.
type PrintingMode string

const (
	PrintingDisabled       PrintingMode = "disabled"
	PrintingLowResolution  PrintingMode = "lowResolution"
	PrintingHighResolution PrintingMode = "highResolution"
)

// UnmarshalJSON accepts the canonical names, a few short aliases and plain
// booleans (true means high resolution).
func (m *PrintingMode) UnmarshalJSON(b []byte) error {
	var flag bool
	if err := json.Unmarshal(b, &flag); err == nil {
		if flag {
			*m = PrintingHighResolution
		} else {
			*m = PrintingDisabled
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("printing: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "none", "false":
		*m = PrintingDisabled
	case "lowresolution", "low", "low-res":
		*m = PrintingLowResolution
	case "highresolution", "high", "high-res", "true":
		*m = PrintingHighResolution
	default:
		return fmt.Errorf("printing: unknown mode %q", s)
	}
	return nil
}

// Permissions is the advisory permission record stored with a protected
// document.
type Permissions struct {
	Printing             PrintingMode `json:"printing"`
	Copying              bool         `json:"copying"`
	Modifying            bool         `json:"modifying"`
	Annotating           bool         `json:"annotating"`
	FillingForms         bool         `json:"fillingForms"`
	ContentAccessibility bool         `json:"contentAccessibility"`
	DocumentAssembly     bool         `json:"documentAssembly"`
}

// DefaultPermissions allows everything except modifying and assembly.
func DefaultPermissions() Permissions {
	return Permissions{
		Printing:             PrintingHighResolution,
		Copying:              true,
		Modifying:            false,
		Annotating:           true,
		FillingForms:         true,
		ContentAccessibility: true,
		DocumentAssembly:     false,
	}
}

// ParsePermissions overlays a JSON object on the defaults. Keys that are
// absent keep their default; an empty string yields the defaults.
func ParsePermissions(raw string) (Permissions, error) {
	p := DefaultPermissions()
	if strings.TrimSpace(raw) == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return DefaultPermissions(), fmt.Errorf("%w: invalid permissions: %v", common.ErrorValidation, err)
	}
	if p.Printing == "" {
		p.Printing = PrintingHighResolution
	}
	return p, nil
}

// Restrictions lists what the record forbids, in display order.
func (p Permissions) Restrictions() []string {
	var out []string

	switch p.Printing {
	case PrintingDisabled:
		out = append(out, "Printing")
	case PrintingLowResolution:
		out = append(out, "High-resolution printing")
	}

	flags := []struct {
		allowed bool
		label   string
	}{
		{p.Copying, "Copying"},
		{p.Modifying, "Modifying"},
		{p.Annotating, "Annotating"},
		{p.FillingForms, "Form filling"},
		{p.ContentAccessibility, "Content accessibility"},
		{p.DocumentAssembly, "Document assembly"},
	}
	for _, f := range flags {
		if !f.allowed {
			out = append(out, f.label)
		}
	}

	return out
}
