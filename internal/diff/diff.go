// Package diff compares the extracted text of two PDFs page by page.
//
// Word changes are counted positionally, not by alignment: one inserted
// word shifts every later position and inflates the count. Existing
// clients depend on these numbers, so the approximation is kept as is.
package diff

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

type DifferenceType string

const (
	TypeText   DifferenceType = "text"
	TypeLayout DifferenceType = "layout"
)

const (
	// pageExcerptLen bounds the excerpt of a page present in one document.
	pageExcerptLen = 200
	// textExcerptLen bounds both excerpts of a differing page.
	textExcerptLen = 300
)

// Difference is one finding. Page 0 refers to the whole document.
type Difference struct {
	Page        int            `json:"page"`
	Type        DifferenceType `json:"type"`
	Description string         `json:"description"`
	File1Text   string         `json:"file1Text,omitempty"`
	File2Text   string         `json:"file2Text,omitempty"`
}

// Result is the outcome of a comparison. Differences is never nil.
type Result struct {
	Differences []Difference `json:"differences"`
	Summary     string       `json:"summary"`
}

// Extractor returns the normalised text of every page of a document.
type Extractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// Compare extracts both documents concurrently and diffs them. If either
// extraction fails the other is cancelled and the error is returned.
func Compare(ctx context.Context, ex Extractor, data1, data2 []byte) (*Result, error) {
	var pages1, pages2 []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := ex.ExtractPages(gctx, data1)
		if err != nil {
			return fmt.Errorf("document 1: %w", err)
		}
		pages1 = p
		return nil
	})
	g.Go(func() error {
		p, err := ex.ExtractPages(gctx, data2)
		if err != nil {
			return fmt.Errorf("document 2: %w", err)
		}
		pages2 = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Diff(pages1, pages2), nil
}

// Diff compares two page sequences.
func Diff(pages1, pages2 []string) *Result {
	diffs := []Difference{}

	n1, n2 := len(pages1), len(pages2)
	if n1 != n2 {
		diffs = append(diffs, Difference{
			Page:        0,
			Type:        TypeLayout,
			Description: fmt.Sprintf("Page count differs: Document 1 has %d pages, Document 2 has %d pages", n1, n2),
		})
	}

	for i := 0; i < max(n1, n2); i++ {
		page := i + 1

		switch {
		case i >= n1:
			diffs = append(diffs, Difference{
				Page:        page,
				Type:        TypeLayout,
				Description: fmt.Sprintf("Page %d only exists in Document 2", page),
				File2Text:   truncate(pages2[i], pageExcerptLen),
			})

		case i >= n2:
			diffs = append(diffs, Difference{
				Page:        page,
				Type:        TypeLayout,
				Description: fmt.Sprintf("Page %d only exists in Document 1", page),
				File1Text:   truncate(pages1[i], pageExcerptLen),
			})

		default:
			words1 := strings.Fields(strings.ToLower(pages1[i]))
			words2 := strings.Fields(strings.ToLower(pages2[i]))
			if equalWords(words1, words2) {
				continue
			}

			diffs = append(diffs, Difference{
				Page:        page,
				Type:        TypeText,
				Description: fmt.Sprintf("Page %d: Text content differs (%d word changes detected)", page, WordChanges(words1, words2)),
				File1Text:   truncate(pages1[i], textExcerptLen),
				File2Text:   truncate(pages2[i], textExcerptLen),
			})
		}
	}

	return &Result{
		Differences: diffs,
		Summary:     Summarize(len(diffs)),
	}
}

// WordChanges counts positions holding different words plus the
// difference in length.
func WordChanges(words1, words2 []string) int {
	n := min(len(words1), len(words2))

	changed := 0
	for j := 0; j < n; j++ {
		if words1[j] != words2[j] {
			changed++
		}
	}

	lengthDiff := len(words1) - len(words2)
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}

	return changed + lengthDiff
}

// Summarize renders the one-line summary for n differences.
func Summarize(n int) string {
	switch n {
	case 0:
		return "The documents are identical."
	case 1:
		return "Found 1 difference between the documents."
	default:
		return fmt.Sprintf("Found %d differences between the documents.", n)
	}
}

// equalWords compares normalised pages: whitespace-collapsed, so equal
// word sequences mean equal text.
func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
