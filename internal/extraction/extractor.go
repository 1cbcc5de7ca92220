// Package extraction pulls per-page text out of PDF documents and scores
// how trustworthy the extraction is. Scanned books with no text layer are
// flagged rather than silently producing empty sections.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoText indicates a document with no extractable text layer.
var ErrNoText = errors.New("no text content in document")

// Page is the text of one document page. Number is the physical page
// number starting at 1; pages with no text are omitted from results.
type Page struct {
	Number  int    `json:"number"`
	Text    string `json:"text"`
	IsTable bool   `json:"is_table"`
}

// Result is the outcome of extracting one document.
type Result struct {
	Pages     []Page  `json:"pages"`
	PageCount int     `json:"page_count"`
	Title     string  `json:"title"`
	Quality   Quality `json:"quality"`
}

// Texts returns the page texts in page order.
func (r *Result) Texts() []string {
	texts := make([]string, len(r.Pages))
	for i, page := range r.Pages {
		texts[i] = page.Text
	}
	return texts
}

// Extractor reads PDFs and produces page-level text.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger.With("system", "extraction")}
}

// Extract parses the document and returns its page texts with quality
// metrics. Returns ErrNoText when no page yields any text.
func (e *Extractor) Extract(ctx context.Context, rs io.ReadSeeker) (*Result, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	result := &Result{PageCount: pdfCtx.PageCount}

	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := pageText(pdfCtx, pageNr)
		if text == "" {
			continue
		}

		if result.Title == "" {
			result.Title = firstLine(text)
		}

		result.Pages = append(result.Pages, Page{
			Number:  pageNr,
			Text:    text,
			IsTable: looksLikeTable(text),
		})
	}

	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("%w: %d pages scanned", ErrNoText, pdfCtx.PageCount)
	}

	result.Quality = scoreQuality(result, hasImageStreams(pdfCtx))

	e.logger.Info("extraction complete",
		"pages", pdfCtx.PageCount,
		"text_pages", len(result.Pages),
		"chars_per_page", result.Quality.CharsPerPage,
		"needs_ocr", result.Quality.NeedsOCR(),
	)

	return result, nil
}

func pageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return parseContentStream(data)
}
