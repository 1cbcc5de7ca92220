package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Quality captures metrics about how well text extraction worked.
type Quality struct {
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
}

// NeedsOCR reports whether the document likely needs OCR: image-heavy
// pages with almost no text, or text dominated by garbage glyphs.
func (q Quality) NeedsOCR() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

func scoreQuality(result *Result, images bool) Quality {
	var full strings.Builder
	totalRunes := 0
	for _, page := range result.Pages {
		full.WriteString(page.Text)
		full.WriteByte('\n')
		totalRunes += len([]rune(page.Text))
	}

	charsPerPage := 0.0
	if result.PageCount > 0 {
		charsPerPage = float64(totalRunes) / float64(result.PageCount)
	}

	text := full.String()
	return Quality{
		CharsPerPage:    charsPerPage,
		PrintableRatio:  printableRatio(text),
		WordlikeRatio:   wordlikeRatio(text),
		HasImageStreams: images,
	}
}

// printableRatio is the share of runes that render as text. Private Use
// Area glyphs, the replacement character, and raw control codes count as
// garbage; they are the signature of broken font encodings.
func printableRatio(text string) float64 {
	if text == "" {
		return 1.0
	}

	total, printable := 0, 0
	for _, r := range text {
		total++
		if garbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func garbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	return r < 0x0020 && r != '\n' && r != '\r' && r != '\t'
}

// wordlikeRatio is the share of whitespace-separated tokens with a
// plausible word length. Character-soup extractions score near zero.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}

	wordlike := 0
	for _, f := range fields {
		if n := len([]rune(f)); n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}

func hasImageStreams(pdfCtx *model.Context) bool {
	if pdfCtx.Optimize != nil {
		for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(pdfCtx, pageNr)) > 0 {
				return true
			}
		}
	}

	for _, entry := range pdfCtx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

var (
	tableHeader = regexp.MustCompile(`(?i)\btable\s+[0-9ivxl]+[.:]?`)
	diceToken   = regexp.MustCompile(`^\d*d\d+([+x×-]\d+)?$`)
	numberToken = regexp.MustCompile(`^[+-]?\d+%?$`)
	rangeToken  = regexp.MustCompile(`^\d+[-–]\d+$`)
)

// looksLikeTable reports whether a page reads as tabular data: an
// explicit table header, or most lines carrying two or more numeric,
// dice, or roll-range tokens.
func looksLikeTable(text string) bool {
	if tableHeader.MatchString(firstLine(text)) {
		return true
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 4 {
		return false
	}

	tabular := 0
	for _, line := range lines {
		numeric := 0
		for _, field := range strings.Fields(strings.ToLower(line)) {
			if numberToken.MatchString(field) || diceToken.MatchString(field) || rangeToken.MatchString(field) {
				numeric++
			}
		}
		if numeric >= 2 {
			tabular++
		}
	}

	return float64(tabular)/float64(len(lines)) >= 0.6
}
