package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/extraction"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
)

// Extract runs the persistence half of the pipeline on a completed
// analysis: categorize every section, assemble the extraction record,
// and commit it through the dual-store coordinator. Overrides correct
// detected metadata before the collection id is derived.
//
// Categorization never fails (mismatched batches fall back to the rule
// labeler), so errors here come from the stores. A document-store error
// aborts with nothing written; a semantic-store error surfaces in the
// returned CommitResult as a partial commit, not an error.
func Extract(
	ctx context.Context,
	rt *Runtime,
	analysis *Analysis,
	sessionID uuid.UUID,
	ov Overrides,
	rec providers.UsageRecorder,
	progress chan<- Progress,
) (*records.CommitResult, error) {
	sections := buildSections(analysis.Pages)
	if len(sections) == 0 {
		return nil, records.ErrNoSections
	}

	emit(progress, StageCategorize, 0, len(sections))

	cls := analysis.Classification
	hint := providers.ContextHint{
		GameType: override(ov.GameType, cls.GameType),
		Edition:  override(ov.Edition, cls.Edition),
		BookType: override(ov.BookType, cls.BookType),
	}

	texts := make([]string, len(sections))
	for i, section := range sections {
		texts[i] = section.Text
	}

	labels := rt.Categorizer.Categorize(ctx, texts, hint, rec)
	for i := range sections {
		sections[i].Category = labels[i].Category
		sections[i].Confidence = labels[i].Confidence
	}
	emit(progress, StageCategorize, len(sections), len(sections))

	emit(progress, StagePersist, 0, 1)

	collection := nameCollection(analysis, ov)
	source := applySourceOverrides(analysis.Source, ov)
	documentID := analysis.DocumentID

	record := records.NewRecord(&documentID, &sessionID, collection, cls, sections, source)

	result, err := rt.Records.Commit(ctx, record, sections)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", collection.Path(), err)
	}
	emit(progress, StagePersist, 1, 1)

	rt.Logger.InfoContext(ctx, "extraction complete",
		"document_id", analysis.DocumentID,
		"record_id", result.Record.ID,
		"collection", collection.Path(),
		"sections", len(sections),
		"state", result.State,
	)

	return result, nil
}

// buildSections turns extracted pages into record sections. Pages with no
// text are dropped; positions are reassigned so the stored sequence stays
// dense and ordered.
func buildSections(pages []extraction.Page) []records.Section {
	sections := make([]records.Section, 0, len(pages))
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		sections = append(sections, records.Section{
			Position: len(sections),
			Page:     page.Number,
			Title:    sectionTitle(text),
			Text:     text,
			IsTable:  page.IsTable,
		})
	}
	return sections
}

func sectionTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if runes := []rune(line); len(runes) > 120 {
		line = string(runes[:120])
	}
	return line
}

func applySourceOverrides(source records.SourceInfo, ov Overrides) records.SourceInfo {
	if strings.TrimSpace(ov.Title) != "" {
		source.Title = ov.Title
	}
	if strings.TrimSpace(ov.Author) != "" {
		source.Author = ov.Author
	}
	if isbn := strings.TrimSpace(ov.ISBN); isbn != "" {
		source.ISBN = &isbn
	}
	return source
}
