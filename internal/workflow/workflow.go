// Package workflow runs the processing pipeline for one document: fetch
// the stored PDF, extract page text, detect the game identity, categorize
// sections, and commit the result to both stores. Stages within a
// document are sequential; concurrency lives inside the engines they
// call. Each stage emits progress snapshots on the caller's channel.
package workflow

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

// Classify runs the analysis half of the pipeline: download the document,
// extract its page text, and detect the game identity. The returned
// Analysis carries everything the extraction half needs, so the document
// is fetched and parsed exactly once per session.
//
// Detection never fails (the chain falls back to the offline classifier),
// so errors here mean the input itself was unusable: a missing document,
// an unreadable PDF, or a PDF with no text.
func Classify(
	ctx context.Context,
	rt *Runtime,
	documentID uuid.UUID,
	contentType providers.ContentType,
	rec providers.UsageRecorder,
	progress chan<- Progress,
) (*Analysis, error) {
	emit(progress, StageFetch, 0, 1)

	doc, err := rt.Documents.Find(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	data, err := rt.Documents.Download(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	emit(progress, StageFetch, 1, 1)

	emit(progress, StageExtract, 0, 0)
	extracted, err := rt.Extractor.Extract(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}
	emit(progress, StageExtract, len(extracted.Pages), len(extracted.Pages))

	emit(progress, StageDetect, 0, 1)
	classification := rt.Detector.Detect(ctx, extracted.Texts(), contentType, rec)
	emit(progress, StageDetect, 1, 1)

	analysis := &Analysis{
		DocumentID:     documentID,
		Filename:       doc.Filename,
		ContentType:    contentType,
		Title:          extracted.Title,
		PageCount:      extracted.PageCount,
		Pages:          extracted.Pages,
		Quality:        extracted.Quality,
		Classification: classification,
		Source:         sourceInfo(doc, extracted),
		CompletedAt:    time.Now().UTC(),
	}
	analysis.Collection = nameCollection(analysis, Overrides{})

	rt.Logger.InfoContext(ctx, "classification complete",
		"document_id", documentID,
		"game_type", classification.GameType,
		"edition", classification.Edition,
		"book_type", classification.BookType,
		"confidence", classification.Confidence,
		"degraded", classification.Degraded,
		"collection", analysis.Collection.Path(),
	)

	return analysis, nil
}
