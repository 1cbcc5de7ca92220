package records

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// SemanticStore mirrors record sections into a vector store, one
// collection per dotted collection path. It is derived data: everything
// here can be rebuilt from the document store by the repair pass.
type SemanticStore struct {
	db     *chromem.DB
	embed  chromem.EmbeddingFunc
	logger *slog.Logger
}

// NewSemanticStore opens the persistent vector store at cfg.SemanticPath.
func NewSemanticStore(cfg Config, embed chromem.EmbeddingFunc, logger *slog.Logger) (*SemanticStore, error) {
	db, err := chromem.NewPersistentDB(cfg.SemanticPath, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("open semantic store: %w", err)
	}
	return &SemanticStore{
		db:     db,
		embed:  embed,
		logger: logger.With("system", "semantic"),
	}, nil
}

// NewMemorySemanticStore backs the store with process memory. Used by
// tests and by deployments that treat the semantic index as ephemeral.
func NewMemorySemanticStore(embed chromem.EmbeddingFunc, logger *slog.Logger) *SemanticStore {
	return &SemanticStore{
		db:     chromem.NewDB(),
		embed:  embed,
		logger: logger.With("system", "semantic"),
	}
}

// Hit is one semantic search result.
type Hit struct {
	ID         string  `json:"id"`
	RecordID   string  `json:"record_id"`
	Path       string  `json:"collection_path"`
	Page       int     `json:"page"`
	Category   string  `json:"category"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Mirror writes a record's sections into the collection named by the
// record's path. Document IDs derive from the record ID and section
// position, so mirroring the same record twice overwrites in place
// rather than duplicating. Every stored unit carries the five id
// segments as filterable metadata.
func (ss *SemanticStore) Mirror(ctx context.Context, rec *Record, sections []Section) error {
	col, err := ss.db.GetOrCreateCollection(rec.Path, map[string]string{
		"content_type": rec.Collection.ContentType,
		"game_type":    rec.Collection.GameType,
		"edition":      rec.Collection.Edition,
		"book_type":    rec.Collection.BookType,
	}, ss.embed)
	if err != nil {
		return fmt.Errorf("open collection %s: %w", rec.Path, err)
	}

	docs := make([]chromem.Document, 0, len(sections))
	for _, sec := range sections {
		if sec.Text == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      sectionDocID(rec.ID, sec.Position),
			Content: sec.Text,
			Metadata: map[string]string{
				"content_type":    rec.Collection.ContentType,
				"game_type":       rec.Collection.GameType,
				"edition":         rec.Collection.Edition,
				"book_type":       rec.Collection.BookType,
				"collection_name": rec.Collection.Collection,
				"record_id":       rec.ID.String(),
				"position":        strconv.Itoa(sec.Position),
				"page":            strconv.Itoa(sec.Page),
				"category":        sec.Category,
				"is_table":        strconv.FormatBool(sec.IsTable),
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}

	concurrency := max(min(runtime.NumCPU(), len(docs)), 1)
	if err := col.AddDocuments(ctx, docs, concurrency); err != nil {
		return fmt.Errorf("mirror %d sections to %s: %w", len(docs), rec.Path, err)
	}

	ss.logger.Debug("sections mirrored", "path", rec.Path, "count", len(docs))
	return nil
}

// Search runs a nearest-neighbor query within one collection. A path
// with no mirrored sections yields an empty result, not an error, since
// an archive that has not seen a collection yet is a normal state.
func (ss *SemanticStore) Search(ctx context.Context, path, text string, limit int, where map[string]string) ([]Hit, error) {
	col := ss.db.GetCollection(path, ss.embed)
	if col == nil {
		return nil, nil
	}

	n := min(limit, col.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := col.Query(ctx, text, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		hits = append(hits, Hit{
			ID:         res.ID,
			RecordID:   res.Metadata["record_id"],
			Path:       path,
			Page:       page,
			Category:   res.Metadata["category"],
			Content:    res.Content,
			Similarity: res.Similarity,
		})
	}
	return hits, nil
}

// Collections reports how many sections each mirrored collection holds.
func (ss *SemanticStore) Collections() map[string]int {
	counts := make(map[string]int)
	for name, col := range ss.db.ListCollections() {
		counts[name] = col.Count()
	}
	return counts
}

func sectionDocID(recordID uuid.UUID, position int) string {
	return fmt.Sprintf("%s:%d", recordID, position)
}
