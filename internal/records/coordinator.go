package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/collections"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/pagination"
)

// System coordinates the dual write across both stores and exposes the
// record domain to handlers and the workflow.
type System interface {
	Handler() *Handler
	Commit(ctx context.Context, rec *Record, sections []Section) (*CommitResult, error)
	Repair(ctx context.Context) (*RepairReport, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error)
	Find(ctx context.Context, id uuid.UUID) (*Detail, error)
	Search(ctx context.Context, q SearchQuery) ([]Hit, error)
}

// documentSide is the slice of DocumentStore the coordinator needs.
type documentSide interface {
	Upsert(ctx context.Context, rec *Record, sections []Section) (*Record, error)
	MarkCommitted(ctx context.Context, id uuid.UUID) error
	ListPending(ctx context.Context, limit int) ([]Record, error)
	Sections(ctx context.Context, recordID uuid.UUID) ([]Section, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error)
	Find(ctx context.Context, id uuid.UUID) (*Record, error)
}

// semanticSide is the slice of SemanticStore the coordinator needs.
type semanticSide interface {
	Mirror(ctx context.Context, rec *Record, sections []Section) error
	Search(ctx context.Context, path, text string, limit int, where map[string]string) ([]Hit, error)
}

type system struct {
	docs        documentSide
	semantic    semanticSide
	logger      *slog.Logger
	pagination  pagination.Config
	repairBatch int
}

// New creates the record system over both stores.
func New(
	docs *DocumentStore,
	semantic *SemanticStore,
	cfg Config,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &system{
		docs:        docs,
		semantic:    semantic,
		logger:      logger.With("system", "records"),
		pagination:  pagination,
		repairBatch: cfg.RepairBatch,
	}
}

func (s *system) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

// CommitResult reports where a record landed after one commit attempt.
type CommitResult struct {
	Record *Record     `json:"record"`
	State  CommitState `json:"state"`
}

// Commit runs the dual write. The document store goes first; if it
// rejects the record nothing is persisted and the commit fails. A
// semantic-store failure after that point degrades the result to
// partially committed instead of failing, and the repair pass finishes
// the job later.
func (s *system) Commit(ctx context.Context, rec *Record, sections []Section) (*CommitResult, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	stored, err := s.docs.Upsert(ctx, rec, sections)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentStore, err)
	}

	if err := s.semantic.Mirror(ctx, stored, sections); err != nil {
		s.logger.Warn("semantic mirror failed, record held for repair",
			"id", stored.ID,
			"path", stored.Path,
			"error", err,
		)
		return &CommitResult{Record: stored, State: CommitPartial}, nil
	}

	if err := s.docs.MarkCommitted(ctx, stored.ID); err != nil {
		s.logger.Warn("commit flag update failed, record held for repair",
			"id", stored.ID,
			"error", err,
		)
		return &CommitResult{Record: stored, State: CommitPartial}, nil
	}

	stored.Semantic = SemanticCommitted
	s.logger.Info("record committed",
		"id", stored.ID,
		"path", stored.Path,
		"sections", len(sections),
	)
	return &CommitResult{Record: stored, State: CommitCommitted}, nil
}

// RepairReport summarizes one repair pass.
type RepairReport struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Repair backfills the semantic store for every pending record, reading
// sections back from the document store. It never touches the AI
// providers and is safe to run repeatedly: mirrored section IDs are
// stable, so a rerun overwrites rather than duplicates.
func (s *system) Repair(ctx context.Context) (*RepairReport, error) {
	pending, err := s.docs.ListPending(ctx, s.repairBatch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentStore, err)
	}

	report := &RepairReport{Scanned: len(pending)}
	for i := range pending {
		rec := &pending[i]

		if err := ctx.Err(); err != nil {
			return report, err
		}

		sections, err := s.docs.Sections(ctx, rec.ID)
		if err != nil {
			report.Failed++
			s.logger.Warn("repair: section read failed", "id", rec.ID, "error", err)
			continue
		}

		if err := s.semantic.Mirror(ctx, rec, sections); err != nil {
			report.Failed++
			s.logger.Warn("repair: mirror failed", "id", rec.ID, "path", rec.Path, "error", err)
			continue
		}

		if err := s.docs.MarkCommitted(ctx, rec.ID); err != nil {
			report.Failed++
			s.logger.Warn("repair: commit flag update failed", "id", rec.ID, "error", err)
			continue
		}

		report.Repaired++
	}

	s.logger.Info("repair pass complete",
		"scanned", report.Scanned,
		"repaired", report.Repaired,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *system) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(s.pagination)
	return s.docs.List(ctx, page, filters)
}

// Detail is a record with its sections attached.
type Detail struct {
	Record   `json:"record"`
	Sections []Section `json:"sections"`
}

func (s *system) Find(ctx context.Context, id uuid.UUID) (*Detail, error) {
	rec, err := s.docs.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	sections, err := s.docs.Sections(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Detail{Record: *rec, Sections: sections}, nil
}

// SearchQuery is a semantic search request scoped to one collection.
type SearchQuery struct {
	Path     string `json:"collection_path"`
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Category string `json:"category,omitempty"`
}

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

func (s *system) Search(ctx context.Context, q SearchQuery) ([]Hit, error) {
	if q.Query == "" {
		return nil, ErrEmptyQuery
	}
	if _, err := collections.ParsePath(q.Path); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var where map[string]string
	if q.Category != "" {
		where = map[string]string{"category": q.Category}
	}

	return s.semantic.Search(ctx, q.Path, q.Query, limit, where)
}
