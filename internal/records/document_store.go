package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/ledger"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/pagination"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/query"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/repository"
)

// DocumentStore persists records and sections to PostgreSQL. It is the
// authoritative side of the dual write: a record exists once this store
// accepts it, regardless of what the semantic store does afterwards.
type DocumentStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentStore(db *sql.DB, logger *slog.Logger) *DocumentStore {
	return &DocumentStore{
		db:     db,
		logger: logger.With("system", "records"),
	}
}

const upsertRecordSQL = `
	INSERT INTO extraction_records (
		id, document_id, session_id, collection_path, content_type, game_type,
		edition, book_type, collection_name, content_hash, source_isbn,
		source_title, source_author, source_pages, confidence, provider,
		model, degraded, section_count, semantic_state
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20)
	ON CONFLICT (collection_path, content_hash) DO UPDATE SET
		document_id = COALESCE(EXCLUDED.document_id, extraction_records.document_id),
		session_id = EXCLUDED.session_id,
		source_isbn = COALESCE(EXCLUDED.source_isbn, extraction_records.source_isbn),
		source_title = EXCLUDED.source_title,
		source_author = EXCLUDED.source_author,
		source_pages = EXCLUDED.source_pages,
		confidence = EXCLUDED.confidence,
		provider = EXCLUDED.provider,
		model = EXCLUDED.model,
		degraded = EXCLUDED.degraded,
		section_count = EXCLUDED.section_count,
		semantic_state = 'pending',
		updated_at = now()
	RETURNING id, document_id, session_id, collection_path, content_type,
		game_type, edition, book_type, collection_name, content_hash,
		source_isbn, source_title, source_author, source_pages, confidence,
		provider, model, degraded, section_count, semantic_state,
		extracted_at, updated_at`

const insertSectionSQL = `
	INSERT INTO extraction_sections (record_id, position, page, title, content, category, label_confidence, is_table)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Upsert writes a record and its sections in one transaction. Re-importing
// content that already exists under the same collection path lands on the
// existing row: the stored record keeps its original ID and extraction
// time, sections are replaced, and the semantic state drops back to
// pending so the mirror pass picks the rewrite up.
func (ds *DocumentStore) Upsert(ctx context.Context, rec *Record, sections []Section) (*Record, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	upsertArgs := []any{
		rec.ID,
		rec.DocumentID,
		rec.SessionID,
		rec.Path,
		rec.Collection.ContentType,
		rec.Collection.GameType,
		rec.Collection.Edition,
		rec.Collection.BookType,
		rec.Collection.Collection,
		rec.ContentHash,
		rec.Source.ISBN,
		rec.Source.Title,
		rec.Source.Author,
		rec.Source.PageCount,
		rec.Confidence,
		rec.Provider,
		rec.Model,
		rec.Degraded,
		len(sections),
		SemanticPending,
	}

	stored, err := repository.WithTx(ctx, ds.db, func(tx *sql.Tx) (Record, error) {
		r, err := repository.QueryOne(ctx, tx, upsertRecordSQL, upsertArgs, scanRecord)
		if err != nil {
			return Record{}, err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM extraction_sections WHERE record_id = $1", r.ID); err != nil {
			return Record{}, err
		}

		for _, sec := range sections {
			if _, err := tx.ExecContext(ctx, insertSectionSQL,
				r.ID, sec.Position, sec.Page, sec.Title, sec.Text, sec.Category, sec.Confidence, sec.IsTable,
			); err != nil {
				return Record{}, err
			}
		}

		return r, nil
	})

	if err != nil {
		return nil, fmt.Errorf("upsert record %s: %w", rec.Path, err)
	}

	ds.logger.Info("record stored",
		"id", stored.ID,
		"path", stored.Path,
		"sections", len(sections),
	)
	return &stored, nil
}

// MarkCommitted flips a record's semantic state after a successful mirror.
func (ds *DocumentStore) MarkCommitted(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, ds.db,
		"UPDATE extraction_records SET semantic_state = $1, updated_at = now() WHERE id = $2",
		SemanticCommitted, id,
	)
	return repository.MapError(err, ErrNotFound, ErrNotFound)
}

// ListPending returns records whose sections have not reached the
// semantic store, oldest first so the repair pass drains in import order.
func (ds *DocumentStore) ListPending(ctx context.Context, limit int) ([]Record, error) {
	qb := query.
		NewBuilder(projection, query.SortField{Field: "ExtractedAt"}).
		WhereEquals("Semantic", string(SemanticPending))

	pageSQL, args := qb.BuildPage(1, limit)
	return repository.QueryMany(ctx, ds.db, pageSQL, args, scanRecord)
}

// Sections returns a record's sections in position order.
func (ds *DocumentStore) Sections(ctx context.Context, recordID uuid.UUID) ([]Section, error) {
	const q = `
		SELECT position, page, title, content, category, label_confidence, is_table
		FROM extraction_sections
		WHERE record_id = $1
		ORDER BY position`
	return repository.QueryMany(ctx, ds.db, q, []any{recordID}, scanSection)
}

// List returns a filtered page of records.
func (ds *DocumentStore) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Path", "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := ds.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	recs, err := repository.QueryMany(ctx, ds.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	result := pagination.NewPageResult(recs, total, page.Page, page.PageSize)
	return &result, nil
}

// Find returns a single record by ID.
func (ds *DocumentStore) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	r, err := repository.QueryOne(ctx, ds.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &r, nil
}

const insertCallSQL = `
	INSERT INTO provider_calls (
		id, session_id, provider, model, scope, prompt_tokens,
		completion_tokens, total_tokens, cost_usd, ok, called_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// InsertProviderCalls writes a session's usage ledger to the audit table.
// Sessions call this once at the end of a run; failures here never fail
// the session, so callers log and move on.
func (ds *DocumentStore) InsertProviderCalls(ctx context.Context, sessionID uuid.UUID, calls []ledger.CallRecord) error {
	if len(calls) == 0 {
		return nil
	}

	_, err := repository.WithTx(ctx, ds.db, func(tx *sql.Tx) (struct{}, error) {
		for _, call := range calls {
			if _, err := tx.ExecContext(ctx, insertCallSQL,
				uuid.New(),
				sessionID,
				call.Provider,
				call.Model,
				call.Scope,
				call.Usage.Prompt,
				call.Usage.Completion,
				call.Usage.Total(),
				call.CostUSD,
				call.OK,
				call.At,
			); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})

	if err != nil {
		return fmt.Errorf("insert provider calls: %w", err)
	}
	return nil
}
