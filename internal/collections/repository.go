package collections

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/pagination"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/repository"
)

// System defines the public contract for collection browse operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Collection], error)

	Find(ctx context.Context, path string) (*Collection, error)
}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a collection repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "collections"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

const collectionSelect = `
	SELECT collection_path, content_type, game_type, edition, book_type, collection_name,
	       COUNT(*)::int, COALESCE(SUM(section_count), 0)::int, MAX(extracted_at)
	FROM extraction_records`

const collectionGroup = `
	GROUP BY collection_path, content_type, game_type, edition, book_type, collection_name`

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Collection], error) {
	page.Normalize(r.pagination)

	where, args := buildWhere(filters, page.Search)

	var total int
	countSQL := "SELECT COUNT(DISTINCT collection_path) FROM extraction_records" + where
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count collections: %w", err)
	}

	pageSQL := fmt.Sprintf("%s%s%s ORDER BY collection_path LIMIT $%d OFFSET $%d",
		collectionSelect, where, collectionGroup, len(args)+1, len(args)+2)
	pageArgs := append(args, page.PageSize, page.Offset())

	cols, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanCollection)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}

	result := pagination.NewPageResult(cols, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, path string) (*Collection, error) {
	if _, err := ParsePath(path); err != nil {
		return nil, err
	}

	q := collectionSelect + " WHERE collection_path = $1" + collectionGroup

	c, err := repository.QueryOne(ctx, r.db, q, []any{path}, scanCollection)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &c, nil
}

func buildWhere(filters Filters, search *string) (string, []any) {
	var conditions []string
	var args []any

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("content_type", filters.ContentType)
	add("game_type", filters.GameType)
	add("edition", filters.Edition)
	add("book_type", filters.BookType)

	if search != nil && *search != "" {
		args = append(args, "%"+*search+"%")
		conditions = append(conditions, fmt.Sprintf("collection_path ILIKE $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
