package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Download returns the stored blob for pipeline consumption.
	Download(ctx context.Context, id uuid.UUID) ([]byte, error)

	// SetStatus advances a document's processing status.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}
