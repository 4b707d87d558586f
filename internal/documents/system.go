package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(defaultTenant string) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	// Update writes the non-nil fields of patch. An empty patch is a no-op.
	Update(ctx context.Context, id uuid.UUID, patch Patch) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}
