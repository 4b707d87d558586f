package documents

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(defaultTenant string) *Handler {
	return NewHandler(r, r.logger, r.pagination, defaultTenant)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)

	return repository.WithTx(ctx, r.db, repository.Snapshot, func(tx *sql.Tx) (*pagination.PageResult[Document], error) {
		var total int
		if err := tx.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}

		docs, err := repository.QueryMany(ctx, tx, pageSQL, pageArgs, scanDocument)
		if err != nil {
			return nil, fmt.Errorf("query documents: %w", err)
		}

		result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
		return &result, nil
	})
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	id := cmd.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	const insert = `
		INSERT INTO documents AS d (id, tenant_id, requester_id, filename, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `

	args := []any{id, cmd.TenantID, cmd.RequesterID, cmd.Filename, string(StatusQueued)}

	d, err := repository.QueryOne(ctx, r.db, insert+projection.Columns(), args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "id", d.ID, "tenant_id", d.TenantID, "filename", d.Filename)
	return &d, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, patch Patch) error {
	a := patch.assignments()
	if a.Len() == 0 {
		return nil
	}

	q, args := a.Build("documents", "id", id, "updated_at = now()")
	if err := repository.ExecExpectOne(ctx, r.db, q, args...); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.Update(ctx, id, Patch{Status: &status})
}
