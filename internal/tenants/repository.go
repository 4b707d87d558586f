package tenants

import (
	"context"
	"database/sql"

	"github.com/JaimeStill/tally/pkg/repository"
)

// Store loads stored schema overrides. Load returns ErrNotFound when the
// tenant has no override.
type Store interface {
	Load(ctx context.Context, tenantID string) (*Schema, error)
}

type repo struct {
	db *sql.DB
}

// NewStore creates a Store over the tenant_schemas table.
func NewStore(db *sql.DB) Store {
	return &repo{db: db}
}

const loadQuery = `
	SELECT tenant_id, balance_fields, income_fields, balance_prompt, income_prompt
	FROM tenant_schemas
	WHERE tenant_id = $1`

func (r *repo) Load(ctx context.Context, tenantID string) (*Schema, error) {
	s, err := repository.QueryOne(ctx, r.db, loadQuery, []any{tenantID}, scanSchema)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidSchema)
	}
	return &s, nil
}

func scanSchema(sc repository.Scanner) (Schema, error) {
	var (
		s       Schema
		balance repository.JSON[[]Field]
		income  repository.JSON[[]Field]
		bPrompt sql.NullString
		iPrompt sql.NullString
	)

	if err := sc.Scan(&s.TenantID, &balance, &income, &bPrompt, &iPrompt); err != nil {
		return s, err
	}

	s.BalanceFields = balance.V
	s.IncomeFields = income.V
	s.BalancePrompt = bPrompt.String
	s.IncomePrompt = iPrompt.String
	return s, nil
}
