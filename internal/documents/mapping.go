package documents

import (
	"net/url"
	"strings"

	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("requester_id", "RequesterID").
	Project("filename", "Filename").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("progress", "Progress").
	Project("page_count", "PageCount").
	Project("pages", "Pages").
	Project("balance", "Balance").
	Project("income", "Income").
	Project("company_info", "CompanyInfo").
	Project("balance_date", "BalanceDate").
	Project("balance_date_prior", "BalanceDatePrior").
	Project("validation", "Validation").
	Project("processing_time", "ProcessingTime").
	Project("error_message", "ErrorMessage").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil or empty fields are ignored. Statuses match any listed status;
// Filename uses case-insensitive contains matching.
type Filters struct {
	TenantID    *string  `json:"tenant_id,omitempty"`
	RequesterID *string  `json:"requester_id,omitempty"`
	Statuses    []Status `json:"statuses,omitempty"`
	Filename    *string  `json:"filename,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereEquals("TenantID", f.TenantID).
		WhereEquals("RequesterID", f.RequesterID).
		WhereContains("Filename", f.Filename)
	return query.WhereIn(b, "Status", f.Statuses)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// status accepts a comma-separated list; an unknown status is an
// ErrInvalidStatus. Tenant scoping is applied by the caller, never from
// the query string.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	for name := range strings.SplitSeq(values.Get("status"), ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		s, err := ParseStatus(name)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, s)
	}
	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}
	if rid := values.Get("requester_id"); rid != "" {
		f.RequesterID = &rid
	}

	return f, nil
}

func scanDocument(s repository.Scanner) (Document, error) {
	var (
		d          Document
		pages      repository.JSON[[]Page]
		balance    repository.JSON[Statement]
		income     repository.JSON[Statement]
		company    repository.JSON[CompanyInfo]
		validation repository.JSON[Validation]
		timing     repository.JSON[ProcessingTime]
	)

	err := s.Scan(
		&d.ID,
		&d.TenantID,
		&d.RequesterID,
		&d.Filename,
		&d.StorageKey,
		&d.Status,
		&d.Progress,
		&d.PageCount,
		&pages,
		&balance,
		&income,
		&company,
		&d.BalanceDate,
		&d.BalanceDatePrior,
		&validation,
		&timing,
		&d.ErrorMessage,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}

	d.Pages = pages.V
	if balance.Valid {
		d.Balance = &balance.V
	}
	if income.Valid {
		d.Income = &income.V
	}
	if company.Valid {
		d.CompanyInfo = &company.V
	}
	if validation.Valid {
		d.Validation = &validation.V
	}
	if timing.Valid {
		d.ProcessingTime = &timing.V
	}

	return d, nil
}
