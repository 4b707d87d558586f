package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/llm"
	"github.com/JaimeStill/tally/internal/tenants"
	"github.com/JaimeStill/tally/pkg/storage"
)

// StopNoExtractablePages is the stop reason when no page set can be extracted.
const StopNoExtractablePages = "no pages available for extraction"

// extract reads the balance sheet, income statement, and company
// identification concurrently. Each result is persisted as soon as it is
// available; a failure in one task does not cancel the others.
func extract(ctx context.Context, rt *Runtime, item WorkItem) (WorkItem, error) {
	if err := rt.enter(ctx, &item, documents.StatusExtracting); err != nil {
		return item, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	schema, err := rt.Tenants.Schema(ctx, item.TenantID)
	if err != nil {
		return item, fmt.Errorf("%w: load tenant schema: %w", ErrExtractFailed, err)
	}

	pages := slices.Clone(item.Pages)
	for i := range pages {
		pages[i].CompanyInfo = false
	}

	var balancePages, incomePages []documents.Page
	for _, p := range pages {
		if !p.Classified || p.Recognition == nil {
			continue
		}
		if p.Recognition.IsBalanceSheet {
			balancePages = append(balancePages, p)
		}
		if p.Recognition.IsIncomeStatement {
			incomePages = append(incomePages, p)
		}
	}

	var companyPages []documents.Page
	for _, i := range SelectCompanyPages(pages) {
		pages[i].CompanyInfo = true
		companyPages = append(companyPages, pages[i])
	}

	if len(balancePages) == 0 && len(incomePages) == 0 && len(companyPages) == 0 {
		item.Stop = true
		item.StopReason = StopNoExtractablePages
		return item, nil
	}

	item.Pages = pages
	if err := rt.Documents.Update(ctx, item.DocumentID, documents.Patch{Pages: pages}); err != nil {
		return item, fmt.Errorf("%w: persist company pages: %w", ErrExtractFailed, err)
	}

	progress := rt.reporter(&item, StageExtraction, documents.StatusExtracting)
	progress.report(ctx, 1.0/3)

	var (
		wg                    sync.WaitGroup
		balance, income       *documents.Statement
		company               *documents.CompanyInfo
		balanceErr, incomeErr error
		companyErr            error
	)

	if len(balancePages) > 0 {
		wg.Go(func() {
			balance, balanceErr = extractBalance(ctx, rt, item, schema, balancePages)
		})
	}
	if len(incomePages) > 0 {
		wg.Go(func() {
			income, incomeErr = extractIncome(ctx, rt, item, schema, incomePages)
		})
	}
	if len(companyPages) > 0 {
		wg.Go(func() {
			company, companyErr = extractCompany(ctx, rt, item, companyPages)
		})
	}
	wg.Wait()

	var failures []string
	for _, f := range []struct {
		name string
		err  error
	}{
		{"Balance", balanceErr},
		{"Income", incomeErr},
		{"Company info", companyErr},
	} {
		if f.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.name, f.err))
		}
	}

	if len(failures) > 0 {
		return item, fmt.Errorf("%w: %s", ErrExtractFailed, strings.Join(failures, "; "))
	}

	if balance != nil {
		item.Balance = balance
		item.BalanceDate = nonEmpty(balance.General.CurrentPeriod)
		item.BalanceDatePrior = nonEmpty(balance.General.PriorPeriod)
	}
	if income != nil {
		item.Income = income
	}
	if company != nil {
		item.CompanyInfo = company
	}

	progress.report(ctx, 2.0/3)

	rt.Logger.InfoContext(
		ctx, "extract node complete",
		"document_id", item.DocumentID,
		"balance_pages", len(balancePages),
		"income_pages", len(incomePages),
		"company_pages", len(companyPages),
	)

	return item, nil
}

func extractBalance(ctx context.Context, rt *Runtime, item WorkItem, schema *tenants.Schema, pages []documents.Page) (*documents.Statement, error) {
	codes := schema.BalanceCodes()

	st, err := extractStatement(ctx, rt, schema.BalancePrompt, codes, pages)
	if err != nil {
		return nil, err
	}
	st.Items = Conform(st.Items, codes, schema)

	patch := documents.Patch{
		Balance:          st,
		BalanceDate:      nonEmpty(st.General.CurrentPeriod),
		BalanceDatePrior: nonEmpty(st.General.PriorPeriod),
	}
	if err := rt.Documents.Update(ctx, item.DocumentID, patch); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return st, nil
}

func extractIncome(ctx context.Context, rt *Runtime, item WorkItem, schema *tenants.Schema, pages []documents.Page) (*documents.Statement, error) {
	codes := schema.IncomeCodes()

	st, err := extractStatement(ctx, rt, schema.IncomePrompt, codes, pages)
	if err != nil {
		return nil, err
	}
	st.Items = Conform(st.Items, codes, schema)

	if err := rt.Documents.Update(ctx, item.DocumentID, documents.Patch{Income: st}); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return st, nil
}

func extractCompany(ctx context.Context, rt *Runtime, item WorkItem, pages []documents.Page) (*documents.CompanyInfo, error) {
	images, err := loadImages(ctx, rt, pages)
	if err != nil {
		return nil, err
	}

	var info documents.CompanyInfo
	req := llm.Request{Prompt: llm.CompanyPrompt, Images: images}
	if err := rt.Model.ExtractStructured(ctx, req, llm.CompanySchema(), &info); err != nil {
		return nil, err
	}
	info.TaxID = NormalizeTaxID(info.TaxID)

	if err := rt.Documents.Update(ctx, item.DocumentID, documents.Patch{CompanyInfo: &info}); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return &info, nil
}

func extractStatement(ctx context.Context, rt *Runtime, prompt string, codes []string, pages []documents.Page) (*documents.Statement, error) {
	images, err := loadImages(ctx, rt, pages)
	if err != nil {
		return nil, err
	}

	req := llm.Request{
		Prompt: StatementPrompt(prompt, codes),
		Images: images,
	}

	var st documents.Statement
	if err := rt.Model.ExtractStructured(ctx, req, llm.StatementSchema(codes), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StatementPrompt appends the allowed concept codes to a tenant prompt.
func StatementPrompt(prompt string, codes []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString("\n\nUse only these concept codes:\n")
	for _, c := range codes {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

// Conform keeps the items whose code is in codes, drops repeated codes
// after their first occurrence, labels each item from the schema, and
// orders the result as codes are declared.
func Conform(items documents.LineItems, codes []string, schema *tenants.Schema) documents.LineItems {
	seen := make(map[string]struct{}, len(items))
	var kept documents.LineItems

	for _, item := range items {
		if !slices.Contains(codes, item.ConceptCode) {
			continue
		}
		if _, dup := seen[item.ConceptCode]; dup {
			continue
		}
		seen[item.ConceptCode] = struct{}{}

		item.Label = schema.Label(item.ConceptCode)
		kept = append(kept, item)
	}

	slices.SortStableFunc(kept, func(a, b documents.LineItem) int {
		return slices.Index(codes, a.ConceptCode) - slices.Index(codes, b.ConceptCode)
	})
	return kept
}

func loadImages(ctx context.Context, rt *Runtime, pages []documents.Page) ([]llm.Image, error) {
	images := make([]llm.Image, 0, len(pages))
	for i, p := range pages {
		data, err := storage.Get(ctx, rt.Storage, p.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("download page %d: %w", p.Number, err)
		}
		images = append(images, llm.Image{
			Label:    fmt.Sprintf("IMAGE %d", i+1),
			Data:     data,
			MIMEType: pngContentType,
		})
	}
	if len(images) == 0 {
		return nil, errors.New("no page images")
	}
	return images, nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
