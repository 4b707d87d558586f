package documents

import "github.com/JaimeStill/tally/pkg/repository"

// Patch is a partial document update. Nil fields are left unchanged.
type Patch struct {
	Status           *Status
	Progress         *int
	StorageKey       *string
	PageCount        *int
	Pages            []Page
	Balance          *Statement
	Income           *Statement
	CompanyInfo      *CompanyInfo
	BalanceDate      *string
	BalanceDatePrior *string
	Validation       *Validation
	ProcessingTime   *ProcessingTime
	ErrorMessage     *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.assignments().Len() == 0
}

// Apply copies the patch onto d.
func (p Patch) Apply(d *Document) {
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Progress != nil {
		d.Progress = *p.Progress
	}
	if p.StorageKey != nil {
		d.StorageKey = *p.StorageKey
	}
	if p.PageCount != nil {
		d.PageCount = *p.PageCount
	}
	if p.Pages != nil {
		d.Pages = p.Pages
	}
	if p.Balance != nil {
		d.Balance = p.Balance
	}
	if p.Income != nil {
		d.Income = p.Income
	}
	if p.CompanyInfo != nil {
		d.CompanyInfo = p.CompanyInfo
	}
	if p.BalanceDate != nil {
		d.BalanceDate = p.BalanceDate
	}
	if p.BalanceDatePrior != nil {
		d.BalanceDatePrior = p.BalanceDatePrior
	}
	if p.Validation != nil {
		d.Validation = p.Validation
	}
	if p.ProcessingTime != nil {
		d.ProcessingTime = p.ProcessingTime
	}
	if p.ErrorMessage != nil {
		d.ErrorMessage = *p.ErrorMessage
	}
}

func (p Patch) assignments() *repository.Assignments {
	a := &repository.Assignments{}

	if p.Status != nil {
		a.Set("status", string(*p.Status))
	}
	if p.Progress != nil {
		a.Set("progress", *p.Progress)
	}
	if p.StorageKey != nil {
		a.Set("storage_key", *p.StorageKey)
	}
	if p.PageCount != nil {
		a.Set("page_count", *p.PageCount)
	}
	if p.Pages != nil {
		a.Set("pages", repository.NewJSON(p.Pages))
	}
	if p.Balance != nil {
		a.Set("balance", repository.NewJSON(*p.Balance))
	}
	if p.Income != nil {
		a.Set("income", repository.NewJSON(*p.Income))
	}
	if p.CompanyInfo != nil {
		a.Set("company_info", repository.NewJSON(*p.CompanyInfo))
	}
	if p.BalanceDate != nil {
		a.Set("balance_date", *p.BalanceDate)
	}
	if p.BalanceDatePrior != nil {
		a.Set("balance_date_prior", *p.BalanceDatePrior)
	}
	if p.Validation != nil {
		a.Set("validation", repository.NewJSON(*p.Validation))
	}
	if p.ProcessingTime != nil {
		a.Set("processing_time", repository.NewJSON(*p.ProcessingTime))
	}
	if p.ErrorMessage != nil {
		a.Set("error_message", *p.ErrorMessage)
	}

	return a
}
