// Package documents implements the document domain: the persisted record of
// one financial-statement PDF as it moves through the processing pipeline.
package documents

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a document.
type Status string

const (
	StatusQueued      Status = "Queued"
	StatusUploading   Status = "Uploading"
	StatusUploaded    Status = "Uploaded"
	StatusClassifying Status = "Classifying"
	StatusExtracting  Status = "Extracting"
	StatusValidating  Status = "Validating"
	StatusAnalyzed    Status = "Analyzed"
	StatusNoData      Status = "NoData"
	StatusError       Status = "Error"
)

var statuses = []Status{
	StatusQueued, StatusUploading, StatusUploaded,
	StatusClassifying, StatusExtracting, StatusValidating,
	StatusAnalyzed, StatusNoData, StatusError,
}

// ParseStatus matches name case-insensitively against the known statuses.
func ParseStatus(name string) (Status, error) {
	for _, s := range statuses {
		if strings.EqualFold(string(s), name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, name)
}

// Terminal reports whether s ends a pipeline run.
func (s Status) Terminal() bool {
	switch s {
	case StatusAnalyzed, StatusNoData, StatusError:
		return true
	}
	return false
}

// Document is the persisted record for one uploaded statement PDF.
type Document struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         string          `json:"tenant_id"`
	RequesterID      string          `json:"requester_id"`
	Filename         string          `json:"filename"`
	StorageKey       string          `json:"storage_key"`
	Status           Status          `json:"status"`
	Progress         int             `json:"progress"`
	PageCount        int             `json:"page_count"`
	Pages            []Page          `json:"pages"`
	Balance          *Statement      `json:"balance,omitempty"`
	Income           *Statement      `json:"income,omitempty"`
	CompanyInfo      *CompanyInfo    `json:"company_info,omitempty"`
	BalanceDate      *string         `json:"balance_date,omitempty"`
	BalanceDatePrior *string         `json:"balance_date_prior,omitempty"`
	Validation       *Validation     `json:"validation,omitempty"`
	ProcessingTime   *ProcessingTime `json:"processing_time,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Page is one rasterized page of a document.
// Number is 1-based. ImagePath is the storage key of the page PNG.
type Page struct {
	Number      int          `json:"number"`
	ImagePath   string       `json:"image_path"`
	Classified  bool         `json:"classified"`
	Recognition *Recognition `json:"recognition,omitempty"`
	Rotated     bool         `json:"rotated,omitempty"`
	CompanyInfo bool         `json:"company_info,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Relevant reports whether the page was classified as a balance sheet or
// income statement.
func (p Page) Relevant() bool {
	return p.Recognition != nil && (p.Recognition.IsBalanceSheet || p.Recognition.IsIncomeStatement)
}

// Upright reports whether the page needed no rotation.
func (p Page) Upright() bool {
	return p.Recognition == nil || p.Recognition.RotationDegrees == 0
}

// Recognition holds the per-page classification flags.
type Recognition struct {
	IsBalanceSheet     bool `json:"is_balance_sheet"`
	IsIncomeStatement  bool `json:"is_income_statement"`
	IsAppendix         bool `json:"is_appendix"`
	RotationDegrees    int  `json:"rotation_degrees"`
	HasCompanyName     bool `json:"has_company_name"`
	HasCompanyID       bool `json:"has_company_id"`
	HasCompanyAddress  bool `json:"has_company_address"`
	HasCompanyActivity bool `json:"has_company_activity"`
	HasAuditReport     bool `json:"has_audit_report"`
}

// CompanyInfo identifies the reporting company.
// TaxID is the 11-digit legal identifier, or empty when none was found.
type CompanyInfo struct {
	TaxID    string `json:"tax_id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Activity string `json:"activity"`
}

// ProcessingTime records stage durations in seconds.
type ProcessingTime struct {
	UploadConvert  *float64 `json:"upload_convert,omitempty"`
	Classification *float64 `json:"classification,omitempty"`
	Extraction     *float64 `json:"extraction,omitempty"`
	Validation     *float64 `json:"validation,omitempty"`
	Total          *float64 `json:"total,omitempty"`
}

// Validation is the outcome of the accounting-identity checks.
type Validation struct {
	Status   Status        `json:"status"`
	Outcomes []RuleOutcome `json:"outcomes"`
	Skipped  []string      `json:"skipped,omitempty"`
	Messages []string      `json:"messages,omitempty"`
	Warnings bool          `json:"warnings"`
}

// Failed returns the outcomes that did not pass.
func (v *Validation) Failed() []RuleOutcome {
	var failed []RuleOutcome
	for _, o := range v.Outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	return failed
}

// RuleOutcome is one evaluated rule for one period.
// Period is "current", "prior", or "cross" for rules spanning both.
type RuleOutcome struct {
	RuleID  string `json:"rule_id"`
	Period  string `json:"period"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// CreateCommand carries the data needed to register a new document.
// A zero ID is replaced with a generated one.
type CreateCommand struct {
	ID          uuid.UUID
	TenantID    string
	RequesterID string
	Filename    string
}
