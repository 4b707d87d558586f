package workflow

import (
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/documents"
)

// Operation selects where a pipeline run enters.
type Operation string

const (
	FullProcess        Operation = "full_process"
	ClassifyAndExtract Operation = "classify_extract"
	Extract            Operation = "extract"
	Validate           Operation = "validate"
)

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	switch o {
	case FullProcess, ClassifyAndExtract, Extract, Validate:
		return true
	}
	return false
}

// Stage names a pipeline step.
type Stage string

const (
	StageUploadConvert  Stage = "upload_convert"
	StageClassification Stage = "classification"
	StageExtraction     Stage = "extraction"
	StageValidation     Stage = "validation"
	StageEnd            Stage = "end"
	StageError          Stage = "error"
)

// Requester identifies the caller that enqueued a request.
type Requester struct {
	ID       string
	TenantID string
}

// Request is one unit of queued work. Content is set for FullProcess only.
type Request struct {
	Operation  Operation
	DocumentID uuid.UUID
	Requester  Requester
	Filename   string
	Content    []byte
}

// Release drops the upload buffer.
func (r *Request) Release() {
	r.Content = nil
}

// Timings records stage durations in seconds.
type Timings struct {
	UploadConvert  *float64
	Classification *float64
	Extraction     *float64
	Validation     *float64
}

func (t *Timings) set(stage Stage, seconds float64) {
	switch stage {
	case StageUploadConvert:
		t.UploadConvert = &seconds
	case StageClassification:
		t.Classification = &seconds
	case StageExtraction:
		t.Extraction = &seconds
	case StageValidation:
		t.Validation = &seconds
	}
}

// timingsFrom restores the stage durations of earlier runs so a resumed
// operation only overwrites the stages it runs.
func timingsFrom(pt *documents.ProcessingTime) Timings {
	if pt == nil {
		return Timings{}
	}
	return Timings{
		UploadConvert:  copyFloat(pt.UploadConvert),
		Classification: copyFloat(pt.Classification),
		Extraction:     copyFloat(pt.Extraction),
		Validation:     copyFloat(pt.Validation),
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ProcessingTime converts t to the persisted form, with the total of the
// recorded stages.
func (t Timings) ProcessingTime() *documents.ProcessingTime {
	var total float64
	for _, v := range []*float64{t.UploadConvert, t.Classification, t.Extraction, t.Validation} {
		if v != nil {
			total += *v
		}
	}
	return &documents.ProcessingTime{
		UploadConvert:  t.UploadConvert,
		Classification: t.Classification,
		Extraction:     t.Extraction,
		Validation:     t.Validation,
		Total:          &total,
	}
}

// WorkItem is the state threaded through one pipeline run. Stages receive
// a copy and return the updated value; slices are cloned before mutation.
type WorkItem struct {
	DocumentID uuid.UUID
	Requester  Requester
	Operation  Operation
	TenantID   string

	Filename string
	Content  []byte

	Pages      []documents.Page
	TotalPages int
	Progress   float64

	Stop       bool
	StopReason string

	Balance          *documents.Statement
	Income           *documents.Statement
	CompanyInfo      *documents.CompanyInfo
	BalanceDate      *string
	BalanceDatePrior *string
	Validation       *documents.Validation

	ErrorMessage string
	Timings      Timings
}

// NewWorkItem seeds a work item from a request.
func NewWorkItem(req Request) WorkItem {
	return WorkItem{
		DocumentID: req.DocumentID,
		Requester:  req.Requester,
		Operation:  req.Operation,
		Filename:   req.Filename,
		Content:    req.Content,
	}
}

// Hydrate copies persisted pipeline results from doc onto the item.
func (w WorkItem) Hydrate(doc *documents.Document) WorkItem {
	w.Pages = slices.Clone(doc.Pages)
	w.TotalPages = doc.PageCount
	if w.TotalPages == 0 {
		w.TotalPages = len(doc.Pages)
	}
	w.Balance = doc.Balance
	w.Income = doc.Income
	w.CompanyInfo = doc.CompanyInfo
	w.BalanceDate = doc.BalanceDate
	w.BalanceDatePrior = doc.BalanceDatePrior
	w.Timings = timingsFrom(doc.ProcessingTime)
	return w
}

// Failed reports whether a stage recorded an error.
func (w WorkItem) Failed() bool {
	return w.ErrorMessage != ""
}

// Percent returns progress as an integer percentage.
func (w WorkItem) Percent() int {
	return percent(w.Progress)
}

func percent(f float64) int {
	return int(math.Round(min(max(f, 0), 1) * 100))
}
