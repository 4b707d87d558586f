package workflow_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/workflow"
)

func TestRoute(t *testing.T) {
	classified := []documents.Page{
		{Number: 1, ImagePath: "p1", Classified: true, Recognition: &documents.Recognition{IsIncomeStatement: true}},
	}
	unclassified := []documents.Page{{Number: 1, ImagePath: "p1"}}

	tests := []struct {
		name  string
		op    workflow.Operation
		item  workflow.WorkItem
		stage workflow.Stage
		err   error
	}{
		{"full process", workflow.FullProcess, workflow.WorkItem{Filename: "a.pdf", Content: []byte("x")}, workflow.StageUploadConvert, nil},
		{"full process without filename", workflow.FullProcess, workflow.WorkItem{Content: []byte("x")}, workflow.StageError, workflow.ErrPrecondition},
		{"full process without content", workflow.FullProcess, workflow.WorkItem{Filename: "a.pdf"}, workflow.StageError, workflow.ErrPrecondition},
		{"classify extract", workflow.ClassifyAndExtract, workflow.WorkItem{Pages: unclassified}, workflow.StageClassification, nil},
		{"classify extract without pages", workflow.ClassifyAndExtract, workflow.WorkItem{}, workflow.StageError, workflow.ErrPrecondition},
		{"classify extract missing image", workflow.ClassifyAndExtract, workflow.WorkItem{Pages: []documents.Page{{Number: 1}}}, workflow.StageError, workflow.ErrPrecondition},
		{"extract", workflow.Extract, workflow.WorkItem{Pages: classified}, workflow.StageExtraction, nil},
		{"extract unclassified", workflow.Extract, workflow.WorkItem{Pages: unclassified}, workflow.StageError, workflow.ErrPrecondition},
		{"validate", workflow.Validate, workflow.WorkItem{Income: &documents.Statement{}}, workflow.StageValidation, nil},
		{"validate without results", workflow.Validate, workflow.WorkItem{}, workflow.StageError, workflow.ErrPrecondition},
		{"unknown operation", workflow.Operation("reprocess"), workflow.WorkItem{}, workflow.StageError, workflow.ErrUnknownOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, err := workflow.Route(tt.op, tt.item)
			if stage != tt.stage {
				t.Errorf("stage: got %s, want %s", stage, tt.stage)
			}
			if tt.err == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}

			again, againErr := workflow.Route(tt.op, tt.item)
			if again != stage || (againErr == nil) != (err == nil) {
				t.Error("route should be deterministic")
			}
		})
	}
}

func TestPreconditionMessage(t *testing.T) {
	_, err := workflow.Route(workflow.Validate, workflow.WorkItem{})
	if got := err.Error(); got != "cannot process: document has no extraction results" {
		t.Errorf("message: got %q", got)
	}
}

func TestSequence(t *testing.T) {
	tests := []struct {
		entry workflow.Stage
		want  []workflow.Stage
	}{
		{workflow.StageUploadConvert, []workflow.Stage{
			workflow.StageUploadConvert, workflow.StageClassification, workflow.StageExtraction, workflow.StageValidation, workflow.StageEnd,
		}},
		{workflow.StageExtraction, []workflow.Stage{workflow.StageExtraction, workflow.StageValidation, workflow.StageEnd}},
		{workflow.StageValidation, []workflow.Stage{workflow.StageValidation, workflow.StageEnd}},
		{workflow.StageError, []workflow.Stage{workflow.StageEnd}},
	}

	for _, tt := range tests {
		t.Run(string(tt.entry), func(t *testing.T) {
			if got := workflow.Sequence(tt.entry); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBandsAreContiguous(t *testing.T) {
	stages := []workflow.Stage{
		workflow.StageUploadConvert, workflow.StageClassification, workflow.StageExtraction, workflow.StageValidation,
	}

	prev := 0.0
	for _, s := range stages {
		lo, hi := workflow.Band(s)
		if lo != prev || hi <= lo {
			t.Errorf("%s band: [%v, %v] after %v", s, lo, hi, prev)
		}
		prev = hi
	}
	if prev != 1 {
		t.Errorf("bands end at %v, want 1", prev)
	}
}

func TestOperationValid(t *testing.T) {
	for _, op := range []workflow.Operation{workflow.FullProcess, workflow.ClassifyAndExtract, workflow.Extract, workflow.Validate} {
		if !op.Valid() {
			t.Errorf("%s should be valid", op)
		}
	}
	if workflow.Operation("other").Valid() {
		t.Error("unknown operation should be invalid")
	}
}

func TestRequestRelease(t *testing.T) {
	req := workflow.Request{Content: []byte("pdf")}
	req.Release()
	if req.Content != nil {
		t.Error("release should drop the content")
	}
}
