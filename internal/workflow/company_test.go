package workflow_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/workflow"
)

func TestNormalizeTaxID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"30-71234567-9", "30712345679"},
		{"30 71234567 9", "30712345679"},
		{"30712345679", "30712345679"},
		{"CUIT: 30.71234567/9", "30712345679"},
		{"3071234567", ""},
		{"307123456790", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := workflow.NormalizeTaxID(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompanyTier(t *testing.T) {
	tests := []struct {
		name string
		rec  *documents.Recognition
		want int
	}{
		{"nil", nil, 0},
		{"no name", &documents.Recognition{HasCompanyID: true}, 0},
		{"everything", &documents.Recognition{HasCompanyName: true, HasCompanyID: true, HasCompanyActivity: true, HasAuditReport: true, HasCompanyAddress: true}, 1},
		{"id activity audit", &documents.Recognition{HasCompanyName: true, HasCompanyID: true, HasCompanyActivity: true, HasAuditReport: true}, 2},
		{"id activity", &documents.Recognition{HasCompanyName: true, HasCompanyID: true, HasCompanyActivity: true}, 3},
		{"id audit", &documents.Recognition{HasCompanyName: true, HasCompanyID: true, HasAuditReport: true}, 4},
		{"id", &documents.Recognition{HasCompanyName: true, HasCompanyID: true}, 5},
		{"activity audit address", &documents.Recognition{HasCompanyName: true, HasCompanyActivity: true, HasAuditReport: true, HasCompanyAddress: true}, 6},
		{"activity audit", &documents.Recognition{HasCompanyName: true, HasCompanyActivity: true, HasAuditReport: true}, 7},
		{"activity", &documents.Recognition{HasCompanyName: true, HasCompanyActivity: true}, 8},
		{"audit", &documents.Recognition{HasCompanyName: true, HasAuditReport: true}, 9},
		{"name only", &documents.Recognition{HasCompanyName: true}, 10},
		{"name and address", &documents.Recognition{HasCompanyName: true, HasCompanyAddress: true}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workflow.CompanyTier(tt.rec); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectCompanyPages(t *testing.T) {
	var (
		full     = documents.Recognition{HasCompanyName: true, HasCompanyID: true, HasCompanyActivity: true, HasAuditReport: true, HasCompanyAddress: true}
		tier2    = documents.Recognition{HasCompanyName: true, HasCompanyID: true, HasCompanyActivity: true, HasAuditReport: true}
		tier3    = documents.Recognition{HasCompanyName: true, HasCompanyID: true, HasCompanyActivity: true}
		nameOnly = documents.Recognition{HasCompanyName: true}
		address  = documents.Recognition{HasCompanyName: true, HasCompanyAddress: true}
		idOnly   = documents.Recognition{HasCompanyID: true}
		blank    = documents.Recognition{}
		rotated  = func(r documents.Recognition) documents.Recognition { r.RotationDegrees = 90; return r }
	)

	tests := []struct {
		name string
		recs []documents.Recognition
		want []int
	}{
		{"tier one with later companion", []documents.Recognition{blank, blank, full, blank, tier3}, []int{2, 4}},
		{"tier two prefers address page", []documents.Recognition{tier2, tier3, blank, address}, []int{0, 3}},
		{"upright primary", []documents.Recognition{rotated(full), full}, []int{1}},
		{"name only takes last companion", []documents.Recognition{nameOnly, nameOnly, nameOnly}, []int{0, 2}},
		{"id pages fallback", []documents.Recognition{idOnly, blank, idOnly, idOnly}, []int{0, 3}},
		{"single id page", []documents.Recognition{blank, idOnly}, []int{1}},
		{"nothing", []documents.Recognition{blank, blank}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := make([]documents.Page, len(tt.recs))
			for i, rec := range tt.recs {
				pages[i] = documents.Page{Number: i + 1, Classified: true, Recognition: &rec}
			}

			if got := workflow.SelectCompanyPages(pages); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConform(t *testing.T) {
	schema := testSchema()
	items := documents.LineItems{
		{ConceptCode: "patrimonio_neto", CurrentAmount: 400},
		{ConceptCode: "unknown", CurrentAmount: 1},
		{ConceptCode: "activo_total", CurrentAmount: 1000, Label: "model label"},
		{ConceptCode: "patrimonio_neto", CurrentAmount: 9},
	}

	got := workflow.Conform(items, schema.BalanceCodes(), schema)

	if codes := got.Codes(); !slices.Equal(codes, []string{"activo_total", "patrimonio_neto"}) {
		t.Fatalf("codes: got %v", codes)
	}
	if got[0].Label != "Total del activo" {
		t.Errorf("label: got %q", got[0].Label)
	}
	if got[1].CurrentAmount != 400 {
		t.Errorf("first occurrence should win, got %v", got[1].CurrentAmount)
	}
}

func TestStatementPrompt(t *testing.T) {
	got := workflow.StatementPrompt("  read the balance  ", []string{"activo_total", "pasivo_total"})
	want := "read the balance\n\nUse only these concept codes:\n- activo_total\n- pasivo_total\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
