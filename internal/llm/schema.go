package llm

import "google.golang.org/genai"

// ClassificationSchema is the response schema for page classification.
func ClassificationSchema() *genai.Schema {
	flag := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeBoolean, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"is_balance_sheet":    flag("page shows a balance sheet"),
			"is_income_statement": flag("page shows an income statement"),
			"is_appendix":         flag("page is an annex or supporting schedule"),
			"rotation_degrees": {
				Type:        genai.TypeInteger,
				Description: "clockwise rotation that makes the text upright: 0, 90, 180 or 270",
			},
			"has_company_name":     flag("page shows the company legal name"),
			"has_company_id":       flag("page shows the company tax id"),
			"has_company_address":  flag("page shows the registered address"),
			"has_company_activity": flag("page shows the main business activity"),
			"has_audit_report":     flag("page is part of the auditor's report"),
		},
		Required: []string{
			"is_balance_sheet", "is_income_statement", "is_appendix", "rotation_degrees",
			"has_company_name", "has_company_id", "has_company_address",
			"has_company_activity", "has_audit_report",
		},
	}
}

// StatementSchema is the response schema for balance or income extraction.
// concept_code is constrained to codes.
func StatementSchema(codes []string) *genai.Schema {
	amount := &genai.Schema{Type: genai.TypeNumber}
	text := &genai.Schema{Type: genai.TypeString}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"general": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"company":        text,
					"current_period": text,
					"prior_period":   text,
				},
			},
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"concept_code":   {Type: genai.TypeString, Enum: codes},
						"current_amount": amount,
						"prior_amount":   amount,
					},
					Required: []string{"concept_code", "current_amount", "prior_amount"},
				},
			},
			"details": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"section":        text,
						"concept":        text,
						"current_amount": amount,
						"prior_amount":   amount,
					},
				},
			},
		},
		Required: []string{"general", "items"},
	}
}

// CompanySchema is the response schema for company identification.
func CompanySchema() *genai.Schema {
	field := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc, Nullable: genai.Ptr(true)}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"tax_id":   field("11-digit tax identification number (CUIT)"),
			"name":     field("legal company name"),
			"address":  field("registered legal address"),
			"activity": field("main business activity"),
		},
	}
}
