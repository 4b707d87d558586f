package tenants

import (
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// BaselineTenant is the tenant id served by the embedded baseline schema.
const BaselineTenant = "default"

//go:embed baseline.toml
var baselineTOML []byte

// Baseline parses the embedded baseline schema.
func Baseline() (*Schema, error) {
	var s Schema
	if err := toml.Unmarshal(baselineTOML, &s); err != nil {
		return nil, fmt.Errorf("parse baseline schema: %w", err)
	}
	if s.TenantID == "" {
		s.TenantID = BaselineTenant
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("baseline schema: %w", err)
	}
	return &s, nil
}
