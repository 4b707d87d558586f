package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/validation"
)

// validate runs the accounting checks over the extracted statements and
// persists the result.
func validate(ctx context.Context, rt *Runtime, item WorkItem) (WorkItem, error) {
	if err := rt.enter(ctx, &item, documents.StatusValidating); err != nil {
		return item, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	schema, err := rt.Tenants.Schema(ctx, item.TenantID)
	if err != nil {
		return item, fmt.Errorf("%w: load tenant schema: %w", ErrValidationFailed, err)
	}

	result := validation.Validate(validation.Input{
		Balance: item.Balance,
		Income:  item.Income,
		Schema:  schema,
	})

	if err := rt.Documents.Update(ctx, item.DocumentID, documents.Patch{Validation: result}); err != nil {
		return item, fmt.Errorf("%w: persist: %w", ErrValidationFailed, err)
	}

	item.Validation = result

	rt.Logger.InfoContext(
		ctx, "validate node complete",
		"document_id", item.DocumentID,
		"status", result.Status,
		"warnings", result.Warnings,
		"skipped", len(result.Skipped),
	)

	return item, nil
}
