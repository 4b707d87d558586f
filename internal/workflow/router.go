package workflow

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/tally/internal/documents"
)

var sequence = []Stage{
	StageUploadConvert,
	StageClassification,
	StageExtraction,
	StageValidation,
}

// Route returns the entry stage for op given the current item state.
// It has no side effects: the same inputs always yield the same result.
// Rejections wrap ErrPrecondition or ErrUnknownOperation.
func Route(op Operation, item WorkItem) (Stage, error) {
	switch op {
	case FullProcess:
		if item.Filename == "" {
			return StageError, precondition("filename is required")
		}
		if len(item.Content) == 0 {
			return StageError, precondition("file content is empty")
		}
		return StageUploadConvert, nil

	case ClassifyAndExtract:
		if len(item.Pages) == 0 {
			return StageError, precondition("document has no converted pages")
		}
		if slices.ContainsFunc(item.Pages, func(p documents.Page) bool { return p.ImagePath == "" }) {
			return StageError, precondition("document has pages without images")
		}
		return StageClassification, nil

	case Extract:
		if !slices.ContainsFunc(item.Pages, func(p documents.Page) bool { return p.Classified && p.Relevant() }) {
			return StageError, precondition("document has no classified balance sheet or income statement pages")
		}
		return StageExtraction, nil

	case Validate:
		if item.Balance == nil && item.Income == nil {
			return StageError, precondition("document has no extraction results")
		}
		return StageValidation, nil
	}

	return StageError, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}

// Sequence returns the stages run from entry, ending with StageEnd.
func Sequence(entry Stage) []Stage {
	i := slices.Index(sequence, entry)
	if i < 0 {
		return []Stage{StageEnd}
	}
	return append(slices.Clone(sequence[i:]), StageEnd)
}

// Band returns the progress range a stage reports within.
func Band(stage Stage) (lo, hi float64) {
	switch stage {
	case StageUploadConvert:
		return 0, 0.25
	case StageClassification:
		return 0.25, 0.60
	case StageExtraction:
		return 0.60, 0.90
	case StageValidation:
		return 0.90, 1.0
	}
	return 1, 1
}

func precondition(reason string) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, reason)
}
