package patch

import (
	"fmt"
)

func ValidatePatchOperations(ops []Operation, allowedPaths map[string]bool) error {
	for i, op := range ops {
		if err := validateOperation(op, allowedPaths); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func validateOperation(op Operation, allowedPaths map[string]bool) error {
	switch op.Op {
	case OperationAdd, OperationReplace, OperationRemove:
	default:
		return fmt.Errorf("unsupported op %q", op.Op)
	}
	if len(allowedPaths) == 0 || allowedPaths[op.Path] {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrPathNotAllowed, op.Path)
}
