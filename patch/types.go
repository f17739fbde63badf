package patch

import "errors"

const (
	OperationAdd     = "add"
	OperationReplace = "replace"
	OperationRemove  = "remove"
)

// ErrPathNotAllowed is returned when an operation targets a path outside
// the allowed set.
var ErrPathNotAllowed = errors.New("path not allowed")

type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Replace builds a replace operation for path.
func Replace(path string, value any) Operation {
	return Operation{Op: OperationReplace, Path: path, Value: value}
}

// Paths returns the distinct paths touched by ops, in order of first use.
func Paths(ops []Operation) []string {
	seen := make(map[string]bool, len(ops))
	paths := make([]string, 0, len(ops))
	for _, op := range ops {
		if seen[op.Path] {
			continue
		}
		seen[op.Path] = true
		paths = append(paths, op.Path)
	}
	return paths
}
