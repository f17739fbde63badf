package patch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// GeneratePatchesFromInitial returns the operations that move current
// towards initial. Zero values in initial are skipped so a partial initial
// value never clears what is already set.
func GeneratePatchesFromInitial[T any](current, initial T) ([]Operation, error) {
	currentMap, err := toMap(current)
	if err != nil {
		return nil, fmt.Errorf("failed to convert current state: %w", err)
	}
	initialMap, err := toMap(initial)
	if err != nil {
		return nil, fmt.Errorf("failed to convert initial state: %w", err)
	}

	ops := make([]Operation, 0)
	generatePatchesFromMap("", currentMap, initialMap, &ops)
	return ops, nil
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func generatePatchesFromMap(prefix string, current, initial map[string]any, ops *[]Operation) {
	keys := make([]string, 0, len(initial))
	for key := range initial {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		initialValue := initial[key]
		if isZeroValue(initialValue) {
			continue
		}

		path := prefix + "/" + escapeJSONPointer(key)
		currentValue, existsInCurrent := current[key]

		if initialMap, ok := initialValue.(map[string]any); ok {
			if currentMap, ok := currentValue.(map[string]any); ok {
				generatePatchesFromMap(path, currentMap, initialMap, ops)
			} else {
				*ops = append(*ops, Operation{Op: OperationReplace, Path: path, Value: initialValue})
			}
			continue
		}

		switch {
		case !existsInCurrent:
			*ops = append(*ops, Operation{Op: OperationAdd, Path: path, Value: initialValue})
		case !reflect.DeepEqual(currentValue, initialValue):
			*ops = append(*ops, Operation{Op: OperationReplace, Path: path, Value: initialValue})
		}
	}
}

func escapeJSONPointer(token string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(token)
}

func isZeroValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case float64:
		return val == 0
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
