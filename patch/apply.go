package patch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Apply runs ops against the JSON form of doc and decodes the result back
// into a fresh T. Every operation is validated against allowed before doc is
// touched; an empty allowed set permits any path. doc itself is never
// modified.
func Apply[T any](doc T, ops []Operation, allowed map[string]bool) (T, error) {
	var zero T
	if err := ValidatePatchOperations(ops, allowed); err != nil {
		return zero, fmt.Errorf("invalid patch: %w", err)
	}
	if len(ops) == 0 {
		return doc, nil
	}

	src, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("encode document: %w", err)
	}
	ops, err = upgradeReplaces(src, ops)
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(ops)
	if err != nil {
		return zero, fmt.Errorf("encode patch: %w", err)
	}
	p, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return zero, fmt.Errorf("decode patch: %w", err)
	}

	opts := jsonpatch.NewApplyOptions()
	opts.AllowMissingPathOnRemove = true
	out, err := p.ApplyWithOptions(src, opts)
	if err != nil {
		return zero, fmt.Errorf("apply patch: %w", err)
	}

	var next T
	if err := json.Unmarshal(out, &next); err != nil {
		return zero, fmt.Errorf("decode patched document: %w", err)
	}
	return next, nil
}

// upgradeReplaces turns a replace of a path that src lacks into an add, so a
// draft with omitted fields can still be filled in with replace operations.
func upgradeReplaces(src []byte, ops []Operation) ([]Operation, error) {
	var tree any
	if err := json.Unmarshal(src, &tree); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	out := make([]Operation, len(ops))
	for i, op := range ops {
		if op.Op == OperationReplace && !present(tree, op.Path) {
			op.Op = OperationAdd
		}
		out[i] = op
	}
	return out, nil
}

// present walks an RFC 6901 pointer through a decoded JSON tree.
func present(tree any, pointer string) bool {
	if pointer == "" {
		return true
	}
	tokens, ok := strings.CutPrefix(pointer, "/")
	if !ok {
		return false
	}
	unescape := strings.NewReplacer("~1", "/", "~0", "~")
	node := tree
	for _, tok := range strings.Split(tokens, "/") {
		tok = unescape.Replace(tok)
		switch v := node.(type) {
		case map[string]any:
			child, found := v[tok]
			if !found {
				return false
			}
			node = child
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(v) {
				return false
			}
			node = v[i]
		default:
			return false
		}
	}
	return true
}
