package home

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type PatchOp string

const (
	OpSet    PatchOp = "set"
	OpAppend PatchOp = "append"
	OpRemove PatchOp = "remove"
)

// Patch addresses one location inside the stored document. Array positions
// are resolved from entity ids under the caller's lock, so a patch only ever
// touches the element it names.
type Patch struct {
	Op    PatchOp
	Path  []string
	Value any
}

func (p Patch) String() string {
	return fmt.Sprintf("%s %v", p.Op, p.Path)
}

// Set replaces the value at path.
func Set(value any, path ...any) Patch {
	return Patch{Op: OpSet, Path: toPath(path), Value: value}
}

// Append adds value to the end of the array at path.
func Append(value any, path ...any) Patch {
	return Patch{Op: OpAppend, Path: toPath(path), Value: value}
}

// Remove deletes the object key or array element at path.
func Remove(path ...any) Patch {
	return Patch{Op: OpRemove, Path: toPath(path)}
}

func toPath(parts []any) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			out = append(out, v)
		case int:
			out = append(out, strconv.Itoa(v))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

// ApplyPatches replays patches against a JSON document. It mirrors what the
// Postgres store does with jsonb_set, || and #- and is used by in-memory
// stores and tests.
func ApplyPatches(doc []byte, patches []Patch) ([]byte, error) {
	var root any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for _, patch := range patches {
		var value any
		if patch.Op != OpRemove {
			raw, err := json.Marshal(patch.Value)
			if err != nil {
				return nil, fmt.Errorf("encode patch %s: %w", patch, err)
			}
			if err := json.Unmarshal(raw, &value); err != nil {
				return nil, fmt.Errorf("decode patch %s: %w", patch, err)
			}
		}
		next, err := applyAt(root, patch.Path, patch.Op, value)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", patch, err)
		}
		root = next
	}
	return json.Marshal(root)
}

func applyAt(node any, path []string, op PatchOp, value any) (any, error) {
	if len(path) == 0 {
		switch op {
		case OpSet:
			return value, nil
		case OpAppend:
			arr, _ := node.([]any)
			return append(arr, value), nil
		default:
			return nil, fmt.Errorf("remove needs a path")
		}
	}

	key := path[0]
	last := len(path) == 1
	switch current := node.(type) {
	case map[string]any:
		if last && op == OpRemove {
			delete(current, key)
			return current, nil
		}
		child, ok := current[key]
		if !ok && !(last && (op == OpSet || op == OpAppend)) {
			return nil, fmt.Errorf("missing key %q", key)
		}
		next, err := applyAt(child, path[1:], op, value)
		if err != nil {
			return nil, err
		}
		current[key] = next
		return current, nil
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(current) {
			return nil, fmt.Errorf("index %q out of range", key)
		}
		if last && op == OpRemove {
			return append(current[:idx:idx], current[idx+1:]...), nil
		}
		next, err := applyAt(current[idx], path[1:], op, value)
		if err != nil {
			return nil, err
		}
		current[idx] = next
		return current, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q", node, key)
	}
}
