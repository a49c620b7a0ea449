package docstore

import (
	"encoding/json"
	"strconv"
)

// Normalize converts an arbitrary Go value into the generic JSON tree
// (map[string]any, []any, string, float64, bool) and prunes null children
// and empty objects, which the store never holds.
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	var raw []byte
	switch v := value.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if isNull(raw) {
		return nil, nil
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return prune(tree), nil
}

// Decode parses raw into the generic tree; absent input yields nil.
func Decode(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, nil
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Encode serializes a tree node; nil encodes as an absent value.
func Encode(node any) (json.RawMessage, error) {
	if node == nil {
		return nil, nil
	}
	return json.Marshal(node)
}

func prune(node any) any {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			pruned := prune(child)
			if pruned == nil {
				delete(v, k)
				continue
			}
			v[k] = pruned
		}
		if len(v) == 0 {
			return nil
		}
		return v
	case []any:
		empty := true
		for i, child := range v {
			v[i] = prune(child)
			if v[i] != nil {
				empty = false
			}
		}
		if empty {
			return nil
		}
		return v
	default:
		return node
	}
}

// Lookup walks rest below node. Arrays are indexed by decimal position.
func Lookup(node any, rest Path) (any, bool) {
	cur := node
	for _, seg := range rest {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok || next == nil {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) || v[i] == nil {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Assign stores value at rest below node and returns the new node. A nil
// value deletes. Intermediate objects are created as needed and emptied
// ones are dropped.
func Assign(node any, rest Path, value any) any {
	if len(rest) == 0 {
		return prune(value)
	}
	obj := asObject(node)
	child := Assign(obj[rest[0]], rest[1:], value)
	if child == nil {
		delete(obj, rest[0])
	} else {
		obj[rest[0]] = child
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}

// Merge applies each field as a child write below rest.
func Merge(node any, rest Path, fields map[string]any) any {
	for k, v := range fields {
		node = Assign(node, rest.Child(k), v)
	}
	return node
}

// asObject returns node as an object, turning arrays into index-keyed
// objects and discarding scalars.
func asObject(node any) map[string]any {
	switch v := node.(type) {
	case map[string]any:
		return v
	case []any:
		obj := make(map[string]any, len(v))
		for i, child := range v {
			if child != nil {
				obj[strconv.Itoa(i)] = child
			}
		}
		return obj
	default:
		return map[string]any{}
	}
}
