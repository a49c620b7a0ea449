package docstore

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// StringList decodes an id list stored either as a JSON array (null slots
// skipped) or as an object whose values are the ids, which is how the hosted
// store returns arrays after an element has been deleted.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*l = nil
		return nil
	}
	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil {
		out := make(StringList, 0, len(arr))
		for _, item := range arr {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sortKeys(keys)
	out := make(StringList, 0, len(obj))
	for _, k := range keys {
		if s, ok := scalarString(obj[k]); ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// Contains reports whether id is in the list.
func (l StringList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Without returns a copy of l with every occurrence of id removed.
func (l StringList) Without(id string) StringList {
	out := make(StringList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Flag decodes a boolean that older records may hold as a non-empty string.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			*f = Flag(strings.TrimSpace(t) != "")
		} else {
			*f = Flag(b)
		}
	case float64:
		*f = Flag(t != 0)
	default:
		*f = false
	}
	return nil
}

// sortKeys orders numeric keys numerically and the rest lexically after them.
func sortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

// SortedKeys returns the keys of obj in store order.
func SortedKeys(obj map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Children decodes a collection node that may be stored as an object keyed
// by id or as an array indexed by position. Null slots are skipped.
func Children(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(raw) {
		return map[string]json.RawMessage{}, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make(map[string]json.RawMessage, len(arr))
		for i, item := range arr {
			if isNull(item) {
				continue
			}
			out[strconv.Itoa(i)] = item
		}
		return out, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	for k, v := range obj {
		if isNull(v) {
			delete(obj, k)
		}
	}
	return obj, nil
}
