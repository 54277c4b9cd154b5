package domain

import (
	"fmt"
	"sort"
)

// FieldID is the required unique identifier of every record.
const FieldID = "id"

// Record maps field names to scalar values (string, float64, bool or nil).
type Record map[string]any

// ID returns the record identifier, or "" when absent.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Clone returns a shallow copy; values are scalars so this is a full copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a copy of r with patch applied. The id field is never overwritten.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		if k == FieldID {
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize coerces numeric values to float64 and rejects non-scalar values.
func (r Record) Normalize() (Record, error) {
	out := make(Record, len(r))
	for k, v := range r {
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	if id, ok := out[FieldID]; ok && id != nil {
		if _, isString := id.(string); !isString {
			out[FieldID] = fmt.Sprint(id)
		}
	}
	return out, nil
}

// NormalizeValue converts v into one of the scalar record types.
func NormalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalidRecord, v)
	}
}

// FieldOwner is the attribute stamped on records of owner-scoped collections.
const FieldOwner = "owner_id"

// Backend tags the concrete record store behind a handle.
type Backend int

const (
	BackendLocal Backend = iota + 1
	BackendRemote
)

func (b Backend) String() string {
	switch b {
	case BackendLocal:
		return "local"
	case BackendRemote:
		return "remote"
	default:
		return "unknown"
	}
}
