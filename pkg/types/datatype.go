// Package types provides the core data types for the rowforge serialization engine:
// the scalar type system, the entity/leaf contracts, derived schemas, and the
// in-memory tabular output structures.
package types

import (
	"fmt"
	"time"
)

// Value is a scalar cell value. Permitted concrete types are nil, string,
// int64, float64, bool, Date and time.Time (datetime). Producers may also
// hand in int/int32/float32, which the engine treats as their wide forms.
type Value = interface{}

// DataType identifies the scalar type of a column.
type DataType int

const (
	TypeString DataType = iota
	TypeInteger
	TypeFloat
	TypeBoolean
	TypeDate
	TypeDateTime
)

// String returns the lowercase name of the data type.
func (d DataType) String() string {
	switch d {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	default:
		return fmt.Sprintf("datatype(%d)", int(d))
	}
}

// Unify reconciles two observed scalar types into one. It is total: every
// combination yields a result, trading precision for coverage so that schema
// inference can always complete over inconsistent real-world data.
//
// Rules:
//   - identical types are returned unchanged
//   - integer + float widens to float
//   - either side string widens to string
//   - datetime dominates date
//   - boolean + integer widens to integer
//   - every other combination falls back to string
func Unify(a, b DataType) DataType {
	if a == b {
		return a
	}
	if a == TypeString || b == TypeString {
		return TypeString
	}
	switch {
	case pair(a, b, TypeInteger, TypeFloat):
		return TypeFloat
	case pair(a, b, TypeDate, TypeDateTime):
		return TypeDateTime
	case pair(a, b, TypeBoolean, TypeInteger):
		return TypeInteger
	}
	return TypeString
}

func pair(a, b, x, y DataType) bool {
	return (a == x && b == y) || (a == y && b == x)
}

// InferType reports the scalar type of a non-nil value. The second return is
// false for nil values and for values that are not permitted scalars.
func InferType(v Value) (DataType, bool) {
	switch v.(type) {
	case string:
		return TypeString, true
	case int, int32, int64:
		return TypeInteger, true
	case float32, float64:
		return TypeFloat, true
	case bool:
		return TypeBoolean, true
	case Date:
		return TypeDate, true
	case time.Time:
		return TypeDateTime, true
	default:
		return TypeString, false
	}
}

// IsScalar reports whether v is a permitted scalar cell value. nil is scalar.
func IsScalar(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := InferType(v)
	return ok
}

// Normalize converts narrow numeric forms to the engine's wide forms
// (int64/float64) and leaves every other value untouched.
func Normalize(v Value) Value {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
