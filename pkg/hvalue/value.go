package hvalue

import (
	"fmt"
	"time"
)

// Kind identifies which case a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTimestamp
	KindDuration
	KindNodeRef
	KindEdgeRef
)

// String returns the DSL-facing name of a Kind, e.g. "Int", "Timestamp".
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindTimestamp:
		return "Timestamp"
	case KindDuration:
		return "Duration"
	case KindNodeRef:
		return "NodeRef"
	case KindEdgeRef:
		return "EdgeRef"
	default:
		return "Unknown"
	}
}

// Value is the tagged sum every attribute assignment, expression result,
// and pattern binding is expressed in. The zero Value is Null.
//
// Timestamp and Duration are both represented as an int64 internally
// (epoch-milliseconds and milliseconds respectively) so that an Int
// literal can be promoted into either without loss, per the promotion
// rules in TypesCompatible.
type Value struct {
	kind    Kind
	boolV   bool
	intV    int64
	floatV  float64
	stringV string
	nodeV   NodeId
	edgeV   EdgeId
}

// Null is the Null value.
var Null = Value{kind: KindNull}

// NewBool constructs a Bool value.
func NewBool(b bool) Value { return Value{kind: KindBool, boolV: b} }

// NewInt constructs an Int value.
func NewInt(i int64) Value { return Value{kind: KindInt, intV: i} }

// NewFloat constructs a Float value.
func NewFloat(f float64) Value { return Value{kind: KindFloat, floatV: f} }

// NewString constructs a String value.
func NewString(s string) Value { return Value{kind: KindString, stringV: s} }

// NewTimestamp constructs a Timestamp value from epoch-milliseconds.
func NewTimestamp(epochMs int64) Value { return Value{kind: KindTimestamp, intV: epochMs} }

// NewTimestampFromTime constructs a Timestamp value from a time.Time.
func NewTimestampFromTime(t time.Time) Value {
	return Value{kind: KindTimestamp, intV: t.UnixMilli()}
}

// NewDuration constructs a Duration value from a millisecond count.
func NewDuration(ms int64) Value { return Value{kind: KindDuration, intV: ms} }

// NewDurationFromDuration constructs a Duration value from a time.Duration.
func NewDurationFromDuration(d time.Duration) Value {
	return Value{kind: KindDuration, intV: d.Milliseconds()}
}

// NewNodeRef constructs a NodeRef value.
func NewNodeRef(id NodeId) Value { return Value{kind: KindNodeRef, nodeV: id} }

// NewEdgeRef constructs an EdgeRef value.
func NewEdgeRef(id EdgeId) Value { return Value{kind: KindEdgeRef, edgeV: id} }

// Kind reports which case this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether this Value is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the wrapped bool and true, or false and false if this is
// not a Bool value.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolV, true
}

// Int returns the wrapped int64 and true, or 0 and false if this is not
// an Int value.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.intV, true
}

// Float returns the wrapped float64 and true, or 0 and false if this is
// not a Float value.
func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.floatV, true
}

// String returns the wrapped string and true, or "" and false if this is
// not a String value.
func (v Value) String() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.stringV, true
}

// TimestampMillis returns the wrapped epoch-millisecond count and true, or
// 0 and false if this is not a Timestamp value.
func (v Value) TimestampMillis() (int64, bool) {
	if v.kind != KindTimestamp {
		return 0, false
	}
	return v.intV, true
}

// DurationMillis returns the wrapped millisecond count and true, or 0 and
// false if this is not a Duration value.
func (v Value) DurationMillis() (int64, bool) {
	if v.kind != KindDuration {
		return 0, false
	}
	return v.intV, true
}

// NodeRef returns the wrapped NodeId and true, or 0 and false if this is
// not a NodeRef value.
func (v Value) NodeRef() (NodeId, bool) {
	if v.kind != KindNodeRef {
		return 0, false
	}
	return v.nodeV, true
}

// EdgeRef returns the wrapped EdgeId and true, or 0 and false if this is
// not an EdgeRef value.
func (v Value) EdgeRef() (EdgeId, bool) {
	if v.kind != KindEdgeRef {
		return 0, false
	}
	return v.edgeV, true
}

// GoString renders a Value for debugging/error messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "Null"
	case KindBool:
		return fmt.Sprintf("%t", v.boolV)
	case KindInt:
		return fmt.Sprintf("%d", v.intV)
	case KindFloat:
		return fmt.Sprintf("%g", v.floatV)
	case KindString:
		return fmt.Sprintf("%q", v.stringV)
	case KindTimestamp:
		return fmt.Sprintf("Timestamp(%d)", v.intV)
	case KindDuration:
		return fmt.Sprintf("Duration(%dms)", v.intV)
	case KindNodeRef:
		return v.nodeV.String()
	case KindEdgeRef:
		return v.edgeV.String()
	default:
		return "<invalid>"
	}
}

// AsFloat64 returns the value's numeric content promoted to float64,
// applying the same Int->Float/Duration/Timestamp promotion rule used by
// TypesCompatible. It returns false for any non-numeric kind.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.intV), true
	case KindFloat:
		return v.floatV, true
	case KindTimestamp, KindDuration:
		return float64(v.intV), true
	default:
		return 0, false
	}
}

// TypesCompatible reports whether a value of kind `actual` may be
// assigned to an attribute declared as kind `expected`, per the
// promotion rules: exact match always works; Null satisfies any
// declared kind (absence of a value is never itself a type violation);
// an Int literal widens into Float, Duration, or Timestamp.
func TypesCompatible(expected, actual Kind) bool {
	if expected == actual {
		return true
	}
	if actual == KindNull {
		return true
	}
	if expected == KindFloat && actual == KindInt {
		return true
	}
	if (expected == KindDuration || expected == KindTimestamp) && actual == KindInt {
		return true
	}
	return false
}

// Compare orders two values of the same promoted numeric/string/bool/
// timestamp/duration kind. It returns (cmp, true) where cmp is -1, 0, or
// 1, or (0, false) if the two values are not order-comparable (e.g.
// differing non-promotable kinds, or either is a ref/Null).
func Compare(a, b Value) (int, bool) {
	if a.kind == KindNull || b.kind == KindNull {
		return 0, false
	}
	if af, aok := a.AsFloat64(); aok {
		if bf, bok := b.AsFloat64(); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if a.kind == KindString && b.kind == KindString {
		switch {
		case a.stringV < b.stringV:
			return -1, true
		case a.stringV > b.stringV:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind == KindBool && b.kind == KindBool {
		switch {
		case a.boolV == b.boolV:
			return 0, true
		case !a.boolV && b.boolV:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// Equal reports whether two values are equal under DSL semantics: Null
// equals only Null, refs compare by identifier, everything else compares
// via Compare's ordering (so an Int and a Float with the same magnitude
// are equal).
func Equal(a, b Value) bool {
	if a.kind == KindNull || b.kind == KindNull {
		return a.kind == b.kind
	}
	if a.kind == KindNodeRef || b.kind == KindNodeRef {
		return a.kind == KindNodeRef && b.kind == KindNodeRef && a.nodeV == b.nodeV
	}
	if a.kind == KindEdgeRef || b.kind == KindEdgeRef {
		return a.kind == KindEdgeRef && b.kind == KindEdgeRef && a.edgeV == b.edgeV
	}
	cmp, ok := Compare(a, b)
	return ok && cmp == 0
}
