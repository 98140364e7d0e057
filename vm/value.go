package vm

import (
	"fmt"

	"github.com/josharian/intern"
)

// Value is the runtime tagged union. Arithmetic between anything but two
// numbers (or two strings under '+') yields the VErr sentinel, which the VM
// turns into a runtime error.
type Value interface{ isValue() }

func NewValue() Value { return VNil{} }

type VBool bool

func (VBool) isValue() {}
func (v VBool) String() string { return fmt.Sprintf("%t", bool(v)) }

type VNil struct{}

func (VNil) isValue() {}
func (v VNil) String() string { return "nil" }

type VNum float64

func (VNum) isValue() {}
func (v VNum) String() string { return fmt.Sprintf("%g", float64(v)) }

// VStr is a heap string object. Construction goes through the interning
// table so equal constants share storage.
type VStr struct{ s string }

func NewVStr(s string) VStr { return VStr{intern.String(s)} }

func (VStr) isValue() {}
func (v VStr) String() string { return v.s }
func (v VStr) Str() string    { return v.s }

// VErr marks the result of an ill-typed arithmetic operation.
type VErr struct{}

func (VErr) isValue() {}
func (v VErr) String() string { return "Value<Error>" }

func IsErr(v Value) bool {
	_, bad := v.(VErr)
	return bad
}

func VAdd(v, w Value) Value {
	switch v := v.(type) {
	case VNum:
		if w, ok := w.(VNum); ok {
			return v + w
		}
	case VStr:
		// String concatenation is the one non-numeric '+'.
		if w, ok := w.(VStr); ok {
			return NewVStr(v.s + w.s)
		}
	}
	return VErr{}
}

func VSub(v, w Value) Value {
	if v, ok := v.(VNum); ok {
		if w, ok := w.(VNum); ok {
			return v - w
		}
	}
	return VErr{}
}

func VMul(v, w Value) Value {
	if v, ok := v.(VNum); ok {
		if w, ok := w.(VNum); ok {
			return v * w
		}
	}
	return VErr{}
}

func VDiv(v, w Value) Value {
	if v, ok := v.(VNum); ok {
		if w, ok := w.(VNum); ok {
			return v / w
		}
	}
	return VErr{}
}

// Ordering is only defined between two numbers.

func VGreater(v, w Value) Value {
	if v, ok := v.(VNum); ok {
		if w, ok := w.(VNum); ok {
			return VBool(v > w)
		}
	}
	return VErr{}
}

func VLess(v, w Value) Value {
	if v, ok := v.(VNum); ok {
		if w, ok := w.(VNum); ok {
			return VBool(v < w)
		}
	}
	return VErr{}
}

func VNeg(v Value) Value {
	if v, ok := v.(VNum); ok {
		return -v
	}
	return VErr{}
}

func VTruthy(v Value) VBool {
	switch v := v.(type) {
	case VBool:
		return v
	case VNil:
		return false
	default:
		return true
	}
}

// VEq compares same-variant values; values of different variants are never
// equal.
func VEq(v, w Value) VBool {
	switch v := v.(type) {
	case VBool:
		if w, ok := w.(VBool); ok {
			return v == w
		}
	case VNum:
		if w, ok := w.(VNum); ok {
			return v == w
		}
	case VStr:
		if w, ok := w.(VStr); ok {
			return v.s == w.s
		}
	case VNil:
		_, ok := w.(VNil)
		return VBool(ok)
	}
	return false
}
