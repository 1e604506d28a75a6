// Package value holds the runtime values of the console language.
package value

import (
	"fmt"
)

// Kind enumerates the runtime kinds a Value may hold
type Kind int

const (
	KindNull      Kind = iota // no payload
	KindBool                  // bool
	KindInt                   // int64
	KindFloat                 // float64
	KindString                // string
	KindArray                 // *Array
	KindCallable              // Callable
	KindGenerator             // *Generator
	KindObject                // Object
	KindAbsent                // argument slot left for the callee to default
	KindRef                   // *Ref, only ever passed as a by-reference argument
)

// Value is the universal runtime carrier
type Value struct {
	Kind Kind
	Data any
}

// Null is the singleton null value
var Null = Value{Kind: KindNull}

// Absent marks a skipped argument in a named-argument call
var Absent = Value{Kind: KindAbsent}

func Bool(b bool) Value          { return Value{Kind: KindBool, Data: b} }
func Int(n int64) Value          { return Value{Kind: KindInt, Data: n} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Data: f} }
func Str(s string) Value         { return Value{Kind: KindString, Data: s} }
func Arr(a *Array) Value         { return Value{Kind: KindArray, Data: a} }
func Fn(c Callable) Value        { return Value{Kind: KindCallable, Data: c} }
func Gen(g *Generator) Value     { return Value{Kind: KindGenerator, Data: g} }
func Obj(o Object) Value         { return Value{Kind: KindObject, Data: o} }
func List(vals ...Value) Value   { return Arr(NewList(vals...)) }
func (v Value) IsNull() bool     { return v.Kind == KindNull }
func (v Value) IsAbsent() bool   { return v.Kind == KindAbsent }
func (v Value) IsNumber() bool   { return v.Kind == KindInt || v.Kind == KindFloat }
func (v Value) AsBool() bool     { b, _ := v.Data.(bool); return b }
func (v Value) AsInt() int64     { n, _ := v.Data.(int64); return n }
func (v Value) AsFloat() float64 { f, _ := v.Data.(float64); return f }
func (v Value) AsString() string { s, _ := v.Data.(string); return s }

// AsArray returns the array payload, or an empty array for other kinds
func (v Value) AsArray() *Array {
	if a, ok := v.Data.(*Array); ok && a != nil {
		return a
	}
	return NewArray()
}

func (v Value) AsCallable() Callable    { c, _ := v.Data.(Callable); return c }
func (v Value) AsGenerator() *Generator { g, _ := v.Data.(*Generator); return g }
func (v Value) AsObject() Object        { o, _ := v.Data.(Object); return o }

// Ref is a variable slot shared between a caller and a by-reference
// parameter
type Ref struct {
	Value Value
}

// RefTo wraps a slot for passing to a by-reference parameter
func RefTo(r *Ref) Value { return Value{Kind: KindRef, Data: r} }

// AsRef returns the slot behind a by-reference argument. Any other value
// gets a detached slot, so writes through it are dropped.
func (v Value) AsRef() *Ref {
	if r, ok := v.Data.(*Ref); ok && v.Kind == KindRef {
		return r
	}
	return &Ref{Value: v}
}

// Deref returns the value held by a by-reference argument
func Deref(v Value) Value {
	if v.Kind == KindRef {
		return v.AsRef().Value
	}
	return v
}

// String renders a debug representation
func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", TypeOf(v), Format(v))
}

// Object is a host-owned instance handle
type Object interface {
	// ClassName returns the name of the instantiated class
	ClassName() string
	// Handle returns the per-runtime instance id
	Handle() int
	// TypeName returns the type shown next to results
	TypeName() string
	// Describe returns the display form of the object
	Describe() string
	// ToString returns the __toString rendering when the class defines one
	ToString() (string, bool)
	// Properties returns the accessible properties in declaration order
	Properties() *Array
	// EnumCase returns the case name when the object is an enum case
	EnumCase() (string, bool)
}

// TypeOf returns the display type name of v
func TypeOf(v Value) string {
	switch v.Kind {
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
	case KindArray:
		return "Array"
	case KindCallable:
		return "Callable"
	case KindGenerator:
		return "Generator"
	case KindObject:
		return v.AsObject().TypeName()
	default:
		return "Unknown"
	}
}

// DebugType returns the type name used in type-error messages
func DebugType(v Value) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindCallable:
		return "Closure"
	case KindGenerator:
		return "Generator"
	case KindObject:
		return v.AsObject().ClassName()
	default:
		return "mixed"
	}
}

// GetType returns the gettype() name of v
func GetType(v Value) string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "double"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "object"
	}
}

// Truthy reports the boolean interpretation of v
func Truthy(v Value) bool {
	switch v.Kind {
	case KindNull, KindAbsent:
		return false
	case KindBool:
		return v.AsBool()
	case KindInt:
		return v.AsInt() != 0
	case KindFloat:
		return v.AsFloat() != 0
	case KindString:
		s := v.AsString()
		return s != "" && s != "0"
	case KindArray:
		return v.AsArray().Len() > 0
	default:
		return true
	}
}
