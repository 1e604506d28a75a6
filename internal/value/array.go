package value

import (
	"iter"
	"math"
	"strconv"
)

// Key is an array key: either an integer or a string
type Key struct {
	Int   int64
	Str   string
	IsStr bool
}

// IntKey builds an integer key
func IntKey(i int64) Key { return Key{Int: i} }

// StrKey builds a string key, folding canonical decimal strings to integers
func StrKey(s string) Key {
	if n, ok := canonicalInt(s); ok {
		return IntKey(n)
	}
	return Key{Str: s, IsStr: true}
}

// canonicalInt reports whether s is the decimal form of an int64 with no
// leading zeros, sign noise or whitespace.
func canonicalInt(s string) (int64, bool) {
	if s == "" || len(s) > 20 {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != s {
		return 0, false
	}
	return n, true
}

// Value returns the key as a runtime value
func (k Key) Value() Value {
	if k.IsStr {
		return Str(k.Str)
	}
	return Int(k.Int)
}

func (k Key) String() string {
	if k.IsStr {
		return k.Str
	}
	return strconv.FormatInt(k.Int, 10)
}

// ToKey converts v into an array key
func ToKey(v Value) (Key, error) {
	switch v.Kind {
	case KindInt:
		return IntKey(v.AsInt()), nil
	case KindString:
		return StrKey(v.AsString()), nil
	case KindBool:
		if v.AsBool() {
			return IntKey(1), nil
		}
		return IntKey(0), nil
	case KindFloat:
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return IntKey(0), nil
		}
		return IntKey(int64(f)), nil
	case KindNull:
		return StrKey(""), nil
	default:
		return Key{}, &illegalOffset{kind: DebugType(v)}
	}
}

type illegalOffset struct{ kind string }

func (e *illegalOffset) Error() string { return "Illegal offset type: " + e.kind }

// Array is an ordered map with value semantics. Methods that change
// contents return a new array and leave the receiver untouched.
type Array struct {
	keys  []Key
	vals  []Value
	index map[Key]int
	next  int64
}

// NewArray creates an empty array
func NewArray() *Array {
	return &Array{index: map[Key]int{}}
}

// NewList creates an array with sequential integer keys
func NewList(vals ...Value) *Array {
	a := NewArray()
	for _, v := range vals {
		a.Push(v)
	}
	return a
}

// Len returns the number of elements
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Get looks up a key
func (a *Array) Get(k Key) (Value, bool) {
	if a == nil {
		return Null, false
	}
	i, ok := a.index[k]
	if !ok {
		return Null, false
	}
	return a.vals[i], true
}

// Has reports whether the key is present
func (a *Array) Has(k Key) bool {
	_, ok := a.Get(k)
	return ok
}

func (a *Array) clone() *Array {
	c := &Array{
		keys:  make([]Key, len(a.keys), len(a.keys)+1),
		vals:  make([]Value, len(a.vals), len(a.vals)+1),
		index: make(map[Key]int, len(a.keys)+1),
		next:  a.next,
	}
	copy(c.keys, a.keys)
	copy(c.vals, a.vals)
	for k, i := range a.index {
		c.index[k] = i
	}
	return c
}

// Copy returns an independent copy of the array
func (a *Array) Copy() *Array {
	if a == nil {
		return NewArray()
	}
	return a.clone()
}

// Set returns a copy with k bound to v
func (a *Array) Set(k Key, v Value) *Array {
	c := a.clone()
	c.Put(k, v)
	return c
}

// Append returns a copy with v added at the next integer index
func (a *Array) Append(v Value) *Array {
	c := a.clone()
	c.Push(v)
	return c
}

// Delete returns a copy without k
func (a *Array) Delete(k Key) *Array {
	c := NewArray()
	c.next = a.next
	for i, key := range a.keys {
		if key == k {
			continue
		}
		c.Put(key, a.vals[i])
	}
	return c
}

// Put binds k to v in place. Only use it on arrays under construction.
func (a *Array) Put(k Key, v Value) {
	if i, ok := a.index[k]; ok {
		a.vals[i] = v
		return
	}
	a.index[k] = len(a.keys)
	a.keys = append(a.keys, k)
	a.vals = append(a.vals, v)
	if !k.IsStr && k.Int >= a.next {
		if k.Int == math.MaxInt64 {
			a.next = k.Int
		} else {
			a.next = k.Int + 1
		}
	}
}

// Push appends v in place. Only use it on arrays under construction.
func (a *Array) Push(v Value) {
	a.Put(IntKey(a.next), v)
}

// Keys returns the keys in order
func (a *Array) Keys() []Key {
	if a == nil {
		return nil
	}
	out := make([]Key, len(a.keys))
	copy(out, a.keys)
	return out
}

// Values returns the values in order
func (a *Array) Values() []Value {
	if a == nil {
		return nil
	}
	out := make([]Value, len(a.vals))
	copy(out, a.vals)
	return out
}

// At returns the i-th entry in iteration order
func (a *Array) At(i int) (Key, Value) {
	return a.keys[i], a.vals[i]
}

// All iterates entries in insertion order
func (a *Array) All() iter.Seq2[Key, Value] {
	return func(yield func(Key, Value) bool) {
		if a == nil {
			return
		}
		for i, k := range a.keys {
			if !yield(k, a.vals[i]) {
				return
			}
		}
	}
}

// IsList reports whether keys are exactly 0..n-1 in order
func (a *Array) IsList() bool {
	for i, k := range a.Keys() {
		if k.IsStr || k.Int != int64(i) {
			return false
		}
	}
	return true
}

// Reindex returns the values under fresh sequential keys, keeping string keys
func (a *Array) Reindex() *Array {
	c := NewArray()
	for k, v := range a.All() {
		if k.IsStr {
			c.Put(k, v)
		} else {
			c.Push(v)
		}
	}
	return c
}
