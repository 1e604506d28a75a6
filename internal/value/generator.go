package value

import (
	"iter"
	"sync/atomic"
)

var generatorIDs atomic.Int64

// Generator is a lazily produced sequence of key/value pairs. Each full
// traversal restarts the producer from the beginning.
type Generator struct {
	id   int
	body func(yield func(k, v Value) bool) error
	err  error
	ret  Value

	// cursor state for method-style access
	next    func() (Value, Value, bool)
	stop    func()
	key     Value
	current Value
	started bool
	valid   bool
}

// NewGenerator wraps a producer. The producer returns an error to abort.
func NewGenerator(body func(yield func(k, v Value) bool) error) *Generator {
	return &Generator{
		id:   int(generatorIDs.Add(1)),
		body: body,
		ret:  Null,
	}
}

// ID returns the generator's handle
func (g *Generator) ID() int { return g.id }

// Err returns the error that ended the most recent traversal, if any
func (g *Generator) Err() error { return g.err }

// SetReturn records the value the producer returned
func (g *Generator) SetReturn(v Value) { g.ret = v }

// Return returns the value recorded by the most recent complete traversal
func (g *Generator) Return() Value {
	if g.ret.Kind == KindAbsent {
		return Null
	}
	return g.ret
}

// All returns a fresh traversal of the sequence
func (g *Generator) All() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		g.err = g.body(yield)
	}
}

// Collect drains a fresh traversal into an array
func (g *Generator) Collect(preserveKeys bool) (*Array, error) {
	out := NewArray()
	for k, v := range g.All() {
		if !preserveKeys {
			out.Push(v)
			continue
		}
		key, err := ToKey(k)
		if err != nil {
			return nil, err
		}
		out.Put(key, v)
	}
	return out, g.Err()
}

func (g *Generator) ensureStarted() {
	if g.started {
		return
	}
	g.started = true
	g.next, g.stop = iter.Pull2(g.All())
	g.advance()
}

func (g *Generator) advance() {
	k, v, ok := g.next()
	g.valid = ok
	if ok {
		g.key, g.current = k, v
		return
	}
	g.key, g.current = Null, Null
}

// Current returns the value at the cursor
func (g *Generator) Current() Value {
	g.ensureStarted()
	return g.current
}

// Key returns the key at the cursor
func (g *Generator) Key() Value {
	g.ensureStarted()
	return g.key
}

// Next moves the cursor forward
func (g *Generator) Next() {
	g.ensureStarted()
	if g.valid {
		g.advance()
	}
}

// Valid reports whether the cursor points at an element
func (g *Generator) Valid() bool {
	g.ensureStarted()
	return g.valid
}

// Rewind restarts the cursor at the first element
func (g *Generator) Rewind() {
	if g.stop != nil {
		g.stop()
	}
	g.started = false
	g.ensureStarted()
}
