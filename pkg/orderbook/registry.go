package orderbook

import (
	"fmt"
	"strings"
)

type backend struct {
	short   string
	name    string
	newBook func() Book
}

// backends in selection order. v1 is the reference.
var backends = []backend{
	{short: "v1", name: "v1_btree", newBook: newBTreeBook},
	{short: "v2", name: "v2_skiplist", newBook: newSkipListBook},
	{short: "v3", name: "v3_arena", newBook: newArenaBook},
}

// NewEngine builds an empty engine for the named backend. Both the short
// selector (v1) and the full name (v1_btree) are accepted.
func NewEngine(name string) (*Engine, error) {
	for _, b := range backends {
		if name == b.short || name == b.name {
			return newEngine(b.name, b.newBook), nil
		}
	}
	return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownEngine, name, strings.Join(EngineNames(), ", "))
}

// MustEngine is NewEngine for names known at compile time.
func MustEngine(name string) *Engine {
	e, err := NewEngine(name)
	if err != nil {
		panic(err)
	}
	return e
}

// EngineNames lists the short selectors accepted by NewEngine.
func EngineNames() []string {
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.short)
	}
	return names
}

// Reference is the backend every other one must agree with.
func Reference() *Engine {
	return MustEngine(backends[0].short)
}
