// Package gp evolves dispatching rules as expression trees.
//
// A tree is stored in prefix order, the way it is printed. Subtrees are
// contiguous ranges of the slice, which keeps crossover and mutation to
// plain slice splicing.
package gp

import (
	"math"
	"strconv"
	"strings"

	"github.com/me/dfjss/internal/scheduler"
)

type kind uint8

const (
	kindPrimitive kind = iota
	kindVariable
	kindConstant
)

type primitive struct {
	name  string
	arity int
	apply func(a, b float64) float64
}

var primitives = []primitive{
	{"add", 2, func(a, b float64) float64 { return a + b }},
	{"sub", 2, func(a, b float64) float64 { return a - b }},
	{"mul", 2, func(a, b float64) float64 { return a * b }},
	{"protected_div", 2, func(a, b float64) float64 {
		if math.Abs(b) <= 1e-9 {
			return a
		}
		return a / b
	}},
	{"neg", 1, func(a, _ float64) float64 { return -a }},
	{"min", 2, math.Min},
	{"max", 2, math.Max},
}

// Variables are the terminals bound to candidate features.
var Variables = []string{"PT", "RO", "MW", "TQ", "WIP", "RPT"}

var constants = []float64{0.0, 1.0}

func variable(f *scheduler.Features, i int) float64 {
	switch i {
	case 0:
		return float64(f.PT)
	case 1:
		return float64(f.RO)
	case 2:
		return float64(f.MW)
	case 3:
		return float64(f.TQ)
	case 4:
		return float64(f.WIP)
	default:
		return float64(f.RPT)
	}
}

// Node is one symbol of a tree.
type Node struct {
	kind  kind
	index int // into primitives or Variables
	value float64
}

func (n Node) arity() int {
	if n.kind == kindPrimitive {
		return primitives[n.index].arity
	}
	return 0
}

func (n Node) label() string {
	switch n.kind {
	case kindPrimitive:
		return primitives[n.index].name
	case kindVariable:
		return Variables[n.index]
	default:
		return strconv.FormatFloat(n.value, 'f', 1, 64)
	}
}

// Tree is an expression in prefix order.
type Tree []Node

// subtree returns the end (exclusive) of the subtree rooted at begin.
func (t Tree) subtree(begin int) int {
	end := begin + 1
	total := t[begin].arity()
	for total > 0 {
		total += t[end].arity() - 1
		end++
	}
	return end
}

// Height returns the depth of the deepest node; a lone terminal has height 0.
func (t Tree) Height() int {
	height := 0
	stack := []int{0}
	for _, n := range t {
		depth := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		height = max(height, depth)
		for range n.arity() {
			stack = append(stack, depth+1)
		}
	}
	return height
}

// Clone returns an independent copy.
func (t Tree) Clone() Tree {
	return append(Tree(nil), t...)
}

// String renders the tree as nested calls, e.g. add(PT, mul(RO, 1.0)).
// The result is a valid expression for the expr package.
func (t Tree) String() string {
	var b strings.Builder
	t.write(&b, 0)
	return b.String()
}

func (t Tree) write(b *strings.Builder, i int) int {
	n := t[i]
	b.WriteString(n.label())
	i++
	if n.kind != kindPrimitive {
		return i
	}
	b.WriteByte('(')
	for k := range n.arity() {
		if k > 0 {
			b.WriteString(", ")
		}
		i = t.write(b, i)
	}
	b.WriteByte(')')
	return i
}

// Eval computes the tree for the given features.
func (t Tree) Eval(f scheduler.Features) float64 {
	v, _ := t.eval(0, &f)
	return v
}

func (t Tree) eval(i int, f *scheduler.Features) (float64, int) {
	n := t[i]
	switch n.kind {
	case kindVariable:
		return variable(f, n.index), i + 1
	case kindConstant:
		return n.value, i + 1
	}
	p := primitives[n.index]
	a, next := t.eval(i+1, f)
	b := 0.0
	if p.arity == 2 {
		b, next = t.eval(next, f)
	}
	return p.apply(a, b), next
}

// Score implements scheduler.Scorer. Trees are stateless, so one tree may
// score several simulations at once.
func (t Tree) Score(f scheduler.Features) (float64, error) {
	return t.Eval(f), nil
}
