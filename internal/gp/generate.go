package gp

import "math/rand/v2"

// terminalRatio is the chance that Grow picks a terminal before the target height.
var terminalRatio = float64(len(Variables)+len(constants)) /
	float64(len(Variables)+len(constants)+len(primitives))

func randomTerminal(rng *rand.Rand) Node {
	k := rng.IntN(len(Variables) + len(constants))
	if k < len(Variables) {
		return Node{kind: kindVariable, index: k}
	}
	return Node{kind: kindConstant, value: constants[k-len(Variables)]}
}

func randomPrimitive(rng *rand.Rand) Node {
	return Node{kind: kindPrimitive, index: rng.IntN(len(primitives))}
}

// Full generates a tree whose leaves all sit at the same depth, drawn from
// [minHeight, maxHeight].
func Full(rng *rand.Rand, minHeight, maxHeight int) Tree {
	return generate(rng, minHeight, maxHeight, func(height, depth int) bool {
		return depth == height
	})
}

// Grow generates a tree of irregular shape no higher than a height drawn
// from [minHeight, maxHeight].
func Grow(rng *rand.Rand, minHeight, maxHeight int) Tree {
	return generate(rng, minHeight, maxHeight, func(height, depth int) bool {
		return depth == height || (depth >= minHeight && rng.Float64() < terminalRatio)
	})
}

func generate(rng *rand.Rand, minHeight, maxHeight int, leaf func(height, depth int) bool) Tree {
	height := minHeight + rng.IntN(maxHeight-minHeight+1)
	var t Tree
	stack := []int{0}
	for len(stack) > 0 {
		depth := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if leaf(height, depth) {
			t = append(t, randomTerminal(rng))
			continue
		}
		n := randomPrimitive(rng)
		t = append(t, n)
		for range n.arity() {
			stack = append(stack, depth+1)
		}
	}
	return t
}
