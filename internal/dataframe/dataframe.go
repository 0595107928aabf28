package dataframe

import (
	"cmp"
	"slices"
)

// Groups holds one accumulator per group key, built in a single pass over the rows.
type Groups[K cmp.Ordered, A any] struct {
	groups map[K]A
}

// GroupBy folds rows into per-key accumulators. Rows for which key reports false are
// skipped. newAcc creates the accumulator the first time a key is seen.
func GroupBy[K cmp.Ordered, T any, A any](rows []T, key func(T) (K, bool), newAcc func(K) A, fold func(A, T)) *Groups[K, A] {
	g := &Groups[K, A]{groups: make(map[K]A)}
	for _, row := range rows {
		k, ok := key(row)
		if !ok {
			continue
		}
		acc, exists := g.groups[k]
		if !exists {
			acc = newAcc(k)
			g.groups[k] = acc
		}
		fold(acc, row)
	}
	return g
}

func (g *Groups[K, A]) Len() int {
	return len(g.groups)
}

// Keys returns the group keys in ascending order.
func (g *Groups[K, A]) Keys() []K {
	keys := make([]K, 0, len(g.groups))
	for k := range g.groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Each visits the groups in ascending key order.
func (g *Groups[K, A]) Each(fn func(K, A)) {
	for _, k := range g.Keys() {
		fn(k, g.groups[k])
	}
}
