package analytics

import "sort"

// orderedGroups maps keys to accumulators and remembers the order in which
// keys were first seen, so ties keep a deterministic order after sorting.
type orderedGroups[A any] struct {
	index map[string]int
	keys  []string
	accs  []A
}

func newOrderedGroups[A any]() *orderedGroups[A] {
	return &orderedGroups[A]{index: make(map[string]int)}
}

// at returns the accumulator for key, creating a zero one on first use.
// created reports whether the key was new.
func (g *orderedGroups[A]) at(key string) (acc *A, created bool) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.keys)
		g.index[key] = i
		g.keys = append(g.keys, key)
		var zero A
		g.accs = append(g.accs, zero)
	}
	return &g.accs[i], !ok
}

// entry is one key and its accumulator.
type entry[A any] struct {
	Key string
	Acc A
}

// sorted returns the groups ordered by less, stable on first-seen order, and
// truncated to limit when limit > 0.
func (g *orderedGroups[A]) sorted(less func(a, b entry[A]) bool, limit int) []entry[A] {
	out := make([]entry[A], len(g.keys))
	for i, k := range g.keys {
		out[i] = entry[A]{Key: k, Acc: g.accs[i]}
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// counter is the common case of a group-by-count.
type counter struct {
	*orderedGroups[int]
}

func newCounter() counter { return counter{newOrderedGroups[int]()} }

func (c counter) add(key string) {
	n, _ := c.at(key)
	*n++
}

func byCountDesc(a, b entry[int]) bool { return a.Acc > b.Acc }
