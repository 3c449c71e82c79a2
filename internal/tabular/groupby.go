// Package tabular provides small generic helpers for keyed record
// collections: group-by with ordered keys and last-wins deduplication.
package tabular

import (
	"cmp"
	"slices"
)

// Group is one bucket produced by GroupBy.
type Group[K comparable, T any] struct {
	Key   K
	Items []T
}

// GroupBy buckets items by key, preserving the relative order of items
// inside each bucket. Buckets come back in first-seen order; use SortGroups
// to impose a key order.
func GroupBy[K comparable, T any](items []T, key func(T) K) []Group[K, T] {
	index := make(map[K]int)
	var groups []Group[K, T]
	for _, it := range items {
		k := key(it)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// SortGroups orders groups by key using cmpKey.
func SortGroups[K comparable, T any](groups []Group[K, T], cmpKey func(a, b K) int) {
	slices.SortStableFunc(groups, func(a, b Group[K, T]) int {
		return cmpKey(a.Key, b.Key)
	})
}

// Aggregate folds every group into a single value.
func Aggregate[K comparable, T, R any](groups []Group[K, T], fold func(K, []T) R) []R {
	out := make([]R, 0, len(groups))
	for _, g := range groups {
		out = append(out, fold(g.Key, g.Items))
	}
	return out
}

// Sum adds up f over items.
func Sum[T any, N cmp.Ordered](items []T, f func(T) N) N {
	var total N
	for _, it := range items {
		total += f(it)
	}
	return total
}

// DedupLast keeps, for every key, only the last item carrying it. The
// survivors keep their relative order.
func DedupLast[K comparable, T any](items []T, key func(T) K) []T {
	last := make(map[K]int, len(items))
	for i, it := range items {
		last[key(it)] = i
	}
	out := make([]T, 0, len(last))
	for i, it := range items {
		if last[key(it)] == i {
			out = append(out, it)
		}
	}
	return out
}
