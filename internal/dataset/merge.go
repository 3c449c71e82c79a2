// Package dataset owns the durable CSV datasets: loading, incremental
// merging with last-write-wins deduplication, and full rewrites.
package dataset

import (
	"slices"

	"github.com/sells-group/adreport-cli/internal/model"
	"github.com/sells-group/adreport-cli/internal/tabular"
)

// Keyed is a record with a natural key and a total sort order.
type Keyed[K comparable, T any] interface {
	Key() K
	Less(T) bool
}

// Merge upserts incoming into existing.
//
// Incoming is first deduplicated on its own (the last fetched copy of a
// key wins), then appended strictly after existing so that the final
// last-wins pass always prefers the new row over the old one. The result is
// stably sorted by the record order and holds each key exactly once.
// An empty incoming batch returns existing untouched.
func Merge[K comparable, T Keyed[K, T]](existing, incoming []T) []T {
	if len(incoming) == 0 {
		return existing
	}
	key := func(r T) K { return r.Key() }

	fresh := tabular.DedupLast(incoming, key)

	combined := make([]T, 0, len(existing)+len(fresh))
	combined = append(combined, existing...)
	combined = append(combined, fresh...)

	merged := tabular.DedupLast(combined, key)
	slices.SortStableFunc(merged, func(a, b T) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return merged
}

// MergeRecords merges campaign-level performance records.
func MergeRecords(existing, incoming []model.PerformanceRecord) []model.PerformanceRecord {
	return Merge[model.RecordKey](existing, incoming)
}

// MergeVideo merges ad-level video records.
func MergeVideo(existing, incoming []model.VideoRecord) []model.VideoRecord {
	return Merge[model.VideoKey](existing, incoming)
}
