package analysis

import (
	"sort"

	"custdash/domain/purchase"
)

// Bounds limits a user-chosen k.
type Bounds struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// Slider presets of the dashboard.
var (
	CustomerTopK     = Bounds{Min: 1, Max: 20, Default: 5}
	ProductTopK      = Bounds{Min: 1, Max: 50, Default: 10}
	BrandProductTopK = Bounds{Min: 1, Max: 20, Default: 5}
)

// ClampK forces k into b. Zero selects the default.
func ClampK(k int, b Bounds) int {
	switch {
	case k == 0:
		return b.Default
	case k < b.Min:
		return b.Min
	case k > b.Max:
		return b.Max
	}
	return k
}

// RankSpec describes a top-k query.
type RankSpec struct {
	GroupBy []purchase.Column
	// PartitionBy, when set, must be one of GroupBy; k then applies per partition.
	PartitionBy purchase.Column
	K           int
	Bounds      Bounds
}

// TopK sums quantity per GroupBy group and keeps the k largest, globally or per partition.
// Rows are ordered by quantity descending with ties broken by ascending key; partitions are
// emitted in ascending order.
func TopK(filtered *purchase.Table, spec RankSpec) []purchase.RankingRow {
	k := ClampK(spec.K, spec.Bounds)
	out := []purchase.RankingRow{}
	if filtered.IsEmpty() {
		return out
	}
	n := len(spec.GroupBy)
	groups := aggregate(filtered.Rows, spec.GroupBy)

	part := -1
	for i, col := range spec.GroupBy {
		if spec.PartitionBy != "" && col == spec.PartitionBy {
			part = i
		}
	}
	if part < 0 {
		sortByQuantity(groups, n)
		return appendRanked(out, "", groups, k, n)
	}

	byPartition := make(map[string][]group)
	names := make(map[string]struct{})
	for _, g := range groups {
		p := g.Key[part]
		byPartition[p] = append(byPartition[p], g)
		names[p] = struct{}{}
	}
	for _, p := range sortedNatural(names) {
		members := byPartition[p]
		sortByQuantity(members, n)
		out = appendRanked(out, p, members, k, n)
	}
	return out
}

// Totals ranks every value of column by summed quantity, without truncation.
func Totals(filtered *purchase.Table, column purchase.Column) []purchase.RankingRow {
	out := []purchase.RankingRow{}
	if filtered.IsEmpty() {
		return out
	}
	groups := aggregate(filtered.Rows, []purchase.Column{column})
	sortByQuantity(groups, 1)
	return appendRanked(out, "", groups, len(groups), 1)
}

// Breakdown lists every keys group sorted by the first leading keys ascending, then by quantity
// descending, then by the remaining keys. Rank counts from 1 within each leading group.
func Breakdown(filtered *purchase.Table, keys []purchase.Column, leading int) []purchase.RankingRow {
	out := []purchase.RankingRow{}
	if filtered.IsEmpty() {
		return out
	}
	if leading > len(keys) {
		leading = len(keys)
	}
	n := len(keys)
	groups := aggregate(filtered.Rows, keys)
	sort.SliceStable(groups, func(i, j int) bool {
		if c := compareKeys(groups[i].Key, groups[j].Key, leading); c != 0 {
			return c < 0
		}
		if groups[i].Acc.Sum != groups[j].Acc.Sum {
			return groups[i].Acc.Sum > groups[j].Acc.Sum
		}
		return compareKeys(groups[i].Key, groups[j].Key, n) < 0
	})

	rank := 0
	for i, g := range groups {
		if i == 0 || compareKeys(groups[i-1].Key, g.Key, leading) != 0 {
			rank = 0
		}
		rank++
		out = append(out, purchase.RankingRow{
			Keys:     g.Key.Strings(n),
			Quantity: g.Acc.Sum,
			Rank:     rank,
		})
	}
	return out
}

func sortByQuantity(groups []group, n int) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Acc.Sum != groups[j].Acc.Sum {
			return groups[i].Acc.Sum > groups[j].Acc.Sum
		}
		return compareKeys(groups[i].Key, groups[j].Key, n) < 0
	})
}

func appendRanked(out []purchase.RankingRow, partition string, groups []group, k, n int) []purchase.RankingRow {
	if k > len(groups) {
		k = len(groups)
	}
	for i, g := range groups[:k] {
		out = append(out, purchase.RankingRow{
			Partition: partition,
			Keys:      g.Key.Strings(n),
			Quantity:  g.Acc.Sum,
			Rank:      i + 1,
		})
	}
	return out
}
