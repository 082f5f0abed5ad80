package analysis

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"custdash/domain/purchase"
)

// maxKeyParts is the widest grouping used: brand, ref, userId, email.
const maxKeyParts = 4

// GroupKey is the tuple of grouping column values of one group.
type GroupKey [maxKeyParts]string

// accumulator folds the rows of one group.
type accumulator struct {
	Last  time.Time
	Count int
	Sum   float64
}

func (a *accumulator) add(tx purchase.Transaction) {
	if a.Count == 0 || tx.Date.After(a.Last) {
		a.Last = tx.Date
	}
	a.Count++
	a.Sum += tx.Quantity
}

// group is one aggregated bucket.
type group struct {
	Key GroupKey
	Acc accumulator
}

// grouper aggregates transactions by a list of columns.
type grouper struct {
	columns []purchase.Column
	index   map[GroupKey]*accumulator
}

func newGrouper(columns []purchase.Column) *grouper {
	if len(columns) > maxKeyParts {
		panic("analysis: too many grouping columns")
	}
	return &grouper{columns: columns, index: make(map[GroupKey]*accumulator)}
}

func (g *grouper) keyOf(tx purchase.Transaction) GroupKey {
	var k GroupKey
	for i, col := range g.columns {
		k[i] = col.Value(tx)
	}
	return k
}

func (g *grouper) add(tx purchase.Transaction) {
	k := g.keyOf(tx)
	acc, ok := g.index[k]
	if !ok {
		acc = &accumulator{}
		g.index[k] = acc
	}
	acc.add(tx)
}

// groups returns every group in ascending natural key order.
func (g *grouper) groups() []group {
	out := make([]group, 0, len(g.index))
	for k, acc := range g.index {
		out = append(out, group{Key: k, Acc: *acc})
	}
	n := len(g.columns)
	sort.Slice(out, func(i, j int) bool { return compareKeys(out[i].Key, out[j].Key, n) < 0 })
	return out
}

// aggregate groups every row of rows by columns.
func aggregate(rows []purchase.Transaction, columns []purchase.Column) []group {
	g := newGrouper(columns)
	for _, tx := range rows {
		g.add(tx)
	}
	return g.groups()
}

// Strings returns the first n parts of the key.
func (k GroupKey) Strings(n int) []string {
	out := make([]string, n)
	copy(out, k[:n])
	return out
}

func compareKeys(a, b GroupKey, n int) int {
	for i := 0; i < n; i++ {
		if c := compareNatural(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// compareNatural is a total order: integer values come first in numeric order (equal numbers
// such as "01" and "1" fall back to text), every other value follows in lexical order.
func compareNatural(a, b string) int {
	if a == b {
		return 0
	}
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB != nil:
		return -1
	case errA != nil && errB == nil:
		return 1
	case errA == nil && errB == nil && x != y:
		if x < y {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
