package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custdash/domain/purchase"
	"custdash/internal/testkit"
)

func rankingTable() *purchase.Table {
	return testkit.Table(
		testkit.Tx("1", "ACME", "ACME01", 5, "2024-01-01"),
		testkit.Tx("2", "ACME", "ACME01", 5, "2024-01-02"),
		testkit.Tx("3", "ACME", "ACME02", 9, "2024-01-03"),
		testkit.Tx("1", "ACME", "ACME03", 1, "2024-01-04"),
		testkit.Tx("4", "ZETA", "ZETA01", 7, "2024-01-05"),
		testkit.Tx("4", "ZETA", "ZETA02", 2, "2024-01-06"),
	)
}

func TestClampK(t *testing.T) {
	tests := []struct {
		k    int
		want int
	}{
		{0, 5}, {-3, 1}, {1, 1}, {7, 7}, {20, 20}, {21, 20}, {1000, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampK(tt.k, CustomerTopK), "k=%d", tt.k)
	}
	assert.Equal(t, 10, ClampK(0, ProductTopK))
	assert.Equal(t, 50, ClampK(99, ProductTopK))
}

func TestTopKGlobal(t *testing.T) {
	rows := TopK(rankingTable(), RankSpec{
		GroupBy: []purchase.Column{purchase.ColRef},
		K:       3,
		Bounds:  ProductTopK,
	})
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ACME01"}, rows[0].Keys)
	assert.Equal(t, 10.0, rows[0].Quantity)
	assert.Equal(t, []string{"ACME02"}, rows[1].Keys)
	assert.Equal(t, []string{"ZETA01"}, rows[2].Keys)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
}

func TestTopKTiesBreakByKey(t *testing.T) {
	table := testkit.Table(
		testkit.Tx("10", "A", "A1", 4, "2024-01-01"),
		testkit.Tx("9", "A", "A1", 4, "2024-01-01"),
		testkit.Tx("x", "A", "A1", 4, "2024-01-01"),
	)
	rows := TopK(table, RankSpec{GroupBy: []purchase.Column{purchase.ColUserID}, K: 5, Bounds: CustomerTopK})
	require.Len(t, rows, 3)
	assert.Equal(t, "9", rows[0].Keys[0])
	assert.Equal(t, "10", rows[1].Keys[0])
	assert.Equal(t, "x", rows[2].Keys[0])
}

func TestTopKPerPartition(t *testing.T) {
	table := generated(t)
	for _, k := range []int{1, 2, 5} {
		rows := TopK(table, RankSpec{
			GroupBy:     []purchase.Column{purchase.ColBrand, purchase.ColUserID},
			PartitionBy: purchase.ColBrand,
			K:           k,
			Bounds:      CustomerTopK,
		})
		require.NotEmpty(t, rows)

		perPartition := map[string]int{}
		for i, r := range rows {
			perPartition[r.Partition]++
			assert.Equal(t, r.Partition, r.Keys[0])
			if i > 0 && rows[i-1].Partition == r.Partition {
				assert.GreaterOrEqual(t, rows[i-1].Quantity, r.Quantity)
				assert.Equal(t, rows[i-1].Rank+1, r.Rank)
			}
			if i > 0 && rows[i-1].Partition != r.Partition {
				assert.Less(t, rows[i-1].Partition, r.Partition, "partitions ascend")
				assert.Equal(t, 1, r.Rank)
			}
		}
		for p, n := range perPartition {
			assert.LessOrEqual(t, n, k, "partition %s", p)
		}
	}
}

func TestTopKEmpty(t *testing.T) {
	rows := TopK(testkit.Table(), RankSpec{GroupBy: []purchase.Column{purchase.ColRef}, Bounds: ProductTopK})
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestTotals(t *testing.T) {
	rows := Totals(rankingTable(), purchase.ColBrand)
	require.Len(t, rows, 2)
	assert.Equal(t, "ACME", rows[0].Keys[0])
	assert.Equal(t, 20.0, rows[0].Quantity)
	assert.Equal(t, "ZETA", rows[1].Keys[0])
	assert.Equal(t, 9.0, rows[1].Quantity)
}

func TestBreakdown(t *testing.T) {
	keys := []purchase.Column{purchase.ColBrand, purchase.ColRef, purchase.ColUserID}
	rows := Breakdown(rankingTable(), keys, 2)
	require.Len(t, rows, 6)

	// brand, ref ascending; quantity descending within; then user
	want := [][]string{
		{"ACME", "ACME01", "1"},
		{"ACME", "ACME01", "2"},
		{"ACME", "ACME02", "3"},
		{"ACME", "ACME03", "1"},
		{"ZETA", "ZETA01", "4"},
		{"ZETA", "ZETA02", "4"},
	}
	for i, w := range want {
		assert.Equal(t, w, rows[i].Keys, "row %d", i)
	}
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, 1, rows[2].Rank)
}
