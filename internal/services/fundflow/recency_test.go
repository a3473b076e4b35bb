package fundflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectRecent(t *testing.T) {
	out := SelectRecent(ascendingTable(12), 5)
	assert.Equal(t, 5, out.Len())
	for i, want := range []int{12, 11, 10, 9, 8} {
		assert.True(t, out.Rows[i].Date.Equal(dayN(want)), "row %d", i)
	}
}

func TestSelectRecent_ShortTable(t *testing.T) {
	out := SelectRecent(ascendingTable(3), 30)
	assert.Equal(t, 3, out.Len())
	assert.True(t, out.Rows[0].Date.Equal(dayN(3)))
}

func TestSelectRecent_Idempotent(t *testing.T) {
	once := SelectRecent(ascendingTable(20), 7)
	twice := SelectRecent(once, 7)
	assert.Equal(t, once, twice)
}

func TestSelectRecent_NonPositive(t *testing.T) {
	assert.Equal(t, 0, SelectRecent(ascendingTable(4), 0).Len())
	assert.Equal(t, 0, SelectRecent(ascendingTable(4), -2).Len())
}
