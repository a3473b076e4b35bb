package fundflow

import (
	"testing"

	"FundFlow/internal/domain/models"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	p := newTestProcessor(t)
	in := ascendingTable(12)
	in.Rows[11].NetRatio[models.ClassSmall] = null.FloatFrom(3.25)
	out, err := p.Process(in, 5)
	require.NoError(t, err)

	s := Summarize(out)
	assert.Equal(t, 5, s.Days)
	assert.True(t, s.From.Equal(dayN(8)))
	assert.True(t, s.To.Equal(dayN(12)))
	assert.Equal(t, 50.0, s.MainNetTotal.Float64)
	assert.Equal(t, 112.0, s.LatestClose.Float64)
	assert.Equal(t, 0.5, s.LatestChange.Float64)
	assert.Equal(t, 1.25, s.AverageRatios["main"].Float64)
	assert.Equal(t, 1.65, s.AverageRatios["small"].Float64)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(ascendingTable(0))
	assert.Equal(t, 0, s.Days)
	assert.False(t, s.MainNetTotal.Valid)
}

func TestChartSeries(t *testing.T) {
	p := newTestProcessor(t)
	out, err := p.Process(ascendingTable(6), 4)
	require.NoError(t, err)

	c := ChartSeries(out)
	require.Len(t, c.MainNet, 4)
	assert.Equal(t, "2024-03-04", c.MainNet[0].Date)
	assert.Equal(t, 3.0, c.MainNet[0].Value.Float64)
	assert.Equal(t, 2.0, c.MainMA3[0].Value.Float64)
	assert.Equal(t, 6.0, c.MainNet[3].Value.Float64)
	assert.Len(t, c.ClosePrice, 4)
}
