package fundflow

import (
	"testing"

	"FundFlow/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	p, err := NewProcessor(DefaultConfig(), nil)
	require.NoError(t, err)
	return p
}

func TestProcess_TwelveDayScenario(t *testing.T) {
	p := newTestProcessor(t)
	in := ascendingTable(12)

	out, err := p.Process(in, 5)
	require.NoError(t, err)
	require.Equal(t, 5, out.Len())

	main := models.ClassMain
	for i, want := range []float64{12, 11, 10, 9, 8} {
		assert.True(t, out.Rows[i].Date.Equal(dayN(int(want))))
		assert.Equal(t, want, out.Rows[i].NetAmount[main].Float64)
	}

	d10, ok := rowByDate(out, dayN(10))
	require.True(t, ok)
	assert.Equal(t, 9.0, d10.NetAmountMA[main][0].Float64)
	assert.Equal(t, 8.0, d10.NetAmountMA[main][1].Float64)
	assert.Equal(t, 5.5, d10.NetAmountMA[main][2].Float64)

	d12, _ := rowByDate(out, dayN(12))
	assert.Equal(t, 7.5, d12.NetAmountMA[main][2].Float64)
	assert.Equal(t, models.UnitYi, out.Unit)
}

func TestProcess_DefaultDays(t *testing.T) {
	p := newTestProcessor(t)
	out, err := p.Process(ascendingTable(45), 0)
	require.NoError(t, err)
	assert.Equal(t, 30, out.Len())
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	p := newTestProcessor(t)
	in := ascendingTable(12)
	before := in.Clone()

	_, err := p.Process(in, 5)
	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestProcess_OrderAndBound(t *testing.T) {
	p := newTestProcessor(t)
	for _, n := range []int{1, 3, 10, 50} {
		out, err := p.Process(ascendingTable(20), n)
		require.NoError(t, err)
		assert.LessOrEqual(t, out.Len(), n)
		for i := 1; i < out.Len(); i++ {
			assert.True(t, out.Rows[i-1].Date.After(out.Rows[i].Date))
		}
	}
}

func TestProcess_Empty(t *testing.T) {
	p := newTestProcessor(t)
	out, err := p.Process(ascendingTable(0), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestProcess_PropagatesStageError(t *testing.T) {
	p := newTestProcessor(t)
	in := ascendingTable(3)
	in.Rows[0].Date = in.Rows[1].Date

	out, err := p.Process(in, 5)
	require.ErrorIs(t, err, ErrDuplicateDate)
	assert.Equal(t, 0, out.Len())

	in = ascendingTable(3)
	in.Unit = models.UnitYi
	_, err = p.Process(in, 5)
	require.ErrorIs(t, err, ErrAlreadyNormalized)
}

func TestNewProcessor_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windows = []int{4}
	_, err := NewProcessor(cfg, nil)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Divisor = 0
	_, err = NewProcessor(cfg, nil)
	require.Error(t, err)
}
