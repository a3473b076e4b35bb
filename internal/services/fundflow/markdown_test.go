package fundflow

import (
	"strings"
	"testing"

	"FundFlow/internal/domain/models"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown_Exact(t *testing.T) {
	tbl := models.FundFlowTable{
		Columns: models.NewColumnSet(models.ColDate, models.AmountColumn(models.ClassMain)),
	}
	var r models.FundFlowRow
	r.Date = dayN(1)
	r.NetAmount[models.ClassMain] = null.FloatFrom(1.5)
	tbl.Rows = append(tbl.Rows, r)

	got := RenderMarkdown(tbl)
	want := strings.Join([]string{
		"| 日期" + strings.Repeat(" ", 6) + " | 主力净流入-净额 |",
		"|:" + strings.Repeat("-", 11) + "|" + strings.Repeat("-", 16) + ":|",
		"| 2024-03-02 | " + strings.Repeat(" ", 11) + "1.50 |",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRenderMarkdown_ColumnOrder(t *testing.T) {
	p := newTestProcessor(t)
	out, err := p.Process(ascendingTable(12), 5)
	require.NoError(t, err)

	md := RenderMarkdown(out)
	header := strings.SplitN(md, "\n", 2)[0]
	labels := []string{
		"日期", "收盘价", "涨跌幅",
		"主力净流入-净额", "主力净流入-净额-MA3", "主力净流入-净额-MA5", "主力净流入-净额-MA10",
		"超大单净流入-净额", "小单净流入-净额-MA10",
		"主力净流入-净占比", "小单净流入-净占比",
	}
	last := -1
	for _, l := range labels {
		idx := strings.Index(header, "| "+l+" ")
		require.GreaterOrEqual(t, idx, 0, "missing %s", l)
		assert.Greater(t, idx, last, "out of order %s", l)
		last = idx
	}
	assert.Len(t, strings.Split(strings.TrimRight(md, "\n"), "\n"), 2+5)
	assert.Contains(t, md, "2024-03-13")
	assert.Contains(t, md, "12.00")
}

func TestRenderMarkdown_OmitsAbsentColumns(t *testing.T) {
	tbl := ascendingTable(2)
	tbl.Columns.Remove(models.ColClosePrice)
	tbl.Columns.Remove(models.AmountColumn(models.ClassMedium))
	tbl.Columns.Remove(models.RatioColumn(models.ClassSmall))

	md := RenderMarkdown(tbl)
	assert.NotContains(t, md, "收盘价")
	assert.NotContains(t, md, "中单净流入-净额")
	assert.NotContains(t, md, "小单净流入-净占比")
	assert.Contains(t, md, "中单净流入-净占比")
}

func TestRenderMarkdown_NullCellsBlank(t *testing.T) {
	tbl := models.FundFlowTable{
		Columns: models.NewColumnSet(models.ColDate, models.ColClosePrice),
	}
	var r models.FundFlowRow
	r.Date = dayN(1)
	tbl.Rows = append(tbl.Rows, r)

	lines := strings.Split(RenderMarkdown(tbl), "\n")
	assert.Equal(t, "| 2024-03-02 |        |", lines[2])
}

func TestRenderMarkdown_EmptyTable(t *testing.T) {
	md := RenderMarkdown(ascendingTable(0))
	lines := strings.Split(strings.TrimRight(md, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "| 日期"))
	assert.True(t, strings.HasPrefix(lines[1], "|:"))
}

func TestRenderMarkdown_ZeroValueTable(t *testing.T) {
	assert.Equal(t, "| 日期 |\n|:-----|\n", RenderMarkdown(models.FundFlowTable{}))

	p := newTestProcessor(t)
	out, err := p.Process(models.FundFlowTable{}, 5)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(RenderMarkdown(out), "| 日期 |"))
}

func TestRenderMarkdown_Deterministic(t *testing.T) {
	p := newTestProcessor(t)
	out, err := p.Process(ascendingTable(15), 10)
	require.NoError(t, err)
	assert.Equal(t, RenderMarkdown(out), RenderMarkdown(out))
}
