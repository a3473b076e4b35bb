package fundflow

import (
	"fmt"
	"strings"

	"FundFlow/internal/domain/models"

	"github.com/mattn/go-runewidth"
)

// ColumnLabel is the header text of col, using the data source's own labels.
func ColumnLabel(col models.Column) string {
	switch col {
	case models.ColDate:
		return "日期"
	case models.ColClosePrice:
		return "收盘价"
	case models.ColChangePct:
		return "涨跌幅"
	}
	for _, cls := range models.FlowClasses {
		base := cls.Label() + "净流入"
		switch col {
		case models.AmountColumn(cls):
			return base + "-净额"
		case models.RatioColumn(cls):
			return base + "-净占比"
		}
		for _, w := range models.MAWindows {
			if col == models.MAColumn(cls, w) {
				return fmt.Sprintf("%s-净额-MA%d", base, w)
			}
		}
	}
	return string(col)
}

// RenderMarkdown renders the present columns as a pipe table. Dates are
// YYYY-MM-DD, numbers carry two decimals and null cells are blank. An empty
// table yields the header and separator only. The date column is the row
// key and is always rendered.
func RenderMarkdown(t models.FundFlowTable) string {
	cols := models.DisplayColumns(t.Columns)
	if !t.Columns.Has(models.ColDate) {
		cols = append([]models.Column{models.ColDate}, cols...)
	}

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = ColumnLabel(col)
	}

	cells := make([][]string, len(t.Rows))
	for r := range t.Rows {
		row := &t.Rows[r]
		line := make([]string, len(cols))
		for i, col := range cols {
			if col == models.ColDate {
				line[i] = row.DateKey()
				continue
			}
			if f := row.Field(col); f != nil && f.Valid {
				line[i] = fmt.Sprintf("%.2f", f.Float64)
			}
		}
		cells[r] = line
	}

	widths := make([]int, len(cols))
	for i := range cols {
		widths[i] = runewidth.StringWidth(header[i])
		for _, line := range cells {
			if w := runewidth.StringWidth(line[i]); w > widths[i] {
				widths[i] = w
			}
		}
		// room for the alignment colon
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder
	writeLine(&sb, header, cols, widths)
	sb.WriteByte('|')
	for i, col := range cols {
		dashes := strings.Repeat("-", widths[i]+1)
		if col == models.ColDate {
			sb.WriteString(":" + dashes)
		} else {
			sb.WriteString(dashes + ":")
		}
		sb.WriteByte('|')
	}
	sb.WriteByte('\n')
	for _, line := range cells {
		writeLine(&sb, line, cols, widths)
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, values []string, cols []models.Column, widths []int) {
	sb.WriteByte('|')
	for i, v := range values {
		pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(v))
		sb.WriteByte(' ')
		if cols[i] == models.ColDate {
			sb.WriteString(v + pad)
		} else {
			sb.WriteString(pad + v)
		}
		sb.WriteString(" |")
	}
	sb.WriteByte('\n')
}
