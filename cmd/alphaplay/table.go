package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderKeyValues renders two-column rows with the values right-aligned
// when numeric is set.
func renderKeyValues(title string, rows [][2]string, numeric bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}

	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}

	align := text.AlignLeft
	if numeric {
		align = text.AlignRight
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: align},
	})

	return tw.Render()
}
