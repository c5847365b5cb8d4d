package workouts

import (
	"strings"

	"github.com/2beens/tricoach/internal/training"
)

// headerAliases maps the column names seen in older logs onto Row fields.
var headerAliases = map[string]string{
	"date":       "Date",
	"sport":      "Sport",
	"discipline": "Sport",
	"type":       "Type",
	"category":   "Type",
	"duration":   "Duration",
	"distance":   "Distance",
	"intensity":  "Intensity",
	"rpe":        "Intensity",
	"avghr":      "AvgHR",
	"avg hr":     "AvgHR",
	"hr":         "AvgHR",
	"avgpower":   "AvgPower",
	"avg power":  "AvgPower",
	"power":      "AvgPower",
	"pace":       "Pace",
	"load":       "Load",
	"ef":         "EF",
	"decoupling": "Decoupling",
}

// ParseTable turns tabular cells (a CSV file or a spreadsheet range) into rows.
// A leading header row selects the columns, otherwise training.RowColumns order is assumed.
// Blank lines are skipped, and every other line gets the Seq of its 1-based data line.
func ParseTable(cells [][]string) []training.Row {
	if len(cells) == 0 {
		return []training.Row{}
	}

	columns := training.RowColumns
	data := cells
	if isHeader(cells[0]) {
		columns = canonicalColumns(cells[0])
		data = cells[1:]
	}

	rows := make([]training.Row, 0, len(data))
	for i, line := range data {
		if isBlank(line) {
			continue
		}
		ordered := make([]string, len(training.RowColumns))
		for c, value := range line {
			if c >= len(columns) {
				break
			}
			if pos := columnPosition(columns[c]); pos >= 0 {
				ordered[pos] = value
			}
		}
		rows = append(rows, training.RowFromValues(i+1, ordered))
	}
	return rows
}

// RowsToTable renders rows with a header line, in training.RowColumns order.
func RowsToTable(rows []training.Row) [][]string {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, append([]string(nil), training.RowColumns...))
	for _, row := range rows {
		table = append(table, row.Values())
	}
	return table
}

func isHeader(line []string) bool {
	return len(line) > 0 && strings.EqualFold(strings.TrimSpace(line[0]), "date")
}

func isBlank(line []string) bool {
	for _, cell := range line {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func canonicalColumns(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = headerAliases[strings.ToLower(strings.TrimSpace(name))]
	}
	return columns
}

func columnPosition(column string) int {
	for i, c := range training.RowColumns {
		if c == column {
			return i
		}
	}
	return -1
}
