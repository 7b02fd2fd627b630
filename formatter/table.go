package formatter

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type alignment int

const (
	alignLeft alignment = iota
	alignRight
)

type column struct {
	title string
	align alignment
}

// cell is the plain text of a table cell plus an optional style applied
// after padding, so escape codes never count towards the column width.
type cell struct {
	text  string
	style func(string) string
}

func plain(text string) cell {
	return cell{text: text}
}

func styled(text string, style func(string) string) cell {
	return cell{text: text, style: style}
}

type table struct {
	columns []column
	rows    [][]cell
}

func newTable(columns ...column) *table {
	return &table{columns: columns}
}

func (t *table) add(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c.text))
			}
		}
	}
	return widths
}

// render writes the header followed by every row. Columns are separated by
// ColumnGap spaces and trailing whitespace is trimmed.
func (t *table) render(w io.Writer, indent int, header func(string) string) error {
	widths := t.widths()
	prefix := strings.Repeat(" ", indent)

	titles := make([]cell, len(t.columns))
	for i, c := range t.columns {
		titles[i] = styled(c.title, header)
	}
	if err := t.renderRow(w, prefix, widths, titles); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := t.renderRow(w, prefix, widths, row); err != nil {
			return err
		}
	}
	return nil
}

func (t *table) renderRow(w io.Writer, prefix string, widths []int, row []cell) error {
	var buf strings.Builder
	buf.WriteString(prefix)

	last := len(row) - 1
	for last >= 0 && row[last].text == "" {
		last--
	}

	for i := 0; i <= last && i < len(widths); i++ {
		c := row[i]
		pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(c.text))
		text := c.text
		if c.style != nil && text != "" {
			text = c.style(text)
		}

		if t.columns[i].align == alignRight {
			buf.WriteString(pad)
			buf.WriteString(text)
		} else {
			buf.WriteString(text)
			if i < last {
				buf.WriteString(pad)
			}
		}
		if i < last {
			buf.WriteString(strings.Repeat(" ", ColumnGap))
		}
	}
	buf.WriteByte('\n')

	_, err := io.WriteString(w, buf.String())
	return err
}
