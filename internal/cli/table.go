package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"stockdesk/internal/resources"
)

const (
	columnPadding = 3
	maxCellWidth  = 60
	emptyCell     = "<none>"
)

// plainTable renders kubectl-style columns without box-drawing characters,
// suitable for piping into grep, awk or cut.
type plainTable struct {
	headers   []string
	rows      [][]string
	widths    []int
	noHeaders bool
}

func newPlainTable(columns []string, noHeaders bool) *plainTable {
	t := &plainTable{
		headers:   make([]string, len(columns)),
		widths:    make([]int, len(columns)),
		noHeaders: noHeaders,
	}
	for i, c := range columns {
		t.headers[i] = strings.ToUpper(c)
		t.widths[i] = len(t.headers[i])
	}
	return t
}

func (t *plainTable) append(row []string) {
	for i := range t.headers {
		if i < len(row) && len(row[i]) > t.widths[i] {
			t.widths[i] = len(row[i])
		}
	}
	t.rows = append(t.rows, row)
}

func (t *plainTable) render(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}
	if !t.noHeaders {
		t.line(w, t.headers)
	}
	for _, row := range t.rows {
		t.line(w, row)
	}
}

func (t *plainTable) line(w io.Writer, row []string) {
	var sb strings.Builder
	for i := range t.headers {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i == len(t.headers)-1 {
			sb.WriteString(cell)
			break
		}
		sb.WriteString(cell)
		sb.WriteString(strings.Repeat(" ", t.widths[i]-len(cell)+columnPadding))
	}
	fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
}

// renderPlain writes records as a plain table of the kind's columns.
func renderPlain(w io.Writer, kind resources.Kind, records []resources.Record, noHeaders bool) {
	t := newPlainTable(kind.Columns, noHeaders)
	for _, rec := range records {
		t.append(cells(kind.Columns, rec))
	}
	t.render(w)
}

// renderWide writes records as a styled table with every key present in the
// result set, the kind's columns first.
func renderWide(w io.Writer, kind resources.Kind, records []resources.Record, noHeaders bool) {
	columns := wideColumns(kind.Columns, records)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatUpper
	t.Style().Color.Header = text.Colors{text.FgHiCyan}

	if !noHeaders {
		header := make(table.Row, len(columns))
		for i, c := range columns {
			header[i] = c
		}
		t.AppendHeader(header)
	}
	for _, rec := range records {
		values := cells(columns, rec)
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.Render()
}

func wideColumns(base []string, records []resources.Record) []string {
	seen := make(map[string]bool, len(base))
	columns := append([]string(nil), base...)
	for _, c := range base {
		seen[c] = true
	}
	for _, rec := range records {
		for _, key := range sortedKeys(rec) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	return columns
}

func cells(columns []string, rec resources.Record) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = formatCell(rec[c])
	}
	return row
}

// formatCell renders one JSON value for a table cell.
func formatCell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return emptyCell
	case string:
		if val == "" {
			return emptyCell
		}
		s = val
	case bool:
		s = strconv.FormatBool(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		s = val.String()
	case map[string]any:
		// Nested records show their name when they have one.
		if name, ok := val["name"].(string); ok && name != "" {
			s = name
			break
		}
		s = compactJSON(val)
	default:
		s = compactJSON(val)
	}
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
