package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/resources"
	"stockdesk/pkg/listing"
)

func samplePage() listing.Envelope[resources.Record] {
	next := "http://localhost:8000/api/products/?page=2"
	return listing.Envelope[resources.Record]{
		Count: 3,
		Next:  &next,
		Results: []resources.Record{
			{"id": float64(1), "sku": "A-1", "name": "Bolt", "stock": float64(10), "price": "0.25"},
			{"id": float64(2), "sku": "A-2", "name": "Nut", "stock": float64(40), "price": nil},
		},
	}
}

func newTestPrinter(t *testing.T, format string) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	p, err := NewPrinter(format, false, &out, &errOut)
	require.NoError(t, err)
	return p, &out, &errOut
}

func TestParseOutputFormat(t *testing.T) {
	f, tpl, err := ParseOutputFormat("go-template={{.name}}")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatGoTemplate, f)
	assert.Equal(t, "{{.name}}", tpl)

	f, _, err = ParseOutputFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatYAML, f)

	_, _, err = ParseOutputFormat("go-template=")
	assert.Error(t, err)
	_, _, err = ParseOutputFormat("csv")
	assert.Error(t, err)
}

func TestPrinter_Table(t *testing.T) {
	p, out, errOut := newTestPrinter(t, "table")
	require.NoError(t, p.PrintList(resources.KindProducts, samplePage()))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "SKU", "NAME", "STOCK", "PRICE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "A-1", "Bolt", "10", "0.25"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "A-2", "Nut", "40", "<none>"}, strings.Fields(lines[2]))
	assert.Contains(t, errOut.String(), "Showing 2 of 3 products")
}

func TestPrinter_TableEmpty(t *testing.T) {
	p, out, errOut := newTestPrinter(t, "table")
	require.NoError(t, p.PrintList(resources.KindRoles, listing.FromSlice[resources.Record](nil)))
	assert.Empty(t, out.String())
	assert.Equal(t, "No roles found.\n", errOut.String())
}

func TestPrinter_NoHeaders(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPrinter("table", true, &out, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, p.PrintList(resources.KindProducts, samplePage()))
	assert.NotContains(t, out.String(), "SKU")
	assert.Len(t, strings.Split(strings.TrimRight(out.String(), "\n"), "\n"), 2)
}

func TestPrinter_Wide(t *testing.T) {
	page := samplePage()
	page.Results[0]["warehouse"] = map[string]any{"id": float64(3), "name": "North"}

	p, out, _ := newTestPrinter(t, "wide")
	require.NoError(t, p.PrintList(resources.KindProducts, page))
	assert.Contains(t, out.String(), "WAREHOUSE")
	assert.Contains(t, out.String(), "North")
}

func TestPrinter_JSONKeepsEnvelope(t *testing.T) {
	p, out, _ := newTestPrinter(t, "json")
	require.NoError(t, p.PrintList(resources.KindProducts, samplePage()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, float64(3), decoded["count"])
	assert.Equal(t, "http://localhost:8000/api/products/?page=2", decoded["next"])
	assert.Len(t, decoded["results"], 2)
}

func TestPrinter_YAML(t *testing.T) {
	p, out, _ := newTestPrinter(t, "yaml")
	require.NoError(t, p.PrintRecord(resources.Record{"name": "Bolt", "stock": float64(10)}))
	assert.Equal(t, "name: Bolt\nstock: 10\n", out.String())
}

func TestPrinter_GoTemplate(t *testing.T) {
	p, out, _ := newTestPrinter(t, "go-template={{.sku}}:{{.name | upper}}")
	require.NoError(t, p.PrintList(resources.KindProducts, samplePage()))
	assert.Equal(t, "A-1:BOLT\nA-2:NUT\n", out.String())
}

func TestPrinter_RecordTable(t *testing.T) {
	p, out, _ := newTestPrinter(t, "table")
	require.NoError(t, p.PrintRecord(resources.Record{"name": "Bolt", "id": float64(1)}))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"FIELD", "VALUE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"id", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"name", "Bolt"}, strings.Fields(lines[2]))
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "<none>", formatCell(nil))
	assert.Equal(t, "<none>", formatCell(""))
	assert.Equal(t, "2.5", formatCell(2.5))
	assert.Equal(t, "true", formatCell(true))
	assert.Equal(t, "North", formatCell(map[string]any{"name": "North"}))
	assert.Equal(t, `["a","b"]`, formatCell([]any{"a", "b"}))
	assert.Len(t, formatCell(strings.Repeat("x", 100)), maxCellWidth)
}
