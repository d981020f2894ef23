package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"sigs.k8s.io/yaml"

	"stockdesk/internal/resources"
	"stockdesk/pkg/listing"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a kubectl-style plain table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide formats output as a bordered table with every field
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatJSON formats output as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML converted from JSON
	OutputFormatYAML OutputFormat = "yaml"
	// OutputFormatGoTemplate applies a text/template to every record
	OutputFormatGoTemplate OutputFormat = "go-template"
)

// ParseOutputFormat splits a --output value into its format and, for
// go-template=<tpl>, the template text.
func ParseOutputFormat(value string) (OutputFormat, string, error) {
	if tpl, ok := strings.CutPrefix(value, string(OutputFormatGoTemplate)+"="); ok {
		if strings.TrimSpace(tpl) == "" {
			return "", "", fmt.Errorf("go-template output requires a template, e.g. -o 'go-template={{.name}}'")
		}
		return OutputFormatGoTemplate, tpl, nil
	}
	switch f := OutputFormat(value); f {
	case OutputFormatTable, OutputFormatWide, OutputFormatJSON, OutputFormatYAML:
		return f, "", nil
	default:
		return "", "", fmt.Errorf("unsupported output format: %q (valid: table, wide, json, yaml, go-template=...)", value)
	}
}

// Printer writes API results in the selected output format.
type Printer struct {
	format    OutputFormat
	template  *template.Template
	noHeaders bool
	out       io.Writer
	errOut    io.Writer
}

// NewPrinter builds a printer for an --output value. Data goes to out,
// hints such as "no records found" go to errOut.
func NewPrinter(format string, noHeaders bool, out, errOut io.Writer) (*Printer, error) {
	f, tpl, err := ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	p := &Printer{format: f, noHeaders: noHeaders, out: out, errOut: errOut}
	if f == OutputFormatGoTemplate {
		p.template, err = template.New("output").Funcs(sprig.TxtFuncMap()).Parse(tpl)
		if err != nil {
			return nil, fmt.Errorf("invalid go-template: %w", err)
		}
	}
	return p, nil
}

// Format returns the selected output format.
func (p *Printer) Format() OutputFormat {
	return p.format
}

// Structured reports whether output is meant for machines.
func (p *Printer) Structured() bool {
	return p.format == OutputFormatJSON || p.format == OutputFormatYAML
}

// PrintList writes one page of a collection. Structured formats keep the
// envelope so count and next survive.
func (p *Printer) PrintList(kind resources.Kind, page listing.Envelope[resources.Record]) error {
	switch p.format {
	case OutputFormatJSON:
		return p.writeJSON(page)
	case OutputFormatYAML:
		return p.writeYAML(page)
	case OutputFormatGoTemplate:
		for _, rec := range page.Results {
			if err := p.execute(rec); err != nil {
				return err
			}
		}
		return nil
	}

	if len(page.Results) == 0 {
		fmt.Fprintf(p.errOut, "No %s found.\n", kind.Name)
		return nil
	}
	if p.format == OutputFormatWide {
		renderWide(p.out, kind, page.Results, p.noHeaders)
	} else {
		renderPlain(p.out, kind, page.Results, p.noHeaders)
	}
	if page.HasMore() {
		fmt.Fprintf(p.errOut, "Showing %d of %d %s. Use --page to see more.\n", len(page.Results), page.Count, kind.Name)
	}
	return nil
}

// PrintRecord writes a single record. Table formats show it as key/value
// pairs.
func (p *Printer) PrintRecord(rec resources.Record) error {
	switch p.format {
	case OutputFormatJSON:
		return p.writeJSON(rec)
	case OutputFormatYAML:
		return p.writeYAML(rec)
	case OutputFormatGoTemplate:
		return p.execute(rec)
	}

	t := newPlainTable([]string{"field", "value"}, p.noHeaders)
	for _, key := range sortedKeys(rec) {
		t.append([]string{key, formatCell(rec[key])})
	}
	t.render(p.out)
	return nil
}

// PrintValue writes an arbitrary value in a structured format. Table output
// falls back to YAML, which reads well for small documents.
func (p *Printer) PrintValue(v any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.writeJSON(v)
	case OutputFormatGoTemplate:
		return p.execute(v)
	default:
		return p.writeYAML(v)
	}
}

func (p *Printer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

func (p *Printer) writeYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	_, err = p.out.Write(data)
	return err
}

func (p *Printer) execute(v any) error {
	// Templates see the JSON shape, so field names match -o json.
	var generic any
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	if err := p.template.Execute(p.out, generic); err != nil {
		return fmt.Errorf("failed to execute go-template: %w", err)
	}
	_, err = fmt.Fprintln(p.out)
	return err
}

func sortedKeys(rec resources.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
