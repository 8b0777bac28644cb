package clair

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"strings"
)

//go:embed html/report.gohtml
var reportTemplate string

var templateFuncs = template.FuncMap{
	"lower": strings.ToLower,
}

// htmlReport is the data handed to report templates. Rows are keyed by
// column name: ID, CVE, SEVERITY, PACKAGE, CURRENT, FIXED, INTRODUCED,
// DESCRIPTION, LINK, VECTORS and SCORE.
type htmlReport struct {
	Name   string
	Rows   []map[string]any
	Counts map[string]int
}

func loadTemplate(path string) (*template.Template, error) {
	text := reportTemplate
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading html template: %w", err)
		}
		text = string(data)
	}

	tmpl, err := template.New("report").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing html template %s: %w", path, err)
	}

	return tmpl, nil
}

// RenderHTML renders rows with the client report template.
func (c *Client) RenderHTML(name string, rows []Row) ([]byte, error) {
	report := htmlReport{
		Name:   name,
		Rows:   make([]map[string]any, 0, len(rows)),
		Counts: CountRows(rows),
	}
	for _, r := range rows {
		report.Rows = append(report.Rows, r.Columns())
	}

	var buf bytes.Buffer
	if err := c.template.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering html report: %w", err)
	}

	return buf.Bytes(), nil
}

// HTML renders the report of the named ancestry.
func (c *Client) HTML(ctx context.Context, name string) ([]byte, error) {
	rows, err := c.Rows(ctx, name)
	if err != nil {
		return nil, err
	}

	return c.RenderHTML(name, rows)
}
