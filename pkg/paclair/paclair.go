// Package paclair pushes images and archives to Clair and reports on their
// vulnerabilities, using the plugins of a configuration.
package paclair

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/paclair/paclair/internal/clair"
	"github.com/paclair/paclair/internal/cmdlogger"
	"github.com/paclair/paclair/internal/config"
	"github.com/paclair/paclair/internal/output"
	"github.com/paclair/paclair/internal/plugins"
)

type PaClair struct {
	Clair *clair.Client

	plugins map[string]plugins.Plugin
}

// AnalyseOptions select how an analysis is reported.
type AnalyseOptions struct {
	// Format defaults to json.
	Format output.Format
	// Delete removes the analysis from Clair once reported.
	Delete bool
	// TerminalWidth bounds the table format, 0 when not writing to a terminal.
	TerminalWidth int
	// Color enables ANSI colours in json and stats reports.
	Color bool
}

// New creates the Clair client and the plugins described by cfg.
func New(cfg config.Config) (*PaClair, error) {
	whitelist, err := cfg.Whitelist()
	if err != nil {
		return nil, err
	}

	client, err := clair.New(cfg.General.API, cfg.General.ClairURL, clair.Options{
		Insecure:     !config.Enabled(cfg.General.Verify),
		Whitelist:    whitelist,
		HTMLTemplate: cfg.General.HTMLTemplate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	return NewWithClient(cfg, client)
}

// NewWithClient is New with an already configured Clair client.
func NewWithClient(cfg config.Config, client *clair.Client) (*PaClair, error) {
	ps, err := plugins.FromConfig(cfg, client)
	if err != nil {
		return nil, err
	}

	return &PaClair{Clair: client, plugins: ps}, nil
}

// Plugins lists the configured plugin names.
func (p *PaClair) Plugins() []string {
	names := make([]string, 0, len(p.plugins))
	for name := range p.plugins {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

func (p *PaClair) Plugin(name string) (plugins.Plugin, error) {
	plugin, ok := p.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known plugins: %s)", plugins.ErrPluginNotFound, name, strings.Join(p.Plugins(), ", "))
	}

	return plugin, nil
}

func (p *PaClair) Push(ctx context.Context, plugin, name string) error {
	pl, err := p.Plugin(plugin)
	if err != nil {
		return err
	}

	cmdlogger.Debugf("Pushing %s with plugin %s", name, plugin)

	return pl.Push(ctx, name)
}

func (p *PaClair) Delete(ctx context.Context, plugin, name string) error {
	pl, err := p.Plugin(plugin)
	if err != nil {
		return err
	}

	cmdlogger.Debugf("Deleting %s with plugin %s", name, plugin)

	return pl.Delete(ctx, name)
}

// Analyse reports on the analysis of name by Clair.
func (p *PaClair) Analyse(ctx context.Context, plugin, name string, opts AnalyseOptions) ([]byte, error) {
	pl, err := p.Plugin(plugin)
	if err != nil {
		return nil, err
	}

	format := opts.Format
	if format == "" {
		format = output.FormatJSON
	}

	report, err := p.report(ctx, pl, name, format, opts)
	if err != nil {
		return nil, err
	}

	if opts.Delete {
		if err := pl.Delete(ctx, name); err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (p *PaClair) report(ctx context.Context, pl plugins.Plugin, name string, format output.Format, opts AnalyseOptions) ([]byte, error) {
	kind := plugins.AnalysisRows
	switch format {
	case output.FormatJSON:
		kind = plugins.AnalysisJSON
	case output.FormatStats:
		kind = plugins.AnalysisStatistics
	case output.FormatHTML, output.FormatTable, output.FormatSARIF:
	default:
		return nil, fmt.Errorf("%w: %q", output.ErrUnknownFormat, format)
	}

	analysis, err := pl.Analyse(ctx, name, kind)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case output.FormatJSON:
		err = output.PrintJSON(&buf, analysis.JSON, opts.Color)
	case output.FormatStats:
		err = output.PrintStatistics(&buf, analysis.Statistics, opts.Color)
	case output.FormatHTML:
		return p.Clair.RenderHTML(analysis.AncestryName, analysis.Rows)
	case output.FormatTable:
		output.PrintTableResults(&buf, analysis.Rows, opts.TerminalWidth)
	case output.FormatSARIF:
		err = output.PrintSARIFReport(&buf, pl.Artifact(name), analysis.Rows)
	}
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
