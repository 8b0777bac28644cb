package analyse

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/paclair/paclair/cmd/paclair/internal/helper"
	"github.com/paclair/paclair/internal/cmdlogger"
	"github.com/paclair/paclair/internal/output"
	"github.com/paclair/paclair/pkg/paclair"
	"github.com/urfave/cli/v3"
)

const (
	reportTerm = "term"
	reportFile = "file"
)

func formatNames() []string {
	names := make([]string, 0, len(output.Formats))
	for _, f := range output.Formats {
		names = append(names, f.String())
	}

	return names
}

func Command(stdout, _ io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyse",
		Usage:     "reports on images or archives already pushed to Clair",
		ArgsUsage: "<plugin> <name> [name...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output-format",
				Usage: "sets the report format; value can be: " + strings.Join(formatNames(), ", "),
				Value: output.FormatJSON.String(),
				Action: func(_ context.Context, _ *cli.Command, s string) error {
					_, err := output.ParseFormat(s)

					return err
				},
			},
			&cli.StringFlag{
				Name:  "output-report",
				Usage: "where reports go; value can be: term, file",
				Value: reportTerm,
				Action: func(_ context.Context, _ *cli.Command, s string) error {
					if !slices.Contains([]string{reportTerm, reportFile}, s) {
						return fmt.Errorf("unsupported output-report %q - must be one of: term, file", s)
					}

					return nil
				},
			},
			&cli.StringFlag{
				Name:      "output-dir",
				Usage:     "directory file reports are written to",
				Value:     ".",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:  "delete",
				Usage: "deletes the analysis from Clair once reported",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return action(ctx, cmd, stdout)
		},
	}
}

// ReportFileName is the file a report on name is written to.
func ReportFileName(name string, format output.Format) string {
	return strings.NewReplacer("/", "_", ":", "_").Replace(name) + "." + format.Extension()
}

func action(ctx context.Context, cmd *cli.Command, stdout io.Writer) error {
	plugin, names, err := helper.Arguments(cmd)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(cmd.String("output-format"))
	if err != nil {
		return err
	}

	toFile := cmd.String("output-report") == reportFile
	dir := cmd.String("output-dir")

	opts := paclair.AnalyseOptions{
		Format: format,
		Delete: cmd.Bool("delete"),
	}
	if !toFile {
		opts.TerminalWidth = helper.TerminalWidth(stdout)
		opts.Color = helper.IsTerminal(stdout)

		if format != output.FormatStats && format != output.FormatTable {
			cmdlogger.SendEverythingToStderr()
		}
	}

	p, err := helper.LoadPaClair(cmd)
	if err != nil {
		return err
	}

	return helper.ForEach(plugin, names, func(name string) error {
		report, err := p.Analyse(ctx, plugin, name, opts)
		if err != nil {
			return err
		}

		if !toFile {
			if _, err := stdout.Write(report); err != nil {
				return fmt.Errorf("%w: %w", helper.ErrWriteReport, err)
			}

			return nil
		}

		path := filepath.Join(dir, ReportFileName(name, format))
		// #nosec G306 -- reports are meant to be shared
		if err := os.WriteFile(path, report, 0o644); err != nil {
			cmdlogger.Errorf("Can't write in directory: %s", dir)

			return &helper.ReportedError{Err: fmt.Errorf("%w: %w", helper.ErrWriteReport, err)}
		}
		cmdlogger.Infof("Report on %s written to %s", name, path)

		return nil
	})
}
