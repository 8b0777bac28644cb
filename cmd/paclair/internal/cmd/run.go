// Package cmd runs the paclair command line.
package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/paclair/paclair/cmd/paclair/internal/helper"
	"github.com/paclair/paclair/internal/ancestry"
	"github.com/paclair/paclair/internal/clair"
	"github.com/paclair/paclair/internal/cmdlogger"
	"github.com/paclair/paclair/internal/config"
	"github.com/paclair/paclair/internal/output"
	"github.com/paclair/paclair/internal/plugins"
	"github.com/paclair/paclair/internal/reference"
	"github.com/paclair/paclair/internal/registry"
	"github.com/paclair/paclair/internal/testlogger"
	"github.com/paclair/paclair/internal/version"
	"github.com/urfave/cli/v3"
)

var (
	commit = "n/a"
	date   = "n/a"
)

// Exit codes of the paclair command.
const (
	ExitInvalidConfig  = 1
	ExitPluginNotFound = 2
	ExitPaclairError   = 3
	ExitWriteError     = 4
	ExitErrored        = 127
)

type CommandBuilder = func(stdout, stderr io.Writer) *cli.Command

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "shorthand for --verbosity=debug",
		},
		&cli.StringFlag{
			Name:  "verbosity",
			Usage: "specify the level of information that should be provided during runtime; value can be: " + strings.Join(cmdlogger.Levels(), ", "),
			Value: "info",
		},
		&cli.BoolFlag{
			Name:  "syslog",
			Usage: "sends logs to the local syslog daemon",
		},
		&cli.StringFlag{
			Name:      "conf",
			Usage:     "configuration file",
			Value:     config.DefaultPath,
			TakesFile: true,
		},
	}
}

// isPaclairError reports whether err is one of the failures paclair itself
// raises while treating a name.
func isPaclairError(err error) bool {
	var connErr *clair.ConnectionError

	return errors.As(err, &connErr) ||
		errors.Is(err, clair.ErrResourceNotFound) ||
		errors.Is(err, clair.ErrUnsupportedOperation) ||
		errors.Is(err, clair.ErrUnknownAPI) ||
		errors.Is(err, registry.ErrRegistryAccess) ||
		errors.Is(err, reference.ErrInvalidReference) ||
		errors.Is(err, ancestry.ErrEmptyAncestry) ||
		errors.Is(err, output.ErrUnknownFormat)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return ExitInvalidConfig
	case errors.Is(err, plugins.ErrPluginNotFound):
		return ExitPluginNotFound
	case errors.Is(err, helper.ErrWriteReport):
		return ExitWriteError
	case isPaclairError(err):
		return ExitPaclairError
	}

	return 0
}

func Run(args []string, stdout, stderr io.Writer, commands []CommandBuilder) int {
	// urfave/cli uses a global for its help flag which makes it possible for a nil
	// pointer dereference if running in a parallel setting, which our test suite
	// does, so this is used to hide the help flag so the global won't be used
	// unless a particular env variable is set
	//
	// see https://github.com/urfave/cli/issues/2176
	shouldHideHelp := testing.Testing() && os.Getenv("TEST_SHOW_HELP") != "true"

	// --- Setup Logger ---
	logHandler := cmdlogger.New(stdout, stderr)

	// If in testing mode, set logger via Handler
	// Otherwise, set default global logger
	if testing.Testing() {
		handler, ok := slog.Default().Handler().(*testlogger.Handler)
		if !ok {
			panic("Test failed to initialize default logger with Handler")
		}

		handler.AddInstance(logHandler)
		defer handler.Delete()
	} else {
		slog.SetDefault(slog.New(logHandler))
	}
	// ---

	cli.VersionPrinter = func(cmd *cli.Command) {
		cmdlogger.Infof("paclair version: %s", cmd.Version)
		cmdlogger.Infof("commit: %s", commit)
		cmdlogger.Infof("built at: %s", date)
	}

	cmds := make([]*cli.Command, 0, len(commands))
	for _, cmd := range commands {
		c := cmd(stdout, stderr)
		c.HideHelp = shouldHideHelp

		cmds = append(cmds, c)
	}

	app := &cli.Command{
		Name:      "paclair",
		Version:   version.PaclairVersion,
		Usage:     "pushes container images and archives to Clair and reports on their vulnerabilities",
		Suggest:   true,
		HideHelp:  shouldHideHelp,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands:  cmds,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := cmdlogger.ParseLevel(cmd.String("verbosity"))
			if err != nil {
				return ctx, err
			}
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}

			// the syslog daemon is not touched by tests
			if cmd.Bool("syslog") && !testing.Testing() {
				sys, err := cmdlogger.NewSyslog()
				if err != nil {
					return ctx, err
				}
				logHandler = sys
				slog.SetDefault(slog.New(logHandler))
			}
			cmdlogger.SetLevel(level)

			return ctx, nil
		},
	}

	// If ExitErrHandler is not set, cli will use the default cli.HandleExitCoder.
	// That handler exits early for any error with an ExitCode() method, skipping
	// the exit code mapping below, so it is replaced by a no-op.
	app.ExitErrHandler = func(_ context.Context, _ *cli.Command, _ error) {}

	err := app.Run(context.Background(), args)

	// if the config is invalid, it's possible that is why any other errors
	// happened so that exit code takes priority
	if logHandler.HasErroredBecauseInvalidConfig() {
		return ExitInvalidConfig
	}

	if err != nil {
		var reported *helper.ReportedError
		if !errors.As(err, &reported) {
			cmdlogger.Errorf("%v", err)
		}

		if code := exitCode(err); code != 0 {
			return code
		}
	}

	// if we've been told to print an error, and not already exited with
	// a specific error code, then exit with a generic non-zero code
	if logHandler.HasErrored() {
		return ExitErrored
	}

	return 0
}
