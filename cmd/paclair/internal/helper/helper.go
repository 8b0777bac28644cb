// Package helper holds what the paclair commands share.
package helper

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paclair/paclair/internal/cmdlogger"
	"github.com/paclair/paclair/internal/config"
	"github.com/paclair/paclair/internal/plugins"
	"github.com/paclair/paclair/pkg/paclair"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrWriteReport is returned when an analysis report cannot be written.
var ErrWriteReport = errors.New("failed to write report")

// ReportedError wraps an error that was already logged.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string {
	return e.Err.Error()
}

func (e *ReportedError) Unwrap() error {
	return e.Err
}

// LoadPaClair builds a PaClair from the file given by --conf.
func LoadPaClair(cmd *cli.Command) (*paclair.PaClair, error) {
	path := cmd.String("conf")

	cfg, err := config.Load(path)
	if err == nil {
		var p *paclair.PaClair
		if p, err = paclair.New(cfg); err == nil {
			return p, nil
		}
	}

	if errors.Is(err, config.ErrInvalidConfig) {
		cmdlogger.Errorf("%s %s: %v", cmdlogger.InvalidConfigPrefix, path, err)

		return nil, &ReportedError{Err: err}
	}

	return nil, err
}

// Arguments splits the command arguments into the plugin and the names it
// is run on.
func Arguments(cmd *cli.Command) (string, []string, error) {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return "", nil, fmt.Errorf("%s needs a plugin and at least one name, see --help", cmd.Name)
	}

	return args[0], args[1:], nil
}

// ForEach runs fn on every name. A failure is logged and the next name is
// processed; the last failure is returned. An unknown plugin stops the loop.
func ForEach(plugin string, names []string, fn func(name string) error) error {
	var last error
	for _, name := range names {
		err := fn(name)
		if err == nil {
			continue
		}

		if errors.Is(err, plugins.ErrPluginNotFound) {
			cmdlogger.Errorf("Can't find plugin %s in configuration file.", plugin)

			return &ReportedError{Err: err}
		}

		var reported *ReportedError
		if !errors.As(err, &reported) {
			cmdlogger.Errorf("Error treating %s: %v", name, err)
		}
		last = err
	}

	if last != nil {
		return &ReportedError{Err: last}
	}

	return nil
}

// TerminalWidth is the width of w, 0 when w is not a terminal.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}

	return width
}

func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}
