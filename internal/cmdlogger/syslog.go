//go:build !windows && !plan9

package cmdlogger

import (
	"fmt"
	"log/slog"
	"log/syslog"
	"os"
)

// NewSyslog returns a logger sending every record to the local syslog daemon.
func NewSyslog() (CmdLogger, error) {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, "")
	if err != nil {
		return nil, fmt.Errorf("could not connect to syslog: %w", err)
	}

	prefix := fmt.Sprintf("PACLAIR[%d]: (%s)", os.Getpid(), os.Getenv("USER"))

	return &Handler{
		Level: slog.LevelInfo,
		emit: func(level slog.Level, msg string) error {
			line := prefix + " " + levelLetter(level) + " " + msg

			switch {
			case level >= slog.LevelError:
				return w.Err(line)
			case level >= slog.LevelWarn:
				return w.Warning(line)
			case level >= slog.LevelInfo:
				return w.Info(line)
			default:
				return w.Debug(line)
			}
		},
	}, nil
}
