//go:build windows || plan9

package cmdlogger

import "errors"

func NewSyslog() (CmdLogger, error) {
	return nil, errors.New("syslog is not available on this platform")
}
