// Package logging builds the leveled logger shared by the store, the blob
// store and the hosts.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/labstack/gommon/log"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const textHeader = "${time_rfc3339} ${level} ${prefix}"

// Prefix tags every line written by the logger.
const Prefix = "backoffice"

// ParseLevel maps a level name to a gommon level. The empty string means
// warn.
func ParseLevel(s string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG, nil
	case "info":
		return log.INFO, nil
	case "", "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off", "none":
		return log.OFF, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// New returns a logger writing to out at level in format. An empty format
// is text.
func New(out io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := log.New(Prefix)
	l.SetOutput(out)
	l.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "", FormatText:
		l.SetHeader(textHeader)
	case FormatJSON:
		// gommon's default header is JSON.
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return l, nil
}
