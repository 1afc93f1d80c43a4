//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// CleanFileName makes file name safe to use: no separators, no control
// characters, no leading dots (hidden files).
func CleanFileName(in string) string {
	out := strings.TrimLeft(cleanName(in, ""), ".")
	if len(strings.TrimSpace(out)) == 0 {
		return badFileName
	}
	return out
}

// EnableColorOutput reports if stream is a terminal.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
