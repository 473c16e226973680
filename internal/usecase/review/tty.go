package review

import (
	"os"

	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsOutputTerminal reports whether stdout is a TTY. The CLI uses it to
// resolve the "auto" log format: human-readable on a terminal, JSON when
// output is piped or captured by CI.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}
