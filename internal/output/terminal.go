package output

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ColorDisabled reports whether output to f should be plain: when forced by
// the caller, when NO_COLOR is set, or when f is not a terminal.
func ColorDisabled(forced bool, f *os.File) bool {
	if forced {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return !IsTerminal(f)
}
