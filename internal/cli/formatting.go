package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// stdoutIsTerminal reports whether stdout is attached to a terminal,
// gating all pterm styling.
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// bold formats s in bold when stdout is a terminal.
func bold(s string) string {
	if !stdoutIsTerminal() {
		return s
	}
	return pterm.Bold.Sprint(s)
}

// success formats s as a success line when stdout is a terminal.
func success(s string) string {
	if !stdoutIsTerminal() {
		return s
	}
	return pterm.FgGreen.Sprint(s)
}

// dim formats s as secondary text when stdout is a terminal.
func dim(s string) string {
	if !stdoutIsTerminal() {
		return s
	}
	return pterm.FgGray.Sprint(s)
}
