package output

import (
	"os"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w interface{}) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// colorizeKey highlights a pattern key by how rare it is: single
// occurrences stand out in bold red, a handful in yellow, and boilerplate
// seen many times is dimmed.
func colorizeKey(frequency int, key string) string {
	switch {
	case frequency <= 1:
		return colorBold + colorRed + key + colorReset
	case frequency <= 5:
		return colorYellow + key + colorReset
	case frequency >= 100:
		return colorGray + key + colorReset
	default:
		return key
	}
}
