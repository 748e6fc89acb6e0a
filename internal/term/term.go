// Package term provides ANSI color helpers for terminal output.
package term

import (
	"os"
	"sync/atomic"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(os.Getenv("NO_COLOR") == "")
}

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled.Store(false)
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled.Store(true)
}

// ColorsEnabled reports whether colors are enabled.
func ColorsEnabled() bool {
	return colorEnabled.Load()
}

// color wraps text in ANSI color codes if colors are enabled.
func color(code, text string) string {
	if !colorEnabled.Load() {
		return text
	}
	return code + text + colorReset
}

func Red(text string) string    { return color(colorRed, text) }
func Green(text string) string  { return color(colorGreen, text) }
func Yellow(text string) string { return color(colorYellow, text) }
func Blue(text string) string   { return color(colorBlue, text) }
func Cyan(text string) string   { return color(colorCyan, text) }
func White(text string) string  { return color(colorWhite, text) }
func Gray(text string) string   { return color(colorGray, text) }
func Bold(text string) string   { return color(colorBold, text) }
