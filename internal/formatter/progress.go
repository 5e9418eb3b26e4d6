package formatter

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Progress shows a spinner with suffix on w while fn runs. The spinner stays
// silent when w is not a terminal.
func Progress(w io.Writer, suffix string, fn func() error) error {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	s.Stop()
	return err
}

// Success prints a green check line to w.
func Success(w io.Writer, msg string) {
	color.New(color.FgGreen).Fprintf(w, "✓ %s\n", msg)
}

// Failure prints a red cross line to w.
func Failure(w io.Writer, msg string) {
	color.New(color.FgRed).Fprintf(w, "✗ %s\n", msg)
}
