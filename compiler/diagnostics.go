package compiler

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// Severity classifies a diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a problem found in the program, with its location.
type Diagnostic struct {
	Span     Span
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	pos := d.Span.Start
	return fmt.Sprintf("line %d, column %d: %s", pos.Line, pos.Column, d.Message)
}

// Reporter writes diagnostics in `file:line:col: severity: message` form.
// Severities are colored when the output is a terminal.
type Reporter struct {
	w     io.Writer
	file  string
	color bool
}

// NewReporter creates a reporter writing to w for diagnostics of file.
func NewReporter(w io.Writer, file string) *Reporter {
	return &Reporter{w: w, file: file, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Report writes one diagnostic.
func (r *Reporter) Report(d Diagnostic) {
	sev := d.Severity.String()
	if r.color {
		code := "31" // red
		if d.Severity == SeverityWarning {
			code = "33" // yellow
		}
		sev = "\033[1;" + code + "m" + sev + "\033[0m"
	}
	pos := d.Span.Start
	fmt.Fprintf(r.w, "%s:%d:%d: %s: %s\n", r.file, pos.Line, pos.Column, sev, d.Message)
}

// ReportAll writes diagnostics in order and returns how many were errors.
func (r *Reporter) ReportAll(diags []Diagnostic) int {
	errs := 0
	for _, d := range diags {
		r.Report(d)
		if d.Severity == SeverityError {
			errs++
		}
	}
	return errs
}
