package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes rendered components to a writer
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer; a nil writer means stdout
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the width the printer renders boxes at
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// PrintSuccess prints a success line with details
func (p *Printer) PrintSuccess(title string, fields ...Field) {
	p.Println(RenderSuccess(title, fields))
}

// PrintWarning prints a warning line
func (p *Printer) PrintWarning(msg string) {
	p.Println(WarningStyle.Render(WarningMarker + " " + msg))
}

// PrintError prints an error box with troubleshooting advice
func (p *Printer) PrintError(title string, err error) {
	p.Println(RenderError(title, err, p.width))
}

// PrintFields prints aligned key/value lines
func (p *Printer) PrintFields(fields ...Field) {
	p.Println(RenderFields(fields))
}
