// Package report renders boxes, ranked candidates and hit statistics for a
// terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/scoring"
)

// Palette is the pastel cycle used for successive stats rows.
var Palette = []color.Attribute{
	color.FgHiCyan,
	color.FgHiGreen,
	color.FgHiRed,
	color.FgHiYellow,
}

// PaletteIndex returns the palette slot for the n-th stored row, counting
// from 1 the way the results sheet does.
func PaletteIndex(row int) int {
	if row < 1 {
		row = 1
	}
	return (row - 1) % len(Palette)
}

// Renderer writes reports to out, colored when enabled.
type Renderer struct {
	out      io.Writer
	colorize bool
}

// NewRenderer returns a Renderer. Pass colorize=false for files and pipes.
func NewRenderer(out io.Writer, colorize bool) *Renderer {
	return &Renderer{out: out, colorize: colorize}
}

func (r *Renderer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if r.colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Header writes a bold section title.
func (r *Renderer) Header(title string) error {
	_, err := r.paint(color.Bold).Fprintf(r.out, "%s\n", title)
	return err
}

// Box writes the grid, then any forced cells or spread violations.
func (r *Renderer) Box(res box.Result) error {
	if err := r.Header(fmt.Sprintf("Box (%s)", res.Strategy)); err != nil {
		return err
	}
	grid := r.paint(color.FgHiWhite, color.Bold)
	for _, line := range strings.Split(res.Box.String(), "\n") {
		if _, err := grid.Fprintf(r.out, "  %s\n", line); err != nil {
			return err
		}
	}

	warn := r.paint(color.FgYellow)
	for _, c := range res.Forced {
		if _, err := warn.Fprintf(r.out, "  ! cell r%dc%d forced to 0\n", c.Row+1, c.Col+1); err != nil {
			return err
		}
	}
	for _, v := range res.Violations {
		if _, err := warn.Fprintf(r.out, "  ! %s\n", v); err != nil {
			return err
		}
	}
	return nil
}

// Candidates writes the ranked list with scores.
func (r *Renderer) Candidates(ranked []scoring.ScoredCandidate) error {
	if err := r.Header(fmt.Sprintf("Top %d candidates", len(ranked))); err != nil {
		return err
	}
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(r.out, "  (no history)")
		return err
	}
	num := r.paint(color.FgHiWhite, color.Bold)
	for i, c := range ranked {
		if _, err := fmt.Fprintf(r.out, "  %d. %s  %.4f\n", i+1, num.Sprint(c.Number), c.Score); err != nil {
			return err
		}
	}
	return nil
}

// Stats writes a multi-line stats block in the palette color for row.
func (r *Renderer) Stats(row int, text string) error {
	c := r.paint(Palette[PaletteIndex(row)])
	for _, line := range strings.Split(text, "\n") {
		if _, err := c.Fprintln(r.out, line); err != nil {
			return err
		}
	}
	return nil
}
