package host

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/altafino/mdimg-publish/internal/publish"
)

// TerminalProgress prints per-image progress lines. The coordinator
// serialises calls, so it keeps no lock of its own.
type TerminalProgress struct {
	out   io.Writer
	total int
	done  int
}

// NewTerminalProgress writes to out
func NewTerminalProgress(out io.Writer) *TerminalProgress {
	return &TerminalProgress{out: out}
}

// Start implements publish.Observer
func (p *TerminalProgress) Start(refs []*publish.ImageReference) {
	p.total = len(refs)
	p.done = 0
	fmt.Fprintf(p.out, "Uploading %d image(s)\n", p.total)
}

// Settled implements publish.Observer
func (p *TerminalProgress) Settled(ref *publish.ImageReference, outcome publish.Outcome) {
	p.done++
	status := color.GreenString("ok")
	if outcome.Kind != publish.Succeeded {
		status = color.RedString(outcome.Kind.String())
	}
	fmt.Fprintf(p.out, "[%s] %s %s\n", p.Fraction(), ref.DisplayName, status)
}

// Finish implements publish.Observer
func (p *TerminalProgress) Finish(counts publish.Counts) {
	fmt.Fprintf(p.out, "Done: %d uploaded, %d failed\n", counts.Succeeded, counts.Failed)
}

// Fraction renders "k/N (p%)"
func (p *TerminalProgress) Fraction() string {
	pct := 0
	if p.total > 0 {
		pct = p.done * 100 / p.total
	}
	return fmt.Sprintf("%d/%d (%d%%)", p.done, p.total, pct)
}
