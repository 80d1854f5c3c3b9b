package host

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// ConsoleNotifier prints notices to a terminal, colored when supported
type ConsoleNotifier struct {
	mu    sync.Mutex
	out   io.Writer
	info  *color.Color
	warn  *color.Color
	fail  *color.Color
	quiet bool
}

// NewConsoleNotifier writes to out. Quiet drops info notices.
func NewConsoleNotifier(out io.Writer, quiet bool) *ConsoleNotifier {
	return &ConsoleNotifier{
		out:   out,
		info:  color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		fail:  color.New(color.FgRed, color.Bold),
		quiet: quiet,
	}
}

func (n *ConsoleNotifier) Info(msg string) {
	if n.quiet {
		return
	}
	n.print(n.info, "✓", msg)
}

func (n *ConsoleNotifier) Warn(msg string) {
	n.print(n.warn, "!", msg)
}

func (n *ConsoleNotifier) Error(msg string) {
	n.print(n.fail, "✗", msg)
}

func (n *ConsoleNotifier) print(c *color.Color, marker, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c.Fprintf(n.out, "%s %s", marker, msg)
	fmt.Fprintln(n.out)
}
