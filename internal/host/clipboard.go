package host

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
)

// SystemClipboard writes to the OS clipboard
type SystemClipboard struct{}

// WriteText implements publish.Clipboard
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// WriterClipboard sends the exported text to a writer instead of the clipboard
type WriterClipboard struct {
	W io.Writer
}

// WriteText implements publish.Clipboard
func (c WriterClipboard) WriteText(text string) error {
	_, err := io.WriteString(c.W, text)
	return err
}
