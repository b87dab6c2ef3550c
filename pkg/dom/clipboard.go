package dom

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// ClipboardSink abstracts the clipboard-write primitive so the host
// machine's clipboard can back a page adapter, and tests can capture writes.
type ClipboardSink interface {
	Write(ctx context.Context, text string) error
}

// HostClipboard writes to the machine's clipboard. It is the fallback sink
// when the page's own clipboard API is unavailable or denies the write.
type HostClipboard struct{}

// Write places text on the host clipboard.
func (HostClipboard) Write(_ context.Context, text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("host clipboard is unsupported on this platform")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("host clipboard write failed: %w", err)
	}
	return nil
}
