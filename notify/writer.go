package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer prints each code to an io.Writer. It exists for local development,
// where no mail provider is configured and the operator reads the code from
// the terminal.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// SendCode writes one line for the code.
func (n *Writer) SendCode(ctx context.Context, address, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "authgate code for %s: %s (valid %s)\n", address, code, ttl)
	return err
}
