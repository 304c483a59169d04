package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
)

var (
	_ authgate.Notifier = (*Writer)(nil)
	_ authgate.Notifier = (*Paced)(nil)
)

func TestWriterPrintsCode(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriter(&buf)

	if err := n.SendCode(context.Background(), "alice@example.com", "482913", 5*time.Minute); err != nil {
		t.Fatalf("SendCode failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "alice@example.com") || !strings.Contains(out, "482913") || !strings.Contains(out, "5m0s") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWriterHonoursCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewWriter(&buf).SendCode(ctx, "a@example.com", "123456", time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("expected nothing written")
	}
}

func TestPacedDelegatesAndBlocksOverBurst(t *testing.T) {
	var calls atomic.Int32
	inner := authgate.NotifierFunc(func(context.Context, string, string, time.Duration) error {
		calls.Add(1)
		return nil
	})
	p := NewPaced(inner, 0.001, 1)

	if err := p.SendCode(context.Background(), "a@example.com", "123456", time.Minute); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.SendCode(ctx, "a@example.com", "123456", time.Minute); err == nil {
		t.Fatal("expected second send to be paced out by the deadline")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one delegated send, got %d", calls.Load())
	}
}
