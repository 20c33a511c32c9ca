package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// NativeBridge is the inter-process link to a native window host.
type NativeBridge interface {
	// Open returns the channel to the host process.
	Open(ctx context.Context) (Channel, error)
	// CloseWindow asks the host process to close the window.
	CloseWindow(ctx context.Context, windowID string) error
}

// UnixBridge talks to the window host over a unix domain socket.
type UnixBridge struct {
	Path   string
	Logger *slog.Logger
	// Dial overrides how the connection is made; tests use net.Pipe.
	Dial func(ctx context.Context) (net.Conn, error)

	mu sync.Mutex
	ch *StreamChannel
}

func (b *UnixBridge) Open(ctx context.Context) (Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		return b.ch, nil
	}

	dial := b.Dial
	if dial == nil {
		dial = func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", b.Path)
		}
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("open native channel %q: %w", b.Path, err)
	}
	b.ch = NewStreamChannel(conn, b.Logger)
	return b.ch, nil
}

func (b *UnixBridge) CloseWindow(ctx context.Context, windowID string) error {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	if ch == nil {
		return ErrClosed
	}
	return ch.sendFrame(ctx, frame{Kind: frameCloseWindow, WindowID: windowID})
}
