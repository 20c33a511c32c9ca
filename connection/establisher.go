package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Kind selects the connection strategy.
type Kind string

const (
	// KindDirect binds an already open channel.
	KindDirect Kind = "direct"
	// KindNative opens the channel through the native window host.
	KindNative Kind = "native"
	// KindWeb dials the networked socket and reconnects on loss.
	KindWeb Kind = "web"
)

// ParseKind validates a configured kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDirect, KindNative, KindWeb:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Establisher opens the client channel with the strategy chosen by the caller.
type Establisher struct {
	Native NativeBridge
	Dialer Dialer
	Socket SocketOptions
	Logger *slog.Logger
}

// Establish returns the channel for kind. A non-nil existing channel is bound
// as-is whatever the kind. onReconnect is only ever called for KindWeb.
func (e *Establisher) Establish(ctx context.Context, kind Kind, existing Channel, onReconnect func()) (Channel, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if existing != nil {
		logger.Debug("binding existing channel")
		return existing, nil
	}

	switch kind {
	case KindDirect:
		return nil, errors.New("connection: direct kind requires an open channel")
	case KindNative:
		if e.Native == nil {
			return nil, errors.New("connection: no native bridge configured")
		}
		ch, err := e.Native.Open(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("native channel open")
		return ch, nil
	case KindWeb:
		if e.Dialer == nil {
			e.Dialer = NewSocketIODialer(logger)
		}
		opts := e.Socket
		if opts.ClientID == "" {
			opts.ClientID = uuid.NewString()
		}
		logger.Debug("dialing socket channel", "url", opts.URL, "protocols", opts.Protocols, "multiplex", opts.Multiplex)
		return e.Dialer.Dial(ctx, opts, onReconnect)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
