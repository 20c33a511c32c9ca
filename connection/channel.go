// Package connection opens the duplex channel between the client and its remote peer.
//
// Three strategies are supported: binding an already open channel (in-process
// and tests), a native inter-process bridge, and a networked socket.io
// connection which is the only one that reconnects.
package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("connection: channel closed")
	// ErrUnknownKind is returned for an unsupported connection kind.
	ErrUnknownKind = errors.New("connection: unknown kind")
	// ErrConnectTimeout is returned when the peer did not accept the connection in time.
	ErrConnectTimeout = errors.New("connection: connect timeout")
)

// Message is one opaque frame on the channel. Its encoding belongs to the RPC layer.
type Message []byte

// Channel is a persistent duplex message channel.
type Channel interface {
	Send(ctx context.Context, msg Message) error
	// Messages yields inbound frames; it is closed when the channel closes.
	Messages() <-chan Message
	Close() error
}

// LoggerReplacer is implemented by channels whose diagnostic logger can be rebound
// after the handshake.
type LoggerReplacer interface {
	ReplaceLogger(l *slog.Logger)
}

type pipeEnd struct {
	in     chan Message
	out    chan Message
	once   *sync.Once
	closed chan struct{}

	pump sync.Once
	msgs chan Message
}

// Pipe returns two connected in-process channel ends.
func Pipe() (Channel, Channel) {
	ab := make(chan Message, 64)
	ba := make(chan Message, 64)
	once := &sync.Once{}
	closed := make(chan struct{})
	a := &pipeEnd{in: ba, out: ab, once: once, closed: closed}
	b := &pipeEnd{in: ab, out: ba, once: once, closed: closed}
	return a, b
}

func (p *pipeEnd) Send(ctx context.Context, msg Message) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	select {
	case p.out <- msg:
		return nil
	case <-p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Messages() <-chan Message {
	p.pump.Do(func() {
		p.msgs = make(chan Message)
		go func() {
			defer close(p.msgs)
			for {
				select {
				case m := <-p.in:
					select {
					case p.msgs <- m:
					case <-p.closed:
						return
					}
				case <-p.closed:
					return
				}
			}
		}()
	})
	return p.msgs
}

// Close closes both ends.
func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
