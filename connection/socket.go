package connection

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	eventConnect      = "connect"
	eventConnectError = "connect_error"
	eventReconnect    = "reconnect"
	eventMessage      = "message"

	defaultConnectTimeout = 15 * time.Second
)

// SocketOptions describes the networked channel.
type SocketOptions struct {
	// URL is the full service address, e.g. ws://127.0.0.1:8000/service.
	URL       string
	Protocols []string
	// Multiplex shares one manager per host between channels.
	Multiplex          bool
	ClientID           string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// Dialer opens a reconnecting socket channel. onReconnect fires after every
// successful reconnection, never for the first connect.
type Dialer interface {
	Dial(ctx context.Context, opts SocketOptions, onReconnect func()) (Channel, error)
}

// SocketIODialer dials socket.io servers.
type SocketIODialer struct {
	Logger *slog.Logger

	mu       sync.Mutex
	managers map[string]*socket.Manager
}

func NewSocketIODialer(logger *slog.Logger) *SocketIODialer {
	return &SocketIODialer{Logger: logger, managers: make(map[string]*socket.Manager)}
}

func (d *SocketIODialer) Dial(ctx context.Context, opts SocketOptions, onReconnect func()) (Channel, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	scheme := u.Scheme
	switch scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s", scheme, u.Host)

	ch := newSocketChannel(d.Logger)
	logger := ch.log().With("url", opts.URL, "client_id", opts.ClientID)

	o := socket.DefaultOptions()
	o.SetPath(u.Path)
	o.SetTransports(types.NewSet(transports.WebSocket))
	o.SetReconnection(true)
	o.SetAuth(map[string]any{"clientId": opts.ClientID})
	if len(opts.Protocols) > 0 {
		o.SetProtocols(opts.Protocols)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		o.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	manager := d.manager(baseURL, o, opts.Multiplex)
	client := manager.Socket("/", o)
	ch.client = client

	manager.On(types.EventName(eventReconnect), func(args ...any) {
		ch.log().Info("channel reconnected", "attempts", args)
		if onReconnect != nil {
			onReconnect()
		}
	})
	client.On(types.EventName(eventMessage), func(args ...any) {
		if len(args) == 0 {
			return
		}
		msg, err := toMessage(args[0])
		if err != nil {
			ch.log().Warn("dropping undecodable message", "error", err)
			return
		}
		ch.deliver(msg)
	})

	connected := make(chan error, 1)
	client.Once(types.EventName(eventConnect), func(...any) {
		logger.Debug("handshake complete")
		connected <- nil
	})
	client.Once(types.EventName(eventConnectError), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Debug("handshake failed", "error", err)
		connected <- err
	})

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	logger.Debug("Initiating connection...")
	client.Connect()

	select {
	case err := <-connected:
		if err != nil {
			client.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return ch, nil
	case <-ctx.Done():
		client.Disconnect()
		return nil, fmt.Errorf("waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		client.Disconnect()
		return nil, fmt.Errorf("%w after %s", ErrConnectTimeout, timeout)
	}
}

func (d *SocketIODialer) manager(baseURL string, o *socket.Options, multiplex bool) *socket.Manager {
	if !multiplex {
		return socket.NewManager(baseURL, o)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.managers == nil {
		d.managers = make(map[string]*socket.Manager)
	}
	if m, ok := d.managers[baseURL]; ok {
		return m
	}
	m := socket.NewManager(baseURL, o)
	d.managers[baseURL] = m
	return m
}

func toMessage(v any) (Message, error) {
	switch t := v.(type) {
	case []byte:
		return Message(t), nil
	case string:
		return Message(t), nil
	case io.Reader:
		b, err := io.ReadAll(t)
		return Message(b), err
	default:
		b, err := json.Marshal(t)
		return Message(b), err
	}
}

type socketChannel struct {
	client *socket.Socket
	logger atomic.Pointer[slog.Logger]
	msgs   chan Message

	// mu orders deliver against Close so msgs is never written after it is closed.
	mu        sync.Mutex
	done      bool
	closeOnce sync.Once
	closed    chan struct{}
}

func newSocketChannel(logger *slog.Logger) *socketChannel {
	ch := &socketChannel{msgs: make(chan Message, 64), closed: make(chan struct{})}
	ch.ReplaceLogger(logger)
	return ch
}

// deliver hands an inbound frame to Messages. It blocks while the buffer is
// full and drops the frame once the channel is closed.
func (s *socketChannel) deliver(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	select {
	case s.msgs <- msg:
	case <-s.closed:
	}
}

func (s *socketChannel) ReplaceLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger.Store(l)
}

func (s *socketChannel) log() *slog.Logger { return s.logger.Load() }

func (s *socketChannel) Send(ctx context.Context, msg Message) error {
	select {
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := s.client.Emit(eventMessage, []byte(msg)); err != nil {
		return fmt.Errorf("emit message: %w", err)
	}
	return nil
}

func (s *socketChannel) Messages() <-chan Message { return s.msgs }

func (s *socketChannel) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		s.done = true
		close(s.msgs)
		s.mu.Unlock()
		s.log().Info("Destroying socket.io channel")
		if s.client != nil {
			s.client.Disconnect()
		}
	})
	return nil
}
