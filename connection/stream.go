package connection

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	frameMessage     = "message"
	frameCloseWindow = "closeWindow"
)

// frame is one newline-delimited JSON record on a stream.
type frame struct {
	Kind     string `json:"kind"`
	Data     []byte `json:"data,omitempty"`
	WindowID string `json:"windowId,omitempty"`
}

// StreamChannel carries frames over any byte stream, one JSON object per line.
type StreamChannel struct {
	rwc    io.ReadWriteCloser
	logger atomic.Pointer[slog.Logger]

	wmu  sync.Mutex
	enc  *json.Encoder
	msgs chan Message

	closeOnce sync.Once
	closed    chan struct{}
}

// NewStreamChannel starts reading from rwc immediately.
func NewStreamChannel(rwc io.ReadWriteCloser, logger *slog.Logger) *StreamChannel {
	s := &StreamChannel{
		rwc:    rwc,
		enc:    json.NewEncoder(rwc),
		msgs:   make(chan Message, 64),
		closed: make(chan struct{}),
	}
	s.ReplaceLogger(logger)
	go s.readLoop()
	return s
}

func (s *StreamChannel) ReplaceLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger.Store(l)
}

func (s *StreamChannel) log() *slog.Logger { return s.logger.Load() }

func (s *StreamChannel) readLoop() {
	defer close(s.msgs)
	sc := bufio.NewScanner(s.rwc)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var f frame
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			s.log().Warn("dropping malformed frame", "error", err)
			continue
		}
		if f.Kind != frameMessage {
			s.log().Debug("ignoring control frame", "kind", f.Kind)
			continue
		}
		select {
		case s.msgs <- Message(f.Data):
		case <-s.closed:
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case <-s.closed:
		default:
			s.log().Error("stream read failed", "error", err)
		}
	}
}

func (s *StreamChannel) Send(ctx context.Context, msg Message) error {
	return s.sendFrame(ctx, frame{Kind: frameMessage, Data: msg})
}

func (s *StreamChannel) sendFrame(ctx context.Context, f frame) error {
	select {
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.enc.Encode(f); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Kind, err)
	}
	return nil
}

func (s *StreamChannel) Messages() <-chan Message { return s.msgs }

func (s *StreamChannel) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.rwc.Close()
	})
	return err
}
