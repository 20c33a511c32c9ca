package connection

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch Channel) Message {
	t.Helper()
	select {
	case m, ok := <-ch.Messages():
		require.True(t, ok, "channel closed")
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPipe_RoundTripAndClose(t *testing.T) {
	a, b := Pipe()
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, Message("ping")))
	assert.Equal(t, Message("ping"), recv(t, b))
	require.NoError(t, b.Send(ctx, Message("pong")))
	assert.Equal(t, Message("pong"), recv(t, a))
	assert.Equal(t, a.Messages(), a.Messages())

	require.NoError(t, a.Close())
	assert.ErrorIs(t, b.Send(ctx, Message("late")), ErrClosed)
	_, ok := <-b.Messages()
	assert.False(t, ok)
	assert.NoError(t, b.Close())
}

func TestStreamChannel_OverNetPipe(t *testing.T) {
	c1, c2 := net.Pipe()
	left := NewStreamChannel(c1, nil)
	right := NewStreamChannel(c2, nil)
	defer left.Close()
	defer right.Close()

	ctx := context.Background()
	go func() { _ = left.Send(ctx, Message(`{"jsonrpc":"2.0"}`)) }()
	assert.Equal(t, Message(`{"jsonrpc":"2.0"}`), recv(t, right))

	require.NoError(t, right.Close())
	assert.ErrorIs(t, right.Send(ctx, Message("x")), ErrClosed)
}

func TestStreamChannel_SkipsControlAndMalformedFrames(t *testing.T) {
	c1, c2 := net.Pipe()
	ch := NewStreamChannel(c1, nil)
	defer ch.Close()

	go func() {
		_, _ = c2.Write([]byte("not json\n"))
		_, _ = c2.Write([]byte(`{"kind":"closeWindow","windowId":"1"}` + "\n"))
		_, _ = c2.Write([]byte(`{"kind":"message","data":"aGk="}` + "\n"))
	}()
	assert.Equal(t, Message("hi"), recv(t, ch))
}

func TestUnixBridge_OpenAndCloseWindow(t *testing.T) {
	client, server := net.Pipe()
	dials := 0
	b := &UnixBridge{Dial: func(context.Context) (net.Conn, error) {
		dials++
		return client, nil
	}}

	assert.ErrorIs(t, b.CloseWindow(context.Background(), "1"), ErrClosed)

	ch, err := b.Open(context.Background())
	require.NoError(t, err)
	again, err := b.Open(context.Background())
	require.NoError(t, err)
	assert.Same(t, ch, again)
	assert.Equal(t, 1, dials)

	lines := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(server)
		if sc.Scan() {
			lines <- sc.Text()
		}
	}()
	require.NoError(t, b.CloseWindow(context.Background(), "win-3"))

	var f frame
	select {
	case line := <-lines:
		require.NoError(t, json.Unmarshal([]byte(line), &f))
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
	}
	assert.Equal(t, frameCloseWindow, f.Kind)
	assert.Equal(t, "win-3", f.WindowID)
	require.NoError(t, ch.Close())
}

func TestUnixBridge_DialError(t *testing.T) {
	b := &UnixBridge{Path: "/nonexistent/workbench.sock"}
	_, err := b.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/workbench.sock")
}

type fakeDialer struct {
	opts        SocketOptions
	onReconnect func()
	ch          Channel
	err         error
}

func (d *fakeDialer) Dial(_ context.Context, opts SocketOptions, onReconnect func()) (Channel, error) {
	d.opts = opts
	d.onReconnect = onReconnect
	return d.ch, d.err
}

type fakeBridge struct{ ch Channel }

func (b *fakeBridge) Open(context.Context) (Channel, error)     { return b.ch, nil }
func (b *fakeBridge) CloseWindow(context.Context, string) error { return nil }

func TestEstablisher_Establish(t *testing.T) {
	ctx := context.Background()
	existing, _ := Pipe()

	t.Run("existing channel is bound as is", func(t *testing.T) {
		d := &fakeDialer{}
		e := &Establisher{Dialer: d}
		ch, err := e.Establish(ctx, KindWeb, existing, nil)
		require.NoError(t, err)
		assert.Same(t, existing, ch)
		assert.Nil(t, d.onReconnect, "dialer must not be used")
	})

	t.Run("direct without a channel", func(t *testing.T) {
		_, err := (&Establisher{}).Establish(ctx, KindDirect, nil, nil)
		assert.Error(t, err)
	})

	t.Run("native", func(t *testing.T) {
		ch, err := (&Establisher{Native: &fakeBridge{ch: existing}}).Establish(ctx, KindNative, nil, nil)
		require.NoError(t, err)
		assert.Same(t, existing, ch)

		_, err = (&Establisher{}).Establish(ctx, KindNative, nil, nil)
		assert.Error(t, err)
	})

	t.Run("web passes options and reconnect hook", func(t *testing.T) {
		d := &fakeDialer{ch: existing}
		fired := 0
		e := &Establisher{Dialer: d, Socket: SocketOptions{URL: "ws://127.0.0.1:8000/service", Protocols: []string{"v1"}}}
		ch, err := e.Establish(ctx, KindWeb, nil, func() { fired++ })
		require.NoError(t, err)
		assert.Same(t, existing, ch)
		assert.Equal(t, "ws://127.0.0.1:8000/service", d.opts.URL)
		assert.Equal(t, []string{"v1"}, d.opts.Protocols)
		assert.Len(t, d.opts.ClientID, 36, "generated client id")

		d.onReconnect()
		assert.Equal(t, 1, fired)
	})

	t.Run("web keeps configured client id", func(t *testing.T) {
		d := &fakeDialer{ch: existing}
		e := &Establisher{Dialer: d, Socket: SocketOptions{ClientID: "client-1"}}
		_, err := e.Establish(ctx, KindWeb, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "client-1", d.opts.ClientID)
	})

	t.Run("web dial error", func(t *testing.T) {
		boom := errors.New("refused")
		_, err := (&Establisher{Dialer: &fakeDialer{err: boom}}).Establish(ctx, KindWeb, nil, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := (&Establisher{}).Establish(ctx, Kind("carrier-pigeon"), nil, nil)
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"direct", "native", "web"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}
	_, err := ParseKind("smoke")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestToMessage(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Message
	}{
		{"bytes", []byte("a"), Message("a")},
		{"string", "b", Message("b")},
		{"reader", strings.NewReader("c"), Message("c")},
		{"json value", map[string]int{"n": 1}, Message(`{"n":1}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toMessage(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSocketIODialer_BadURL(t *testing.T) {
	_, err := NewSocketIODialer(nil).Dial(context.Background(), SocketOptions{URL: "://nope"}, nil)
	assert.Error(t, err)
}

func TestSocketChannel_CloseEndsMessages(t *testing.T) {
	ch := newSocketChannel(nil)
	ch.deliver(Message("one"))
	assert.Equal(t, Message("one"), recv(t, ch))

	for i := 0; i < cap(ch.msgs); i++ {
		ch.deliver(Message("fill"))
	}
	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		ch.deliver(Message("late"))
	}()

	require.NoError(t, ch.Close())
	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("deliver still blocked after close")
	}
	require.NoError(t, ch.Close())

	n := 0
	for m := range ch.Messages() {
		assert.Equal(t, Message("fill"), m)
		n++
	}
	assert.Equal(t, cap(ch.msgs), n)

	assert.NotPanics(t, func() { ch.deliver(Message("after")) })
	assert.ErrorIs(t, ch.Send(context.Background(), Message("x")), ErrClosed)
}
