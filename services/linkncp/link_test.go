package linkncp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/types"
)

// mockPort connects the link to a scripted co-processor.
type mockPort struct {
	rx       chan []byte // co-processor -> host
	tx       chan []byte // host -> co-processor
	writeErr error
}

func newMockPort() *mockPort {
	return &mockPort{rx: make(chan []byte, 16), tx: make(chan []byte, 16)}
}

func (m *mockPort) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.tx <- append([]byte(nil), p...)
	return len(p), nil
}

func (m *mockPort) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	select {
	case b := <-m.rx:
		return copy(p, b), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (m *mockPort) send(t FrameType, payload ...byte) {
	f, _ := AppendFrame(nil, t, payload)
	m.rx <- f
}

// answer decodes the next command and replies with st.
func (m *mockPort) answer(t *testing.T, st byte) Frame {
	t.Helper()
	select {
	case raw := <-m.tx:
		var d Decoder
		for _, b := range raw {
			f, ok, err := d.Feed(b)
			require.NoError(t, err)
			if ok {
				got := Frame{Type: f.Type, Payload: append([]byte(nil), f.Payload...)}
				m.send(RspStatus, byte(f.Type), st)
				return got
			}
		}
		t.Fatal("incomplete frame written")
	case <-time.After(time.Second):
		t.Fatal("no command written")
	}
	return Frame{}
}

func newTestLink(t *testing.T) (*Link, *mockPort, *bus.Subscription) {
	t.Helper()
	b := bus.NewBus(8)
	topic := bus.T("link", "event")
	sub := b.NewConnection("test").Subscribe(topic)
	port := newMockPort()
	l := New(port, b.NewConnection("ncp"), topic, 200*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go l.Run(ctx)
	return l, port, sub
}

func TestIndicationEncodingAndOK(t *testing.T) {
	l, port, _ := newTestLink(t)

	done := make(chan error, 1)
	go func() { done <- l.SendIndication(2, types.AttrActivity, []byte{0, 1}) }()

	f := port.answer(t, 0)
	assert.Equal(t, CmdIndicate, f.Type)
	assert.Equal(t, []byte{2, 0x13, 0x00, 0, 1}, f.Payload)
	assert.NoError(t, <-done)
}

func TestWriteAttributeEncoding(t *testing.T) {
	l, port, _ := newTestLink(t)

	done := make(chan error, 1)
	go func() { done <- l.WriteAttribute(types.AttrFreeFall, 0, []byte{0, 1}) }()

	f := port.answer(t, 0)
	assert.Equal(t, CmdWriteAttr, f.Type)
	assert.Equal(t, []byte{0x10, 0x00, 0x00, 0x00, 0, 1}, f.Payload)
	assert.NoError(t, <-done)
}

func TestStatusCodes(t *testing.T) {
	l, port, _ := newTestLink(t)

	cases := []struct {
		st   byte
		want errcode.Code
	}{
		{0, errcode.OK},
		{1, errcode.Busy},
		{7, errcode.Transport},
	}
	for _, tc := range cases {
		done := make(chan error, 1)
		go func() { done <- l.StartAdvertising() }()
		f := port.answer(t, tc.st)
		assert.Equal(t, CmdAdvStart, f.Type)
		assert.Equal(t, tc.want, errcode.Of(<-done), "status %d", tc.st)
	}
}

func TestCommandTimeout(t *testing.T) {
	l, port, _ := newTestLink(t)
	err := l.StopAdvertising()
	<-port.tx
	assert.ErrorIs(t, err, errcode.Timeout)
}

func TestWriteFailureIsTransport(t *testing.T) {
	l, port, _ := newTestLink(t)
	port.writeErr = errors.New("unplugged")
	err := l.StopAdvertising()
	assert.Equal(t, errcode.Transport, errcode.Of(err))
}

func TestEventsPublished(t *testing.T) {
	_, port, sub := newTestLink(t)

	port.send(EvtOpened, 5)
	port.send(EvtSubscription, 5, 0x16, 0x00, 1)
	port.send(EvtSubscription, 5, 0x16, 0x00, 0)
	port.send(EvtIndicationAck, 5, 0x10, 0x00)
	port.send(EvtIndicationTout, 5, 0x13, 0x00)
	port.send(EvtClosed, 5, 0x13)
	port.send(EvtOpened) // short, dropped

	want := []types.LinkEvent{
		{Kind: types.LinkOpened, Conn: 5},
		{Kind: types.LinkSubscribed, Conn: 5, Attr: types.AttrDoubleTap},
		{Kind: types.LinkUnsubscribed, Conn: 5, Attr: types.AttrDoubleTap},
		{Kind: types.LinkAck, Conn: 5, Attr: types.AttrFreeFall},
		{Kind: types.LinkTimeout, Conn: 5, Attr: types.AttrActivity},
		{Kind: types.LinkClosed, Conn: 5},
	}
	for i, w := range want {
		select {
		case m := <-sub.Channel():
			assert.Equal(t, w, m.Payload, "event %d", i)
		case <-time.After(time.Second):
			t.Fatalf("event %d not published", i)
		}
	}
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected event %v", m.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}
