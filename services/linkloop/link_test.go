package linkloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/types"
)

var topic = bus.T("link", "event")

func setup(t *testing.T, ackDelay time.Duration) (*Link, *bus.Subscription) {
	t.Helper()
	b := bus.NewBus(16)
	sub := b.NewConnection("test").Subscribe(topic)
	return New(b.NewConnection("loop"), topic, ackDelay), sub
}

func next(t *testing.T, sub *bus.Subscription) types.LinkEvent {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m.Payload.(types.LinkEvent)
	case <-time.After(time.Second):
		t.Fatal("no link event")
	}
	return types.LinkEvent{}
}

func TestManualAck(t *testing.T) {
	l, sub := setup(t, 0)
	assert.ErrorIs(t, l.SendIndication(1, types.AttrActivity, []byte{0, 1}), errcode.NotConnected)

	h := l.Open()
	assert.Equal(t, types.LinkEvent{Kind: types.LinkOpened, Conn: h}, next(t, sub))

	require.NoError(t, l.SendIndication(h, types.AttrActivity, []byte{0, 1}))
	assert.ErrorIs(t, l.SendIndication(h, types.AttrFreeFall, []byte{0, 1}), errcode.Busy)

	ind, ok := l.Outstanding()
	require.True(t, ok)
	assert.Equal(t, Indication{Conn: h, Attr: types.AttrActivity, Value: []byte{0, 1}}, ind)

	assert.True(t, l.Ack())
	assert.Equal(t, types.LinkEvent{Kind: types.LinkAck, Conn: h, Attr: types.AttrActivity}, next(t, sub))
	assert.False(t, l.Ack())
	assert.False(t, l.Timeout())
}

func TestAutoAck(t *testing.T) {
	l, sub := setup(t, 10*time.Millisecond)
	h := l.Open()
	next(t, sub)

	require.NoError(t, l.SendIndication(h, types.AttrDoubleTap, []byte{0, 1}))
	assert.Equal(t, types.LinkEvent{Kind: types.LinkAck, Conn: h, Attr: types.AttrDoubleTap}, next(t, sub))
	_, ok := l.Outstanding()
	assert.False(t, ok)
	assert.Len(t, l.Sent(), 1)
}

func TestCloseForgetsOutstanding(t *testing.T) {
	l, sub := setup(t, 20*time.Millisecond)
	h := l.Open()
	next(t, sub)
	require.NoError(t, l.SendIndication(h, types.AttrFreeFall, []byte{0, 1}))

	l.Close()
	assert.Equal(t, types.LinkEvent{Kind: types.LinkClosed, Conn: h}, next(t, sub))
	l.Close() // no second event

	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected event %v", m.Payload)
	case <-time.After(60 * time.Millisecond):
	}

	h2 := l.Open()
	assert.Equal(t, h+1, h2)
	next(t, sub)
	assert.ErrorIs(t, l.SendIndication(h, types.AttrFreeFall, []byte{0, 1}), errcode.NotConnected)
}

func TestSubscribeAndAdvertising(t *testing.T) {
	l, sub := setup(t, 0)
	assert.ErrorIs(t, l.Subscribe(types.AttrActivity, true), errcode.NotConnected)

	l.FailAdvertising(1)
	assert.ErrorIs(t, l.StartAdvertising(), errcode.Transport)
	require.NoError(t, l.StartAdvertising())
	assert.True(t, l.Advertising())

	h := l.Open()
	next(t, sub)
	assert.False(t, l.Advertising())

	require.NoError(t, l.Subscribe(types.AttrActivity, true))
	assert.Equal(t, types.LinkEvent{Kind: types.LinkSubscribed, Conn: h, Attr: types.AttrActivity}, next(t, sub))
	require.NoError(t, l.Subscribe(types.AttrActivity, false))
	assert.Equal(t, types.LinkUnsubscribed, next(t, sub).Kind)
}

func TestWriteAttribute(t *testing.T) {
	l, _ := setup(t, 0)
	require.NoError(t, l.WriteAttribute(types.AttrSystemID, 4, []byte{9}))
	assert.Equal(t, []byte{0, 0, 0, 0, 9}, l.Attribute(types.AttrSystemID))
}
