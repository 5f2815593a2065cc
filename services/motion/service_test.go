package motion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/types"
	"motionlink-go/x/hwcounter"
)

type fakeSensor struct {
	mu  sync.Mutex
	src byte
	err error
}

func (f *fakeSensor) set(b byte) {
	f.mu.Lock()
	f.src = b
	f.mu.Unlock()
}

func (f *fakeSensor) InterruptSource() (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.src
	f.src = 0
	return b, f.err
}

type fakeLink struct {
	mu        sync.Mutex
	attrs     map[uint16][]byte
	sent      []uint16
	sendErr   error
	advErr    error
	advStarts int
	adv       bool
}

func (f *fakeLink) WriteAttribute(attr, offset uint16, v []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs[attr] = append([]byte(nil), v...)
	return nil
}

func (f *fakeLink) SendIndication(conn uint8, attr uint16, v []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, attr)
	return nil
}

func (f *fakeLink) StartAdvertising() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advStarts++
	if f.advErr != nil {
		return f.advErr
	}
	f.adv = true
	return nil
}

func (f *fakeLink) StopAdvertising() error {
	f.mu.Lock()
	f.adv = false
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) sentAttrs() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint16(nil), f.sent...)
}

func testConfig() types.MotionConfig {
	return types.MotionConfig{
		Timer:            types.TimerConfig{PeriodMs: 3000, OscHz: 32768, Prescaler: 4},
		HeartbeatPeriods: 2,
		AdvertiseRetryMs: 500,
	}
}

type rig struct {
	svc    *Service
	sim    *hwcounter.Sim
	sensor *fakeSensor
	link   *fakeLink
	bus    *bus.Bus
	conn   *bus.Connection
}

func newRig(t *testing.T) *rig {
	t.Helper()
	cfg := testConfig()
	b := bus.NewBus(16)
	r := &rig{
		sim:    hwcounter.NewSim(cfg.Timer.PeriodTicks()),
		sensor: &fakeSensor{},
		link:   &fakeLink{attrs: map[uint16][]byte{}},
		bus:    b,
		conn:   b.NewConnection("test"),
	}
	r.svc = New(Deps{
		Conn:     b.NewConnection("motion"),
		Counter:  r.sim,
		Sensor:   r.sensor,
		Link:     r.link,
		SystemID: []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}, cfg)
	r.sim.SetHandlers(r.svc.HandleOverflow, r.svc.HandleCompare)
	return r
}

func (r *rig) connectAndSubscribe(ids ...types.ChannelID) {
	r.svc.OnLinkEvent(types.LinkOpened, 1, 0)
	for _, id := range ids {
		r.svc.OnLinkEvent(types.LinkSubscribed, 1, types.ChannelAttr(id))
	}
}

func (r *rig) interrupt(src byte) types.Event {
	r.sensor.set(src)
	r.svc.PostEvent(types.EventSensorInterrupt)
	return r.svc.ProcessEvents()
}

func TestBootWritesSystemIDAndAdvertises(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.svc.Boot())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, r.link.attrs[types.AttrSystemID])
	assert.True(t, r.link.adv)
}

func TestActivityInterruptSentImmediately(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe(types.ChannelActivity)

	ev := r.interrupt(0b00010000)

	assert.Equal(t, types.EventSensorInterrupt, ev)
	assert.Equal(t, []uint16{types.AttrActivity}, r.link.sentAttrs())
	assert.Equal(t, []byte{0, 1}, r.link.attrs[types.AttrActivity])
	st := r.svc.Status()
	assert.True(t, st.InFlight)
	assert.Equal(t, types.StateIdle, st.Channels[types.ChannelActivity].State)
}

func TestActivityInterruptWhileBusyDrainsOnAck(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe(types.ChannelActivity, types.ChannelFreeFall)

	r.interrupt(0x04) // free-fall takes the slot
	r.interrupt(0x10)

	st := r.svc.Status()
	assert.Equal(t, types.StatePending, st.Channels[types.ChannelActivity].State)
	assert.Equal(t, types.Payload{Value: 1}, st.Channels[types.ChannelActivity].Payload)

	r.svc.OnLinkEvent(types.LinkAck, 1, types.AttrFreeFall)
	assert.Equal(t, []uint16{types.AttrFreeFall, types.AttrActivity}, r.link.sentAttrs())
	assert.Equal(t, types.StateIdle, r.svc.Status().Channels[types.ChannelActivity].State)
}

func TestTimeoutAlsoDrains(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe(types.ChannelActivity, types.ChannelDoubleTap)
	r.interrupt(0x10)
	r.interrupt(0x20)
	r.svc.OnLinkEvent(types.LinkTimeout, 1, types.AttrActivity)
	assert.Equal(t, []uint16{types.AttrActivity, types.AttrDoubleTap}, r.link.sentAttrs())
}

func TestOverflowRetriesBusyChannel(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe(types.ChannelDoubleTap)
	r.link.sendErr = errcode.Busy

	r.interrupt(0x20)
	assert.Empty(t, r.link.sentAttrs())

	r.link.mu.Lock()
	r.link.sendErr = nil
	r.link.mu.Unlock()

	r.sim.Step(r.sim.Top() + 1)
	ev := r.svc.ProcessEvents()
	assert.True(t, ev.Has(types.EventTimerOverflow))
	assert.Equal(t, []uint16{types.AttrDoubleTap}, r.link.sentAttrs())
}

func TestStatusPublishedRetained(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe(types.ChannelFreeFall)

	sub := r.conn.Subscribe(TopicStatus)
	select {
	case m := <-sub.Channel():
		st, ok := m.Payload.(types.MotionStatus)
		require.True(t, ok)
		assert.True(t, st.Connected)
		assert.EqualValues(t, 1, st.Conn)
		assert.Equal(t, types.StateIdle, st.Channels[types.ChannelFreeFall].State)
	case <-time.After(time.Second):
		t.Fatal("no retained status")
	}
}

func TestHeartbeatCadence(t *testing.T) {
	r := newRig(t)
	sub := r.conn.Subscribe(TopicStatus)

	r.sim.Step(r.sim.Top() + 1)
	r.svc.ProcessEvents()
	select {
	case <-sub.Channel():
		t.Fatal("status before heartbeat period")
	default:
	}

	r.sim.Step(r.sim.Top() + 1)
	r.svc.ProcessEvents()
	select {
	case m := <-sub.Channel():
		assert.EqualValues(t, 2, m.Payload.(types.MotionStatus).Overflows)
	default:
		t.Fatal("no heartbeat status")
	}
}

func TestAdvertisingRetriedOnTimer(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe()
	r.link.advErr = errors.New("ncp busy")

	r.svc.OnLinkEvent(types.LinkClosed, 1, 0)
	require.Equal(t, 1, r.link.advStarts)

	r.link.mu.Lock()
	r.link.advErr = nil
	r.link.mu.Unlock()

	r.sim.Step(4096) // 500 ms at 8192 Hz
	ev := r.svc.ProcessEvents()
	assert.True(t, ev.Has(types.EventTimerCompareElapsed))
	assert.Equal(t, 2, r.link.advStarts)
	assert.True(t, r.link.adv)
}

func TestOpenCancelsAdvertisingRetry(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe()
	r.link.advErr = errors.New("ncp busy")
	r.svc.OnLinkEvent(types.LinkClosed, 1, 0)

	r.svc.OnLinkEvent(types.LinkOpened, 2, 0)
	r.sim.Step(8192)
	assert.False(t, r.svc.ProcessEvents().Has(types.EventTimerCompareElapsed))
	assert.Equal(t, 1, r.link.advStarts)
}

func TestStartThenCancelTimerNoCompare(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.svc.StartTimer(100_000))
	r.svc.CancelTimer()
	r.sim.Step(r.sim.Top())
	assert.False(t, r.svc.ProcessEvents().Has(types.EventTimerCompareElapsed))
	assert.ErrorIs(t, r.svc.StartTimer(5_000_000), errcode.OutOfRange)
}

func TestDisconnectThenResubscribeHasNoStalePayload(t *testing.T) {
	r := newRig(t)
	r.connectAndSubscribe(types.ChannelFreeFall, types.ChannelActivity)
	r.interrupt(0x04)
	r.interrupt(0x08)

	r.svc.OnLinkEvent(types.LinkClosed, 1, 0)
	r.connectAndSubscribe(types.ChannelActivity)

	st := r.svc.Status()
	assert.False(t, st.InFlight)
	assert.Equal(t, types.StateIdle, st.Channels[types.ChannelActivity].State)
	assert.Equal(t, types.Payload{}, st.Channels[types.ChannelActivity].Payload)
	assert.Equal(t, types.StateDisabled, st.Channels[types.ChannelFreeFall].State)
}

func TestRunDispatchesBusAndInterrupts(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.svc.Run(ctx) }()

	status := r.conn.Subscribe(TopicStatus)
	r.conn.Publish(r.conn.NewMessage(TopicLinkEvent, types.LinkEvent{Kind: types.LinkOpened, Conn: 4}, false))
	require.Eventually(t, func() bool {
		select {
		case m := <-status.Channel():
			return m.Payload.(types.MotionStatus).Connected
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	r.conn.Publish(r.conn.NewMessage(TopicLinkEvent,
		types.LinkEvent{Kind: types.LinkSubscribed, Conn: 4, Attr: types.AttrDoubleTap}, false))
	require.Eventually(t, func() bool {
		r.sensor.set(0x20)
		r.svc.PostEvent(types.EventSensorInterrupt)
		return len(r.link.sentAttrs()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
