// Package notify holds the notification channels and the connection state
// that gates them. At most one indication is outstanding per connection;
// anything raised while it is in flight is queued on its channel and sent
// when the link acknowledges or times out the current one.
//
// The Manager is owned by the event loop and is not safe for concurrent use.
package notify

import (
	"motionlink-go/errcode"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

// Link is the wireless link as seen by the channels.
type Link interface {
	WriteAttribute(attr uint16, offset uint16, value []byte) error
	// SendIndication returns errcode.Busy when the link cannot take another
	// indication yet. Any other error is a transport failure.
	SendIndication(conn uint8, attr uint16, value []byte) error
	StartAdvertising() error
	StopAdvertising() error
}

type Manager struct {
	link Link

	chans     [types.NumChannels]Channel
	slot      Slot
	connected bool
	conn      uint8

	sent     uint32
	dropped  uint32
	deferred uint32
}

func NewManager(link Link) *Manager {
	if link == nil {
		panic("notify: nil link")
	}
	m := &Manager{link: link}
	for _, id := range types.DrainOrder {
		m.chans[id] = Channel{id: id, attr: types.ChannelAttr(id)}
	}
	return m
}

// Channel returns the channel for id, or nil.
func (m *Manager) Channel(id types.ChannelID) *Channel {
	if int(id) >= len(m.chans) {
		return nil
	}
	return &m.chans[id]
}

func (m *Manager) Connected() (conn uint8, ok bool) { return m.conn, m.connected }

func (m *Manager) InFlight() bool {
	_, held := m.slot.Held()
	return held
}

// Opened records a new connection and stops advertising.
func (m *Manager) Opened(conn uint8) error {
	m.connected, m.conn = true, conn
	logx.Info("[notify] connected, handle", conn)
	if err := m.link.StopAdvertising(); err != nil {
		logx.Warn("[notify] stop advertising:", err)
		return err
	}
	return nil
}

// Closed resets every channel and the slot, then restarts advertising.
// The advertising error is returned so the caller can schedule a retry.
func (m *Manager) Closed() error {
	m.connected = false
	m.slot.Release()
	for i := range m.chans {
		m.chans[i].disable()
	}
	logx.Info("[notify] disconnected")
	return m.StartAdvertising()
}

// StartAdvertising asks the link to advertise.
func (m *Manager) StartAdvertising() error {
	if err := m.link.StartAdvertising(); err != nil {
		logx.Warn("[notify] start advertising:", err)
		return err
	}
	return nil
}

// Subscription applies a remote subscribe or unsubscribe on attr.
func (m *Manager) Subscription(attr uint16, enabled bool) error {
	if !m.connected {
		return &errcode.E{C: errcode.NotConnected, Op: "subscription"}
	}
	id, ok := types.AttrChannel(attr)
	if !ok {
		return &errcode.E{C: errcode.UnknownChan, Op: "subscription"}
	}
	ch := &m.chans[id]
	if enabled {
		ch.enable()
	} else {
		ch.disable()
	}
	logx.Debug("[notify]", id, "subscribed:", enabled)
	return nil
}

// Notify raises p on channel id. A disabled channel discards it. If the
// slot is taken the payload is queued, replacing any older one.
func (m *Manager) Notify(id types.ChannelID, p types.Payload) {
	ch := m.Channel(id)
	if ch == nil || !ch.enabled || !m.connected {
		return
	}
	ch.payload = p
	if m.InFlight() {
		ch.pending = true
		return
	}
	m.send(ch)
}

// Completed handles an acknowledgment or timeout for the indication on
// conn and attr. If it is the outstanding one the slot is released and one
// queued channel is sent. Anything else (a duplicate, a late answer to a
// dropped send, a handle from an earlier connection) is ignored and false
// is returned.
func (m *Manager) Completed(conn uint8, attr uint16) bool {
	owner, held := m.slot.Held()
	if !held || conn != m.conn || attr != types.ChannelAttr(owner) {
		logx.Debug("[notify] stray completion for", conn, attr)
		return false
	}
	m.slot.Release()
	if m.connected {
		m.drain()
	}
	return true
}

// Retry sends one queued channel if the slot is free. Channels end up
// queued with a free slot when the link answered busy.
func (m *Manager) Retry() {
	if m.connected && !m.InFlight() {
		m.drain()
	}
}

func (m *Manager) drain() {
	for _, id := range types.DrainOrder {
		if ch := &m.chans[id]; ch.pending {
			m.send(ch)
			return
		}
	}
}

// send writes the attribute value then indicates it. Transport failures
// drop the notification; busy leaves it queued.
func (m *Manager) send(ch *Channel) {
	b := ch.payload.Bytes()
	if err := m.link.WriteAttribute(ch.attr, 0, b[:]); err != nil {
		logx.Warn("[notify]", ch.id, "write attribute failed, dropped:", err)
		ch.pending = false
		m.dropped++
		return
	}
	err := m.link.SendIndication(m.conn, ch.attr, b[:])
	switch errcode.Of(err) {
	case errcode.OK:
		m.slot.Acquire(ch.id)
		ch.pending = false
		m.sent++
	case errcode.Busy:
		ch.pending = true
		m.deferred++
	default:
		logx.Warn("[notify]", ch.id, "indication failed, dropped:", err)
		ch.pending = false
		m.dropped++
	}
}

// Snapshot fills the connection and channel fields of st.
func (m *Manager) Snapshot(st *types.MotionStatus) {
	st.Connected = m.connected
	st.Conn = m.conn
	st.Owner, st.InFlight = m.slot.Held()
	for i := range m.chans {
		c := &m.chans[i]
		st.Channels[i] = types.ChannelStatus{ID: c.id, State: c.State(), Payload: c.payload}
	}
	st.Sent, st.Dropped, st.Deferred = m.sent, m.dropped, m.deferred
}
