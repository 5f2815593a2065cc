// Package linkloop is an in-process stand-in for the wireless link. It
// records what the firmware writes and lets a simulator or test play the
// peer: open and close the connection, toggle subscriptions, and answer
// indications. With an ack delay set, indications acknowledge themselves.
package linkloop

import (
	"sync"
	"time"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

// Indication is one accepted SendIndication call.
type Indication struct {
	Conn  uint8
	Attr  uint16
	Value []byte
}

type Link struct {
	conn     *bus.Connection
	topic    bus.Topic
	ackDelay time.Duration

	mu          sync.Mutex
	connected   bool
	handle      uint8
	advertising bool
	outstanding *Indication
	timer       *time.Timer
	attrs       map[uint16][]byte
	sent        []Indication
	failAdv     int // StartAdvertising calls left to fail
}

// New returns a disconnected link that publishes its events on topic.
// ackDelay <= 0 leaves acknowledgment to Ack and Timeout.
func New(conn *bus.Connection, topic bus.Topic, ackDelay time.Duration) *Link {
	return &Link{
		conn:     conn,
		topic:    topic,
		ackDelay: ackDelay,
		attrs:    map[uint16][]byte{},
	}
}

func (l *Link) emit(ev types.LinkEvent) {
	l.conn.Publish(l.conn.NewMessage(l.topic, ev, false))
}

// ---- firmware side ----

func (l *Link) WriteAttribute(attr, offset uint16, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.attrs[attr]
	if need := int(offset) + len(value); len(cur) < need {
		cur = append(cur, make([]byte, need-len(cur))...)
	}
	copy(cur[offset:], value)
	l.attrs[attr] = cur
	return nil
}

func (l *Link) SendIndication(conn uint8, attr uint16, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case !l.connected || conn != l.handle:
		return &errcode.E{C: errcode.NotConnected, Op: "indicate"}
	case l.outstanding != nil:
		return errcode.Busy
	}
	ind := Indication{Conn: conn, Attr: attr, Value: append([]byte(nil), value...)}
	l.outstanding = &ind
	l.sent = append(l.sent, ind)
	if l.ackDelay > 0 {
		l.timer = time.AfterFunc(l.ackDelay, func() { l.finish(&ind, types.LinkAck) })
	}
	return nil
}

func (l *Link) StartAdvertising() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAdv > 0 {
		l.failAdv--
		return &errcode.E{C: errcode.Transport, Op: "adv start", Msg: "injected"}
	}
	l.advertising = true
	return nil
}

func (l *Link) StopAdvertising() error {
	l.mu.Lock()
	l.advertising = false
	l.mu.Unlock()
	return nil
}

// ---- peer side ----

// Open connects a peer and returns the new handle.
func (l *Link) Open() uint8 {
	l.mu.Lock()
	l.handle++
	l.connected = true
	l.advertising = false
	h := l.handle
	l.mu.Unlock()
	logx.Info("[loop] opened", h)
	l.emit(types.LinkEvent{Kind: types.LinkOpened, Conn: h})
	return h
}

// Close drops the peer. An outstanding indication is forgotten.
func (l *Link) Close() {
	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return
	}
	l.connected = false
	l.clearLocked()
	h := l.handle
	l.mu.Unlock()
	logx.Info("[loop] closed", h)
	l.emit(types.LinkEvent{Kind: types.LinkClosed, Conn: h})
}

// Subscribe enables or disables indications on attr.
func (l *Link) Subscribe(attr uint16, enabled bool) error {
	l.mu.Lock()
	connected, h := l.connected, l.handle
	l.mu.Unlock()
	if !connected {
		return errcode.NotConnected
	}
	kind := types.LinkUnsubscribed
	if enabled {
		kind = types.LinkSubscribed
	}
	l.emit(types.LinkEvent{Kind: kind, Conn: h, Attr: attr})
	return nil
}

// Ack acknowledges the outstanding indication. It reports false when
// nothing was outstanding.
func (l *Link) Ack() bool { return l.finish(nil, types.LinkAck) }

// Timeout expires the outstanding indication.
func (l *Link) Timeout() bool { return l.finish(nil, types.LinkTimeout) }

// finish completes ind, or whatever is outstanding when ind is nil.
func (l *Link) finish(ind *Indication, kind types.LinkEventKind) bool {
	l.mu.Lock()
	cur := l.outstanding
	if cur == nil || (ind != nil && cur != ind) {
		l.mu.Unlock()
		return false
	}
	l.clearLocked()
	l.mu.Unlock()
	l.emit(types.LinkEvent{Kind: kind, Conn: cur.Conn, Attr: cur.Attr})
	return true
}

func (l *Link) clearLocked() {
	l.outstanding = nil
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// FailAdvertising makes the next n StartAdvertising calls fail.
func (l *Link) FailAdvertising(n int) {
	l.mu.Lock()
	l.failAdv = n
	l.mu.Unlock()
}

// ---- inspection ----

func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Link) Advertising() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advertising
}

// Outstanding returns the unacknowledged indication, if any.
func (l *Link) Outstanding() (Indication, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.outstanding == nil {
		return Indication{}, false
	}
	return *l.outstanding, true
}

// Sent returns every indication accepted so far.
func (l *Link) Sent() []Indication {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Indication(nil), l.sent...)
}

// Attribute returns a copy of the stored value.
func (l *Link) Attribute(attr uint16) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.attrs[attr]...)
}
