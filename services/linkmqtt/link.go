// Package linkmqtt carries the motion notifications over MQTT instead of
// a radio. It keeps the link contract of the co-processor: an indication is
// a QoS 1 publish and its PUBACK is the acknowledgment, with one in flight
// at a time.
//
// Topics, under the configured prefix:
//
//	<prefix>/<attr>        indications (attr in decimal)
//	<prefix>/attr/<attr>   retained attribute values
//	<prefix>/ctl/<attr>    "1" subscribes the channel, "0" unsubscribes
//	<prefix>/presence      retained: advertising, connected or offline
package linkmqtt

import (
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

// Client is the part of paho.Client the link uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

type Config struct {
	Broker      string
	TopicPrefix string
	ClientID    string
	AckTimeout  time.Duration
}

type Link struct {
	client     Client
	conn       *bus.Connection
	topic      bus.Topic
	prefix     string
	ackTimeout time.Duration

	mu          sync.Mutex
	connected   bool
	handle      uint8
	seq         uint32
	outstanding uint32 // seq of the unacknowledged indication, 0 if none
	attrs       map[uint16][]byte
}

func newLink(client Client, cfg Config, conn *bus.Connection, topic bus.Topic) *Link {
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "motionlink"
	}
	ack := cfg.AckTimeout
	if ack <= 0 {
		ack = 5 * time.Second
	}
	return &Link{
		client:     client,
		conn:       conn,
		topic:      topic,
		prefix:     prefix,
		ackTimeout: ack,
		attrs:      map[uint16][]byte{},
	}
}

// Dial connects to the broker. Link events are published on topic.
func Dial(cfg Config, conn *bus.Connection, topic bus.Topic) (*Link, error) {
	id := cfg.ClientID
	if id == "" {
		id = DefaultClientID()
	}
	l := newLink(nil, cfg, conn, topic)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(l.prefix+"/presence", "offline", 1, true).
		SetOnConnectHandler(l.onConnect).
		SetConnectionLostHandler(l.onLost)

	c := paho.NewClient(opts)
	l.client = c
	tok := c.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, &errcode.E{C: errcode.Timeout, Op: "mqtt connect", Msg: cfg.Broker}
	}
	if err := tok.Error(); err != nil {
		return nil, &errcode.E{C: errcode.Transport, Op: "mqtt connect", Err: err}
	}
	logx.Info("[mqtt] client", id, "using", cfg.Broker)
	return l, nil
}

func (l *Link) emit(ev types.LinkEvent) {
	l.conn.Publish(l.conn.NewMessage(l.topic, ev, false))
}

func (l *Link) onConnect(paho.Client) {
	l.mu.Lock()
	l.connected = true
	l.outstanding = 0
	l.handle++
	h := l.handle
	l.mu.Unlock()

	l.client.Subscribe(l.prefix+"/ctl/+", 1, l.onControl)
	logx.Info("[mqtt] connected, handle", h)
	l.emit(types.LinkEvent{Kind: types.LinkOpened, Conn: h})
}

func (l *Link) onLost(_ paho.Client, err error) {
	l.mu.Lock()
	l.connected = false
	l.outstanding = 0
	h := l.handle
	l.mu.Unlock()

	logx.Warn("[mqtt] connection lost:", err)
	l.emit(types.LinkEvent{Kind: types.LinkClosed, Conn: h})
}

func (l *Link) onControl(_ paho.Client, m paho.Message) {
	attrStr := strings.TrimPrefix(m.Topic(), l.prefix+"/ctl/")
	attr, err := strconv.ParseUint(attrStr, 0, 16)
	if err != nil {
		logx.Warn("[mqtt] bad control topic", m.Topic())
		return
	}
	kind := types.LinkUnsubscribed
	if strings.TrimSpace(string(m.Payload())) == "1" {
		kind = types.LinkSubscribed
	}
	l.mu.Lock()
	h := l.handle
	l.mu.Unlock()
	l.emit(types.LinkEvent{Kind: kind, Conn: h, Attr: uint16(attr)})
}

// WriteAttribute updates the local attribute store and mirrors it to the
// broker as a retained value when connected.
func (l *Link) WriteAttribute(attr, offset uint16, value []byte) error {
	l.mu.Lock()
	cur := l.attrs[attr]
	if need := int(offset) + len(value); len(cur) < need {
		cur = append(cur, make([]byte, need-len(cur))...)
	}
	copy(cur[offset:], value)
	l.attrs[attr] = cur
	connected := l.connected
	out := append([]byte(nil), cur...)
	l.mu.Unlock()

	if connected {
		l.client.Publish(l.prefix+"/attr/"+strconv.Itoa(int(attr)), 0, true, out)
	}
	return nil
}

// Attribute returns a copy of the stored value.
func (l *Link) Attribute(attr uint16) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.attrs[attr]...)
}

// SendIndication publishes value at QoS 1. The acknowledgment or timeout
// arrives later as a link event.
func (l *Link) SendIndication(conn uint8, attr uint16, value []byte) error {
	l.mu.Lock()
	switch {
	case !l.connected || conn != l.handle:
		l.mu.Unlock()
		return &errcode.E{C: errcode.NotConnected, Op: "indicate"}
	case l.outstanding != 0:
		l.mu.Unlock()
		return errcode.Busy
	}
	l.seq++
	if l.seq == 0 {
		l.seq = 1
	}
	seq := l.seq
	l.outstanding = seq
	l.mu.Unlock()

	tok := l.client.Publish(l.prefix+"/"+strconv.Itoa(int(attr)), 1, false, append([]byte(nil), value...))
	go l.await(tok, seq, conn, attr)
	return nil
}

func (l *Link) await(tok paho.Token, seq uint32, conn uint8, attr uint16) {
	t := time.NewTimer(l.ackTimeout)
	defer t.Stop()

	kind := types.LinkAck
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			logx.Warn("[mqtt] indication on", attr, "failed:", err)
			kind = types.LinkTimeout
		}
	case <-t.C:
		kind = types.LinkTimeout
	}

	l.mu.Lock()
	current := l.outstanding == seq
	if current {
		l.outstanding = 0
	}
	l.mu.Unlock()
	if !current {
		return
	}
	l.emit(types.LinkEvent{Kind: kind, Conn: conn, Attr: attr})
}

func (l *Link) presence(state string) error {
	l.mu.Lock()
	connected := l.connected
	l.mu.Unlock()
	if !connected {
		return &errcode.E{C: errcode.NotConnected, Op: "presence"}
	}
	tok := l.client.Publish(l.prefix+"/presence", 1, true, state)
	if !tok.WaitTimeout(2 * time.Second) {
		return &errcode.E{C: errcode.Timeout, Op: "presence"}
	}
	if err := tok.Error(); err != nil {
		return &errcode.E{C: errcode.Transport, Op: "presence", Err: err}
	}
	return nil
}

func (l *Link) StartAdvertising() error { return l.presence("advertising") }
func (l *Link) StopAdvertising() error  { return l.presence("connected") }
