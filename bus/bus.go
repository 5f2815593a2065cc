// Package bus is the in-process publish/subscribe hub. Link adapters, the
// config service and the motion loop talk only through it.
//
// Topics are token paths. A subscription may use "+" to match exactly one
// token and a trailing "#" to match any remainder, including none.
package bus

import (
	"strings"
	"sync"
)

const (
	AnyOne  = "+"
	AnyRest = "#"
)

// Topic is a sequence of tokens.
type Topic []string

// T builds a topic. It panics on an empty token or a "#" that is not last.
func T(tokens ...string) Topic {
	for i, tok := range tokens {
		if tok == "" {
			panic("bus: empty topic token")
		}
		if tok == AnyRest && i != len(tokens)-1 {
			panic("bus: # must be the last token")
		}
	}
	return Topic(tokens)
}

func (t Topic) String() string { return strings.Join(t, "/") }

// Append returns a new topic with tokens added.
func (t Topic) Append(tokens ...string) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return T(append(out, tokens...)...)
}

func (t Topic) hasWildcard() bool {
	for _, tok := range t {
		if tok == AnyOne || tok == AnyRest {
			return true
		}
	}
	return false
}

// Message is what travels on the bus. A retained message with a nil
// payload clears the retained value for its topic.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks: when the queue is full the oldest message goes.
func (s *Subscription) deliver(m *Message) {
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok string, create bool) *node {
	c := n.children[tok]
	if c == nil && create {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		c = &node{}
		n.children[tok] = c
	}
	return c
}

type Bus struct {
	mu   sync.Mutex
	root node
	qLen int
}

// NewBus creates a bus whose subscriptions queue up to queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{qLen: queueLen}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := &b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
	matchSubs(&b.root, msg.Topic, func(s *Subscription) { s.deliver(msg) })
}

// matchSubs walks subscription patterns that match a concrete topic.
func matchSubs(n *node, t Topic, fn func(*Subscription)) {
	if c := n.children[AnyRest]; c != nil {
		for _, s := range c.subs {
			fn(s)
		}
	}
	if len(t) == 0 {
		for _, s := range n.subs {
			fn(s)
		}
		return
	}
	if c := n.children[t[0]]; c != nil {
		matchSubs(c, t[1:], fn)
	}
	if c := n.children[AnyOne]; c != nil {
		matchSubs(c, t[1:], fn)
	}
}

// matchRetained walks retained messages under concrete topics matching
// the pattern p.
func matchRetained(n *node, p Topic, fn func(*Message)) {
	if len(p) == 0 {
		if n.retained != nil {
			fn(n.retained)
		}
		return
	}
	switch p[0] {
	case AnyRest:
		var all func(*node)
		all = func(n *node) {
			if n.retained != nil {
				fn(n.retained)
			}
			for _, c := range n.children {
				all(c)
			}
		}
		all(n)
	case AnyOne:
		for _, c := range n.children {
			matchRetained(c, p[1:], fn)
		}
	default:
		if c := n.children[p[0]]; c != nil {
			matchRetained(c, p[1:], fn)
		}
	}
}

func (b *Bus) subscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := &b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	if sub.topic.hasWildcard() {
		matchRetained(&b.root, sub.topic, sub.deliver)
	} else if n.retained != nil {
		sub.deliver(n.retained)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := make([]*node, 0, len(sub.topic)+1)
	n := &b.root
	path = append(path, n)
	for _, tok := range sub.topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		path = append(path, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	// Prune empty nodes bottom-up.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		c := path[i+1]
		if len(c.subs) > 0 || len(c.children) > 0 || c.retained != nil {
			break
		}
		delete(path[i].children, sub.topic[i])
	}
}

// Connection groups the subscriptions of one component so they can be
// dropped together.
type Connection struct {
	bus  *Bus
	name string

	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(name string) *Connection {
	return &Connection{bus: b, name: name}
}

func (c *Connection) Name() string { return c.name }

func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers topic. Retained messages matching it are queued
// immediately.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.subscribe(sub)
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes every subscription of the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}
