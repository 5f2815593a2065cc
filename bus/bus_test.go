package bus

import (
	"sort"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("link", "event"))
	c.Publish(c.NewMessage(T("link", "event"), "opened", false))

	expectOneOf(t, sub, "opened")
}

func TestNonRetainedIsNotReplayed(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("link", "event"), "lost", false))
	sub := c.Subscribe(T("link", "event"))
	expectNoMessage(t, sub)
}

func TestRetainedReplacedAndCleared(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("motion", "status"), "s1", true))
	c.Publish(b.NewMessage(T("motion", "status"), "s2", true))
	expectOneOf(t, c.Subscribe(T("motion", "status")), "s2")

	c.Publish(b.NewMessage(T("motion", "status"), nil, true))
	expectNoMessage(t, c.Subscribe(T("motion", "status")))
}

func TestFullQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	sub := c.Subscribe(T("x"))

	for _, p := range []string{"1", "2", "3"} {
		c.Publish(b.NewMessage(T("x"), p, false))
	}
	got := drainPayloads(t, sub, 2)
	if got[0] != "2" || got[1] != "3" {
		t.Fatalf("got %v, want [2 3]", got)
	}
}

func TestWildcardSingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("config", "+"))
	s2 := c.Subscribe(T("+", "timer"))
	sNo := c.Subscribe(T("config", "+", "x"))

	c.Publish(b.NewMessage(T("config", "timer"), "m1", false))
	expectOneOf(t, s1, "m1")
	expectOneOf(t, s2, "m1")
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("config"), "m2", false))
	expectNoMessage(t, s1)
	expectNoMessage(t, s2)
}

func TestWildcardMultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sAll := c.Subscribe(T("#"))
	sCfg := c.Subscribe(T("config", "#"))
	sExact := c.Subscribe(T("config"))

	c.Publish(b.NewMessage(T("config"), "p1", false))
	expectOneOf(t, sAll, "p1")
	expectOneOf(t, sCfg, "p1")
	expectOneOf(t, sExact, "p1")

	c.Publish(b.NewMessage(T("config", "link", "mqtt"), "p2", false))
	expectOneOf(t, sAll, "p2")
	expectOneOf(t, sCfg, "p2")
	expectNoMessage(t, sExact)
}

func TestWildcardRetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("a"), "r0", true))
	c.Publish(b.NewMessage(T("a", "b"), "r1", true))
	c.Publish(b.NewMessage(T("a", "b", "c"), "r2", true))
	c.Publish(b.NewMessage(T("a", "x"), "r3", true))

	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("a", "#")), 4), []string{"r0", "r1", "r2", "r3"})
	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("a", "+", "#")), 3), []string{"r1", "r2", "r3"})
	assertUnorderedEqual(t, drainPayloads(t, c.Subscribe(T("a", "+")), 2), []string{"r1", "r3"})
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	sub := c.Subscribe(T("a", "b"))
	sub.Unsubscribe()

	if _, ok := <-sub.Channel(); ok {
		t.Fatal("channel still open")
	}
	c.Publish(b.NewMessage(T("a", "b"), "late", false))
	sub.Unsubscribe() // second call is a no-op

	if len(b.root.children) != 0 {
		t.Fatalf("trie not pruned: %v", b.root.children)
	}
}

func TestDisconnect(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s1 := c.Subscribe(T("a"))
	s2 := c.Subscribe(T("b", "#"))
	c.Disconnect()

	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatalf("%v still open", s.Topic())
		}
	}
}

func TestTopicHelpers(t *testing.T) {
	tp := T("link", "ctl", "16")
	if tp.String() != "link/ctl/16" {
		t.Fatalf("String: %v", tp)
	}
	base := T("motion")
	st := base.Append("status")
	if st.String() != "motion/status" || len(base) != 1 {
		t.Fatalf("Append: %v %v", base, st)
	}
}

func TestTopicInvalidPanics(t *testing.T) {
	for _, tokens := range [][]string{{"a", ""}, {"#", "a"}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("T(%q) did not panic", tokens)
				}
			}()
			T(tokens...)
		}()
	}
}

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	for len(out) < n {
		select {
		case m := <-sub.Channel():
			s, ok := m.Payload.(string)
			if !ok {
				t.Fatalf("non-string payload: %#v", m.Payload)
			}
			out = append(out, s)
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("expected %d messages, got %d (%v)", n, len(out), out)
		}
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
