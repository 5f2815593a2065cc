package types

// ---- Interrupt events ----

// Event is a set of interrupt-sourced flags. Posting a flag that is already
// set is a no-op: the signal is a bit, not a counted queue.
type Event uint32

const (
	EventNone                Event = 0x00
	EventSensorInterrupt     Event = 0x01
	EventTimerOverflow       Event = 0x10
	EventTimerCompareElapsed Event = 0x20
)

// EventAll is the mask of every defined flag.
const EventAll = EventSensorInterrupt | EventTimerOverflow | EventTimerCompareElapsed

func (e Event) Has(f Event) bool { return e&f == f && f != 0 }

func (e Event) String() string {
	if e == EventNone {
		return "none"
	}
	s := ""
	add := func(f Event, name string) {
		if e&f == 0 {
			return
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	add(EventSensorInterrupt, "sensor")
	add(EventTimerOverflow, "overflow")
	add(EventTimerCompareElapsed, "compare")
	if e&^EventAll != 0 {
		if s != "" {
			s += "|"
		}
		s += "?"
	}
	return s
}

// ---- Notification channels ----

// ChannelID names one semantic notification stream.
type ChannelID uint8

const (
	ChannelFreeFall ChannelID = iota
	ChannelActivity
	ChannelDoubleTap
)

// NumChannels is the number of notification channels.
const NumChannels = 3

// DrainOrder is the priority in which queued notifications are replayed
// when the in-flight slot frees up.
var DrainOrder = [NumChannels]ChannelID{ChannelFreeFall, ChannelActivity, ChannelDoubleTap}

func (c ChannelID) String() string {
	switch c {
	case ChannelFreeFall:
		return "freefall"
	case ChannelActivity:
		return "activity"
	case ChannelDoubleTap:
		return "doubletap"
	default:
		return "unknown"
	}
}

// ParseChannel accepts the names produced by ChannelID.String.
func ParseChannel(s string) (ChannelID, bool) {
	for _, id := range DrainOrder {
		if id.String() == s {
			return id, true
		}
	}
	return 0, false
}

// Payload is the 2-byte attribute value carried by an indication.
type Payload struct {
	Flags uint8 `json:"flags"`
	Value uint8 `json:"value"`
}

// Bytes returns the on-air encoding: flags then value.
func (p Payload) Bytes() [2]byte { return [2]byte{p.Flags, p.Value} }

// Notification is one classified sensor event bound for a channel.
type Notification struct {
	Channel ChannelID
	Payload Payload
}

// ChannelState is the observable state of a notification channel.
type ChannelState uint8

const (
	StateDisabled ChannelState = iota
	StateIdle
	StatePending
)

func (s ChannelState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	default:
		return "disabled"
	}
}
