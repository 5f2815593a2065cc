package types

// LinkEventKind enumerates what the wireless link layer reports.
type LinkEventKind uint8

const (
	LinkOpened LinkEventKind = iota + 1
	LinkClosed
	LinkSubscribed
	LinkUnsubscribed
	LinkAck
	LinkTimeout
)

func (k LinkEventKind) String() string {
	switch k {
	case LinkOpened:
		return "opened"
	case LinkClosed:
		return "closed"
	case LinkSubscribed:
		return "subscribed"
	case LinkUnsubscribed:
		return "unsubscribed"
	case LinkAck:
		return "ack"
	case LinkTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// LinkEvent is published by link adapters on the bus and consumed by the
// motion event loop.
type LinkEvent struct {
	Kind LinkEventKind
	Conn uint8  // connection handle
	Attr uint16 // characteristic attribute id (subscribe/ack only)
}

// Attribute ids in the local attribute store.
const (
	AttrSystemID  uint16 = 0x0008
	AttrFreeFall  uint16 = 0x0010
	AttrActivity  uint16 = 0x0013
	AttrDoubleTap uint16 = 0x0016
)

// ChannelAttr maps a channel to its characteristic.
func ChannelAttr(c ChannelID) uint16 {
	switch c {
	case ChannelFreeFall:
		return AttrFreeFall
	case ChannelActivity:
		return AttrActivity
	case ChannelDoubleTap:
		return AttrDoubleTap
	default:
		return 0
	}
}

// AttrChannel is the inverse of ChannelAttr.
func AttrChannel(attr uint16) (ChannelID, bool) {
	for _, c := range DrainOrder {
		if ChannelAttr(c) == attr {
			return c, true
		}
	}
	return 0, false
}
