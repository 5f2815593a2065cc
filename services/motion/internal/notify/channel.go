package notify

import "motionlink-go/types"

// Channel is one notification stream. Only the Manager changes it.
type Channel struct {
	id      types.ChannelID
	attr    uint16
	enabled bool
	pending bool
	payload types.Payload
}

func (c *Channel) ID() types.ChannelID    { return c.id }
func (c *Channel) Attr() uint16           { return c.attr }
func (c *Channel) Enabled() bool          { return c.enabled }
func (c *Channel) Pending() bool          { return c.pending }
func (c *Channel) Payload() types.Payload { return c.payload }

func (c *Channel) State() types.ChannelState {
	switch {
	case !c.enabled:
		return types.StateDisabled
	case c.pending:
		return types.StatePending
	default:
		return types.StateIdle
	}
}

func (c *Channel) enable() { c.enabled = true }

// disable drops anything queued so nothing carries across.
func (c *Channel) disable() {
	c.enabled = false
	c.pending = false
	c.payload = types.Payload{}
}

// Slot is the single in-flight indication permit shared by all channels.
type Slot struct {
	held  bool
	owner types.ChannelID
}

// Acquire takes the slot for owner. It fails if the slot is held.
func (s *Slot) Acquire(owner types.ChannelID) bool {
	if s.held {
		return false
	}
	s.held, s.owner = true, owner
	return true
}

func (s *Slot) Release() { s.held = false }

func (s *Slot) Held() (types.ChannelID, bool) { return s.owner, s.held }
