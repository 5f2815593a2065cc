package types

// ChannelStatus is one channel's entry in MotionStatus.
type ChannelStatus struct {
	ID      ChannelID    `json:"id"`
	State   ChannelState `json:"state"`
	Payload Payload      `json:"payload"`
}

// MotionStatus is the retained snapshot published by the motion service.
type MotionStatus struct {
	UptimeMs  uint64                     `json:"uptime_ms"`
	Overflows uint32                     `json:"overflows"`
	Connected bool                       `json:"connected"`
	Conn      uint8                      `json:"conn"`
	InFlight  bool                       `json:"inflight"`
	Owner     ChannelID                  `json:"owner"`
	Channels  [NumChannels]ChannelStatus `json:"channels"`
	Coalesced uint32                     `json:"coalesced"`
	Sent      uint32                     `json:"sent"`
	Dropped   uint32                     `json:"dropped"`
	Deferred  uint32                     `json:"deferred"` // link answered busy
}
