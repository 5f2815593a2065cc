// Package heartbeat logs the motion status at a fixed interval so a
// console shows the node is alive and what its channels are doing.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"motionlink-go/bus"
	"motionlink-go/services/motion"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

type Service struct {
	Interval time.Duration

	mu   sync.Mutex
	last types.MotionStatus
	seen bool
}

// Last returns the most recent status received.
func (s *Service) Last() (types.MotionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.seen
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	stSub := conn.Subscribe(motion.TopicStatus)
	defer conn.Unsubscribe(stSub)

	iv := s.Interval
	if iv <= 0 {
		iv = 5 * time.Second
	}
	tick := time.NewTicker(iv)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			logx.Info("[heartbeat] stopping")
			return
		case <-tick.C:
			s.beat()
		case msg, ok := <-stSub.Channel():
			if !ok {
				return
			}
			if st, ok := msg.Payload.(types.MotionStatus); ok {
				s.mu.Lock()
				s.last, s.seen = st, true
				s.mu.Unlock()
			}
		}
	}
}

func (s *Service) beat() {
	st, ok := s.Last()
	if !ok {
		logx.Info("[heartbeat] no status yet")
		return
	}
	logx.Info("[heartbeat] up", st.UptimeMs, "ms connected", st.Connected,
		"inflight", st.InFlight, "sent", st.Sent, "dropped", st.Dropped)
	for _, ch := range st.Channels {
		logx.Debug("[heartbeat]", ch.ID.String(), ch.State.String())
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
