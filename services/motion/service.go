// Package motion runs the event loop that connects accelerometer and timer
// interrupts to the notification channels on the wireless link.
//
// Interrupt handlers only call PostEvent, HandleOverflow or HandleCompare.
// Everything else runs on the goroutine that calls Run (or ProcessEvents
// and OnLinkEvent directly, in tests).
package motion

import (
	"context"

	"motionlink-go/bus"
	"motionlink-go/services/motion/internal/classify"
	"motionlink-go/services/motion/internal/clock"
	"motionlink-go/services/motion/internal/notify"
	"motionlink-go/services/motion/internal/signal"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

var (
	TopicLinkEvent = bus.T("link", "event")
	TopicStatus    = bus.T("motion", "status")
)

type (
	// Counter is the free-running hardware down-counter.
	Counter = clock.Counter
	// Sensor reads and clears the accelerometer interrupt source.
	Sensor = classify.Source
	// Link is the wireless link.
	Link = notify.Link
)

type Deps struct {
	Conn     *bus.Connection
	Counter  Counter
	Sensor   Sensor
	Link     Link
	SystemID []byte // written to the system-id attribute at boot
}

type Service struct {
	cfg      types.MotionConfig
	conn     *bus.Connection
	link     Link
	systemID []byte

	sig *signal.Word
	clk *clock.Clock
	cls *classify.Classifier
	mgr *notify.Manager

	linkSub  *bus.Subscription
	periods  uint32
	advRetry bool
}

// New wires the loop. It panics on missing collaborators or a timer
// configuration that does not match the counter.
func New(d Deps, cfg types.MotionConfig) *Service {
	if d.Conn == nil || d.Link == nil {
		panic("motion: nil collaborator")
	}
	s := &Service{
		cfg:      cfg,
		conn:     d.Conn,
		link:     d.Link,
		systemID: d.SystemID,
		sig:      signal.New(),
	}
	s.clk = clock.New(d.Counter, s.sig, cfg.Timer)
	s.mgr = notify.NewManager(d.Link)
	s.cls = classify.New(d.Sensor, s.mgr)
	// Subscribed here so link events raised during Boot are not lost.
	s.linkSub = d.Conn.Subscribe(TopicLinkEvent)
	return s
}

// PostEvent flags e for the loop. Safe from interrupt context.
func (s *Service) PostEvent(e types.Event) { s.sig.Post(e) }

// HandleOverflow is the counter reload interrupt handler.
func (s *Service) HandleOverflow() { s.clk.HandleOverflow() }

// HandleCompare is the counter compare interrupt handler.
func (s *Service) HandleCompare() { s.clk.HandleCompare() }

func (s *Service) NowMs() uint64 { return s.clk.NowMs() }

// StartTimer arms the one-shot timer, replacing any armed one.
func (s *Service) StartTimer(usec uint32) error { return s.clk.StartRelative(usec) }

func (s *Service) CancelTimer() { s.clk.CancelRelative() }

// Boot writes the system id and starts advertising. If advertising fails
// a retry is scheduled and the error returned.
func (s *Service) Boot() error {
	if len(s.systemID) > 0 {
		if err := s.link.WriteAttribute(types.AttrSystemID, 0, s.systemID); err != nil {
			logx.Warn("[motion] system id write failed:", err)
		}
	}
	if err := s.mgr.StartAdvertising(); err != nil {
		s.armAdvertiseRetry()
		return err
	}
	logx.Info("[motion] advertising")
	s.publishStatus()
	return nil
}

// OnLinkEvent applies one link layer event.
func (s *Service) OnLinkEvent(kind types.LinkEventKind, conn uint8, attr uint16) {
	logx.Debug("[motion] link", kind, conn, attr)
	switch kind {
	case types.LinkOpened:
		if s.advRetry {
			s.advRetry = false
			s.clk.CancelRelative()
		}
		_ = s.mgr.Opened(conn)
	case types.LinkClosed:
		if err := s.mgr.Closed(); err != nil {
			s.armAdvertiseRetry()
		}
	case types.LinkSubscribed, types.LinkUnsubscribed:
		if err := s.mgr.Subscription(attr, kind == types.LinkSubscribed); err != nil {
			logx.Warn("[motion] subscription on", attr, "ignored:", err)
		}
	case types.LinkTimeout:
		logx.Warn("[motion] indication timed out on", attr)
		s.mgr.Completed(conn, attr)
	case types.LinkAck:
		s.mgr.Completed(conn, attr)
	default:
		logx.Warn("[motion] unknown link event", uint8(kind))
		return
	}
	s.publishStatus()
}

// ProcessEvents takes every posted event and handles it. It returns what
// was taken.
func (s *Service) ProcessEvents() types.Event {
	ev := s.sig.Take()
	publish := false
	if ev.Has(types.EventSensorInterrupt) {
		_, _ = s.cls.Handle()
		publish = true
	}
	if ev.Has(types.EventTimerCompareElapsed) {
		s.onTimer()
	}
	if ev.Has(types.EventTimerOverflow) {
		s.mgr.Retry()
		s.periods++
		if s.cfg.HeartbeatPeriods > 0 && s.periods >= s.cfg.HeartbeatPeriods {
			s.periods = 0
			publish = true
		}
	}
	if publish {
		s.publishStatus()
	}
	return ev
}

func (s *Service) onTimer() {
	if !s.advRetry {
		logx.Info("[motion] timer elapsed at", s.clk.NowMs(), "ms")
		return
	}
	s.advRetry = false
	if _, connected := s.mgr.Connected(); connected {
		return
	}
	if err := s.mgr.StartAdvertising(); err != nil {
		s.armAdvertiseRetry()
	}
}

func (s *Service) armAdvertiseRetry() {
	if err := s.clk.StartRelative(s.cfg.AdvertiseRetryMs * 1000); err != nil {
		logx.Error("[motion] cannot schedule advertising retry:", err)
		return
	}
	s.advRetry = true
}

// Status is a snapshot of the loop. Loop goroutine only.
func (s *Service) Status() types.MotionStatus {
	st := types.MotionStatus{
		UptimeMs:  s.clk.NowMs(),
		Overflows: s.clk.Overflows(),
		Coalesced: s.sig.Coalesced(),
	}
	s.mgr.Snapshot(&st)
	return st
}

func (s *Service) publishStatus() {
	s.conn.Publish(s.conn.NewMessage(TopicStatus, s.Status(), true))
}

// Run handles interrupts and link events until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	sub := s.linkSub
	defer s.conn.Unsubscribe(sub)

	logx.Info("[motion] running")
	for {
		select {
		case <-ctx.Done():
			logx.Info("[motion] stopping")
			return ctx.Err()
		case <-s.sig.Wake():
			s.ProcessEvents()
		case m, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			if ev, ok := m.Payload.(types.LinkEvent); ok {
				s.OnLinkEvent(ev.Kind, ev.Conn, ev.Attr)
			}
		}
	}
}
