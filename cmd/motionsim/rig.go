package main

import (
	"context"
	"sync"
	"time"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/services/heartbeat"
	"motionlink-go/services/linkloop"
	"motionlink-go/services/linkmqtt"
	"motionlink-go/services/linkncp"
	"motionlink-go/services/motion"
	"motionlink-go/services/motion/irq"
	"motionlink-go/types"
	"motionlink-go/x/hwcounter"
	"motionlink-go/x/logx"
)

// scriptSensor stands in for the accelerometer: latched bits are returned
// and cleared by the next read, like INT_SOURCE.
type scriptSensor struct {
	mu  sync.Mutex
	src byte
}

func (s *scriptSensor) Latch(bits byte) {
	s.mu.Lock()
	s.src |= bits
	s.mu.Unlock()
}

func (s *scriptSensor) InterruptSource() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.src
	s.src = 0
	return v, nil
}

// rig is a simulated node.
type rig struct {
	cfg    types.MotionConfig
	bus    *bus.Bus
	ctr    *hwcounter.Sim
	sensor *scriptSensor
	int1   *irq.FakePin
	line   *irq.Line
	loop   *linkloop.Link // nil unless the link is loopback
	svc    *motion.Service

	runLink func(ctx context.Context)
}

// newRig builds the node. ackDelay applies to the loopback link only;
// zero leaves acknowledgment to the caller.
func newRig(cfg types.MotionConfig, ackDelay time.Duration) (*rig, error) {
	r := &rig{
		cfg:    cfg,
		bus:    bus.NewBus(16),
		ctr:    hwcounter.NewSim(cfg.Timer.PeriodTicks()),
		sensor: &scriptSensor{},
		int1:   &irq.FakePin{},
	}

	linkConn := r.bus.NewConnection("link")
	var link motion.Link
	switch cfg.Link.Kind {
	case types.LinkKindLoopback:
		r.loop = linkloop.New(linkConn, motion.TopicLinkEvent, ackDelay)
		link = r.loop
	case types.LinkKindNCP:
		port, err := linkncp.OpenSerial(cfg.Link.Port, cfg.Link.Baud)
		if err != nil {
			return nil, err
		}
		ncp := linkncp.New(port, linkConn, motion.TopicLinkEvent, cfg.Link.CmdTimeout)
		r.runLink = ncp.Run
		link = ncp
	case types.LinkKindMQTT:
		mq, err := linkmqtt.Dial(linkmqtt.Config{
			Broker:      cfg.Link.Broker,
			TopicPrefix: cfg.Link.TopicPrefix,
			ClientID:    cfg.Link.ClientID,
			AckTimeout:  cfg.Link.AckTimeout,
		}, linkConn, motion.TopicLinkEvent)
		if err != nil {
			return nil, err
		}
		link = mq
	default:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "rig", Msg: "unknown link kind " + string(cfg.Link.Kind)}
	}

	r.svc = motion.New(motion.Deps{
		Conn:     r.bus.NewConnection("motion"),
		Counter:  r.ctr,
		Sensor:   r.sensor,
		Link:     link,
		SystemID: []byte("motionsim"),
	}, cfg)
	r.ctr.SetHandlers(r.svc.HandleOverflow, r.svc.HandleCompare)

	line, err := irq.Bind(r.int1, irq.EdgeRising, r.svc, types.EventSensorInterrupt)
	if err != nil {
		return nil, err
	}
	r.line = line
	return r, nil
}

// Interrupt latches bits in the sensor and raises INT1.
func (r *rig) Interrupt(bits byte) {
	r.sensor.Latch(bits)
	r.int1.Fire()
}

// Start boots the node and runs its goroutines until ctx ends. The
// returned channel closes when the loop has stopped.
func (r *rig) Start(ctx context.Context) <-chan struct{} {
	if r.runLink != nil {
		go r.runLink(ctx)
	}
	go r.ctr.Run(ctx, r.cfg.Timer.TicksPerSecond())
	_ = (&heartbeat.Service{Interval: 10 * time.Second}).Start(ctx, r.bus.NewConnection("heartbeat"))

	done := make(chan struct{})
	// Boot and Run share the loop goroutine.
	go func() {
		defer close(done)
		if err := r.svc.Boot(); err != nil {
			logx.Warn("[sim] boot:", err)
		}
		_ = r.svc.Run(ctx)
	}()
	return done
}

// Status asks the loop for a snapshot through the retained status topic.
func (r *rig) Status() (types.MotionStatus, bool) {
	conn := r.bus.NewConnection("status")
	defer conn.Disconnect()
	sub := conn.Subscribe(motion.TopicStatus)
	select {
	case m := <-sub.Channel():
		st, ok := m.Payload.(types.MotionStatus)
		return st, ok
	case <-time.After(100 * time.Millisecond):
		return types.MotionStatus{}, false
	}
}
