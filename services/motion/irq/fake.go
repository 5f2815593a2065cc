package irq

import "sync"

// FakePin is a Pin driven by Fire. Used by the simulator and tests.
type FakePin struct {
	mu      sync.Mutex
	edge    Edge
	handler func()
}

func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.edge, p.handler = edge, handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.edge, p.handler = EdgeNone, nil
	p.mu.Unlock()
	return nil
}

// Fire runs the handler as an interrupt would. It reports false when no
// handler is installed.
func (p *FakePin) Fire() bool {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h == nil {
		return false
	}
	h()
	return true
}
