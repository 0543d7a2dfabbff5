package control

import "sync"

// Gate is the shared capture switch. Exactly one writer (the Controller)
// flips it; any number of readers may wait on it. The zero value is a closed,
// non-shutdown gate, so every field is well defined from construction.
type Gate struct {
	mu       sync.Mutex
	cond     *sync.Cond
	active   bool
	shutdown bool
}

// NewGate returns an inactive gate.
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Activate opens the gate. Idempotent.
func (g *Gate) Activate() {
	g.mu.Lock()
	g.active = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Deactivate closes the gate. Idempotent.
func (g *Gate) Deactivate() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Shutdown closes the gate permanently and wakes every waiter, so no reader
// is left blocked on a gate that will never change again.
func (g *Gate) Shutdown() {
	g.mu.Lock()
	g.active = false
	g.shutdown = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Active reports whether capture is currently enabled.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// ShuttingDown reports whether Shutdown has been called.
func (g *Gate) ShuttingDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shutdown
}

// WaitActive blocks until the gate opens or shuts down. It returns true when
// capture should begin and false when the caller should terminate instead.
func (g *Gate) WaitActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for !g.active && !g.shutdown {
		g.cond.Wait()
	}
	return g.active && !g.shutdown
}
