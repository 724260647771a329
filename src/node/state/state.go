package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// State captures the lifecycle of a node: Unstarted, AwaitingHandshake,
// Ready, ShuttingDown, or Stopped.
type State uint32

const (
	// Unstarted is the initial state, before the node starts reading
	// its transport.
	Unstarted State = iota

	// AwaitingHandshake is the state in which a node reads the
	// transport but accepts nothing except the handshake init message
	// that assigns its identity.
	AwaitingHandshake

	// Ready is the steady state: inbound requests are dispatched to the
	// handler and inbound replies resolve pending calls.
	Ready

	// ShuttingDown is the state in which a node stops accepting work
	// and drains in-flight handler invocations and pending calls.
	ShuttingDown

	// Stopped is the terminal state: the transport is closed and the
	// node's goroutines have been waited for.
	Stopped
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Unstarted:
		return "Unstarted"
	case AwaitingHandshake:
		return "AwaitingHandshake"
	case Ready:
		return "Ready"
	case ShuttingDown:
		return "ShuttingDown"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Manager wraps a State with atomic get and set methods. It also tracks
// the goroutines launched by the node, and waits for them to complete
// at shutdown. Every GoFunc call launches a goroutine: inbound messages
// must never be dropped, so there is no cap on dispatch concurrency.
type Manager struct {
	state State
	wg    sync.WaitGroup
}

// GetState returns the current state.
func (m *Manager) GetState() State {
	stateAddr := (*uint32)(&m.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (m *Manager) SetState(s State) {
	stateAddr := (*uint32)(&m.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// TransitionTo atomically moves from one expected state to another. It
// returns false, without changing anything, when the current state is
// not the expected one. Competing shutdown triggers use this to elect a
// single winner.
func (m *Manager) TransitionTo(from, to State) bool {
	stateAddr := (*uint32)(&m.state)
	return atomic.CompareAndSwapUint32(stateAddr, uint32(from), uint32(to))
}

// GoFunc launches a goroutine for a given function and tracks it in the
// waitgroup.
func (m *Manager) GoFunc(f func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		f()
	}()
}

// WaitRoutines waits for all the goroutines in the waitgroup, up to
// timeout. It returns false if routines were still running when the
// timeout elapsed.
func (m *Manager) WaitRoutines(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
