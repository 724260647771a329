package node

import (
	"sync"

	"github.com/mosaicnetworks/eddy/src/wire"
)

//callResult is what a pending call resolves to: the correlated reply, or
//the failure that ended the wait.
type callResult struct {
	reply *wire.Message
	err   error
}

//pendingCall is the slot for one in-flight request. respCh is buffered
//so that resolving never blocks, even if the caller already gave up.
type pendingCall struct {
	respCh chan callResult
}

//callTable correlates the msg_ids of outbound requests with the callers
//waiting for their replies. It is safe for concurrent use.
type callTable struct {
	sync.Mutex
	pending map[uint64]*pendingCall
	closed  bool
}

func newCallTable() *callTable {
	return &callTable{
		pending: make(map[uint64]*pendingCall),
	}
}

//register creates the pending entry for msgID. It returns false once the
//table has been closed by cancelAll.
func (t *callTable) register(msgID uint64) (*pendingCall, bool) {
	t.Lock()
	defer t.Unlock()

	if t.closed {
		return nil, false
	}

	p := &pendingCall{respCh: make(chan callResult, 1)}
	t.pending[msgID] = p

	return p, true
}

//resolve delivers a reply to the caller waiting on inReplyTo. It returns
//false when no call is pending under that id, in which case the reply is
//an orphan. An entry resolves at most once because the first resolver
//removes it from the table.
func (t *callTable) resolve(inReplyTo uint64, reply *wire.Message) bool {
	t.Lock()
	p, ok := t.pending[inReplyTo]
	if ok {
		delete(t.pending, inReplyTo)
	}
	t.Unlock()

	if !ok {
		return false
	}

	p.respCh <- callResult{reply: reply}

	return true
}

//forget removes the entry for msgID without resolving it. It returns
//whether the entry was still pending; false means a resolution won the
//race and the result is already sitting in the slot.
func (t *callTable) forget(msgID uint64) bool {
	t.Lock()
	defer t.Unlock()

	if _, ok := t.pending[msgID]; !ok {
		return false
	}

	delete(t.pending, msgID)

	return true
}

//cancelAll fails every outstanding call with reason and closes the table
//against further registrations. It returns the number of calls that were
//cancelled.
func (t *callTable) cancelAll(reason error) int {
	t.Lock()
	cancelled := t.pending
	t.pending = make(map[uint64]*pendingCall)
	t.closed = true
	t.Unlock()

	for _, p := range cancelled {
		p.respCh <- callResult{err: reason}
	}

	return len(cancelled)
}

//count returns the number of in-flight calls.
func (t *callTable) count() int {
	t.Lock()
	defer t.Unlock()
	return len(t.pending)
}
