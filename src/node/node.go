package node

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/eddy/src/app"
	"github.com/mosaicnetworks/eddy/src/config"
	"github.com/mosaicnetworks/eddy/src/net"
	"github.com/mosaicnetworks/eddy/src/node/state"
	"github.com/mosaicnetworks/eddy/src/peers"
	"github.com/mosaicnetworks/eddy/src/wire"
	"github.com/sirupsen/logrus"
)

//Node is the runtime for one workload participant. It owns the
//transport, performs the handshake, dispatches inbound messages to the
//handler, and correlates outbound requests with their replies. Its
//lifecycle is a state machine whose states are defined in the state
//package.
type Node struct {
	state.Manager

	conf   *config.Config
	logger *logrus.Entry

	trans   net.Transport
	handler app.Handler

	calls *callTable

	// lastMsgID is the source of msg_id values; accessed atomically.
	lastMsgID uint64

	identityLock sync.RWMutex
	selfID       string
	peerSet      *peers.PeerSet

	shutdownOnce sync.Once

	start time.Time

	// activity counters; accessed atomically.
	messagesRead     uint64
	messagesWritten  uint64
	handlersStarted  uint64
	orphanReplies    uint64
	malformedRecords uint64
}

//NewNode is a factory method that returns a Node with no id. The id, and
//the cluster membership, are assigned by the init handshake once Run has
//started consuming the transport.
func NewNode(conf *config.Config, trans net.Transport, handler app.Handler) *Node {
	node := Node{
		conf:    conf,
		logger:  conf.Logger().WithField("prefix", "node"),
		trans:   trans,
		handler: handler,
		calls:   newCallTable(),
		start:   time.Now(),
	}

	return &node
}

/*******************************************************************************
Run
*******************************************************************************/

//Run invokes the main loop of the node and returns once the node has
//fully stopped. The returned error is nil when the node stopped because
//the inbound stream ended or Shutdown was called; it is the underlying
//failure when the transport broke.
func (n *Node) Run() error {
	if !n.TransitionTo(state.Unstarted, state.AwaitingHandshake) {
		return fmt.Errorf("node already started")
	}

	var fatal error

	for {
		s := n.GetState()

		n.logger.WithField("state", s.String()).Debug("Run loop")

		switch s {
		case state.AwaitingHandshake:
			fatal = n.awaitHandshake()
		case state.Ready:
			fatal = n.serve()
		case state.ShuttingDown:
			n.drain()
		case state.Stopped:
			return fatal
		}
	}
}

//RunAsync calls Run on a separate goroutine and returns a channel that
//carries the terminal error.
func (n *Node) RunAsync() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- n.Run()
	}()

	return errCh
}

//awaitHandshake reads the transport until the init message arrives.
//Other messages received in the meantime are refused; the node has no
//identity yet, so it cannot do anything useful with them.
func (n *Node) awaitHandshake() error {
	for n.GetState() == state.AwaitingHandshake {
		msg, err := n.next()
		if err != nil {
			return n.readFailure(err)
		}
		if msg == nil {
			continue
		}

		if msg.Body.Type != wire.InitType {
			n.logger.WithFields(logrus.Fields{
				"type": msg.Body.Type,
				"from": msg.Src,
			}).Warning("Message before handshake")
			n.replyError(msg, wire.NewError(wire.CodeTemporarilyUnavailable,
				"node is not initialized"))
			continue
		}

		if err := n.handshake(msg); err != nil {
			return err
		}
	}

	return nil
}

//handshake consumes the init message: it fixes the node's identity,
//acknowledges with init_ok, and runs the handler's start hook before any
//dispatch. A malformed init is refused and leaves the node waiting.
func (n *Node) handshake(msg *wire.Message) error {
	var init struct {
		NodeID  string   `json:"node_id"`
		NodeIDs []string `json:"node_ids"`
	}

	if err := msg.Body.Decode(&init); err != nil || init.NodeID == "" {
		n.logger.WithField("from", msg.Src).Warning("Malformed handshake")
		n.replyError(msg, wire.NewError(wire.CodeMalformedRequest,
			"init message has no usable node_id"))
		return nil
	}

	n.identityLock.Lock()
	n.selfID = init.NodeID
	n.peerSet = peers.NewPeerSet(init.NodeIDs)
	n.identityLock.Unlock()

	// The node must be Ready before the ack goes out, so that whoever
	// observes init_ok can immediately be answered.
	n.SetState(state.Ready)

	ack := wire.NewBody(wire.InitOKType)
	ack.InReplyTo = msg.Body.MsgID

	if err := n.write(&wire.Message{Src: init.NodeID, Dest: msg.Src, Body: ack}); err != nil {
		n.beginShutdown()
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"this_id": init.NodeID,
		"peers":   n.peerSet.Len(),
	}).Debug("Handshake complete")

	if starter, ok := n.handler.(app.Starter); ok {
		if err := starter.OnStart(n); err != nil {
			n.logger.WithError(err).Error("Handler start hook failed")
			n.Shutdown()
			return err
		}
	}

	return nil
}

//serve is the steady-state loop: replies resolve pending calls, and
//everything else is dispatched to the handler in the order it was read.
func (n *Node) serve() error {
	for n.GetState() == state.Ready {
		msg, err := n.next()
		if err != nil {
			return n.readFailure(err)
		}
		if msg == nil {
			continue
		}

		n.route(msg)
	}

	return nil
}

//route decides what to do with one inbound message once the node is
//serving.
func (n *Node) route(msg *wire.Message) {
	if msg.Body.InReplyTo != 0 {
		if !n.calls.resolve(msg.Body.InReplyTo, msg) {
			atomic.AddUint64(&n.orphanReplies, 1)
			n.logger.WithFields(logrus.Fields{
				"from":        msg.Src,
				"in_reply_to": msg.Body.InReplyTo,
			}).Debug("Orphan reply")
		}
		return
	}

	if msg.Body.Type == wire.InitType {
		n.logger.WithField("from", msg.Src).Warning("Duplicate handshake")
		n.replyError(msg, wire.NewError(wire.CodeMalformedRequest,
			"node %s is already initialized", n.SelfID()))
		return
	}

	atomic.AddUint64(&n.handlersStarted, 1)

	n.GoFunc(func() {
		n.dispatch(msg)
	})
}

//dispatch runs one handler invocation. A failure is answered with an
//error reply when the message can be answered at all; it never stops the
//node.
func (n *Node) dispatch(msg *wire.Message) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.WithFields(logrus.Fields{
				"type":  msg.Body.Type,
				"panic": r,
			}).Error("Handler panicked")
			n.replyError(msg, wire.NewError(wire.CodeCrash,
				"handler panicked processing %s", msg.Body.Type))
		}
	}()

	err := n.handler.HandleMessage(n, msg)
	if err == nil {
		return
	}

	n.logger.WithFields(logrus.Fields{
		"type": msg.Body.Type,
		"from": msg.Src,
	}).WithError(err).Warning("Handler failed")

	if protoErr, ok := wire.AsError(err); ok {
		n.replyError(msg, protoErr)
	} else {
		n.replyError(msg, wire.NewError(wire.CodeCrash, "%v", err))
	}
}

//next reads one message from the transport, skipping records that do not
//decode. A nil message with a nil error means a record was skipped.
func (n *Node) next() (*wire.Message, error) {
	msg, err := n.trans.NextMessage()
	if err != nil {
		if wire.IsDecode(err) {
			atomic.AddUint64(&n.malformedRecords, 1)
			n.logger.WithError(err).Warning("Skipping malformed record")
			return nil, nil
		}
		return nil, err
	}

	atomic.AddUint64(&n.messagesRead, 1)

	return msg, nil
}

//readFailure turns a terminal read error into the shutdown transition.
//The end of the stream and a locally closed transport are normal
//endings; anything else is a stream failure that Run will report.
func (n *Node) readFailure(err error) error {
	switch err {
	case io.EOF:
		n.logger.Debug("End of input")
		n.beginShutdown()
		return nil
	case net.ErrTransportShutdown:
		n.beginShutdown()
		return nil
	default:
		n.logger.WithError(err).Error("Transport failure")
		n.beginShutdown()
		return err
	}
}

/*******************************************************************************
Shutdown
*******************************************************************************/

//Shutdown stops a running node: pending calls fail with app.ErrShutdown,
//in-flight handlers are given ShutdownTimeout to finish, and the
//transport is closed. It is safe to call from any goroutine, including
//handlers, and is idempotent. Shutdown does not wait for Run to return.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")
		n.beginShutdown()
		// Unblock a read pending on the transport.
		n.trans.Close()
	})
}

//beginShutdown moves the node to ShuttingDown from whichever serving
//state it is in. It is a no-op once the node is already stopping.
func (n *Node) beginShutdown() {
	if n.TransitionTo(state.AwaitingHandshake, state.ShuttingDown) {
		return
	}
	if n.TransitionTo(state.Ready, state.ShuttingDown) {
		return
	}
	// A node that never ran has nothing to drain.
	n.TransitionTo(state.Unstarted, state.Stopped)
}

//drain finishes the shutdown: outstanding calls are cancelled so that
//parked handlers resume, dispatch goroutines are waited for, and the
//transport is closed.
func (n *Node) drain() {
	n.logger.Debug("Draining")

	cancelled := n.calls.cancelAll(app.ErrShutdown)
	if cancelled > 0 {
		n.logger.WithField("cancelled", cancelled).Debug("Cancelled pending calls")
	}

	if !n.WaitRoutines(n.conf.ShutdownTimeout) {
		n.logger.Warning("Timed out waiting for handlers")
	}

	n.trans.Close()

	n.logStats()

	n.SetState(state.Stopped)
}

/*******************************************************************************
Messaging
*******************************************************************************/

//SelfID returns the id assigned by the handshake, or the empty string
//before it.
func (n *Node) SelfID() string {
	n.identityLock.RLock()
	defer n.identityLock.RUnlock()

	return n.selfID
}

//PeerIDs returns the ids of the other nodes in the cluster, in handshake
//order.
func (n *Node) PeerIDs() []string {
	n.identityLock.RLock()
	defer n.identityLock.RUnlock()

	if n.peerSet == nil {
		return nil
	}

	return n.peerSet.Others(n.selfID)
}

//Send writes a fire-and-forget message to dest.
func (n *Node) Send(dest string, body *wire.Body) error {
	return n.write(&wire.Message{Src: n.SelfID(), Dest: dest, Body: body})
}

//Reply answers orig with body, correlating the two. The reply goes back
//to the sender of orig.
func (n *Node) Reply(orig *wire.Message, body *wire.Body) error {
	if orig.Body.MsgID == 0 {
		return fmt.Errorf("message of type %s has no msg_id to reply to", orig.Body.Type)
	}

	body.InReplyTo = orig.Body.MsgID

	return n.Send(orig.Src, body)
}

//Call sends a request to dest and waits for the correlated reply. The
//body is stamped with a fresh msg_id. A reply carrying an error body is
//returned as a *wire.Error. When no reply arrives within timeout, Call
//returns app.ErrTimeout and any late reply will be dropped as an orphan.
func (n *Node) Call(dest string, body *wire.Body, timeout time.Duration) (*wire.Message, error) {
	if n.GetState() != state.Ready {
		return nil, app.ErrShutdown
	}

	body.MsgID = n.nextMsgID()

	pending, ok := n.calls.register(body.MsgID)
	if !ok {
		return nil, app.ErrShutdown
	}

	if err := n.write(&wire.Message{Src: n.SelfID(), Dest: dest, Body: body}); err != nil {
		n.calls.forget(body.MsgID)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-pending.respCh:
		return n.callResolved(res)
	case <-timer.C:
		if n.calls.forget(body.MsgID) {
			return nil, app.ErrTimeout
		}
		// A resolution won the race; the result is already in the slot.
		return n.callResolved(<-pending.respCh)
	}
}

func (n *Node) callResolved(res callResult) (*wire.Message, error) {
	if res.err != nil {
		return nil, res.err
	}

	if protoErr, ok := wire.ErrorFromBody(res.reply.Body); ok {
		return nil, protoErr
	}

	return res.reply, nil
}

//replyError answers msg with an error body, when it can be answered at
//all. A message without a msg_id expects no reply, so the failure is
//only logged.
func (n *Node) replyError(msg *wire.Message, protoErr *wire.Error) {
	if msg.Body.MsgID == 0 {
		return
	}

	body := protoErr.Body()
	body.InReplyTo = msg.Body.MsgID

	src := n.SelfID()
	if src == "" {
		// Before the handshake the only usable identity is the one the
		// sender addressed.
		src = msg.Dest
	}

	if err := n.write(&wire.Message{Src: src, Dest: msg.Src, Body: body}); err != nil {
		n.logger.WithError(err).Error("Writing error reply")
	}
}

//nextMsgID allocates a fresh msg_id. Ids are strictly increasing and
//never reused within the lifetime of the node.
func (n *Node) nextMsgID() uint64 {
	return atomic.AddUint64(&n.lastMsgID, 1)
}

func (n *Node) write(msg *wire.Message) error {
	if err := n.trans.Write(msg); err != nil {
		return err
	}

	atomic.AddUint64(&n.messagesWritten, 1)

	return nil
}

/*******************************************************************************
Stats
*******************************************************************************/

//GetStats returns information about the node's activity.
func (n *Node) GetStats() map[string]string {
	s := map[string]string{
		"state":             n.GetState().String(),
		"id":                n.SelfID(),
		"num_peers":         strconv.Itoa(len(n.PeerIDs())),
		"uptime":            time.Since(n.start).String(),
		"last_msg_id":       strconv.FormatUint(atomic.LoadUint64(&n.lastMsgID), 10),
		"messages_read":     strconv.FormatUint(atomic.LoadUint64(&n.messagesRead), 10),
		"messages_written":  strconv.FormatUint(atomic.LoadUint64(&n.messagesWritten), 10),
		"handlers_started":  strconv.FormatUint(atomic.LoadUint64(&n.handlersStarted), 10),
		"orphan_replies":    strconv.FormatUint(atomic.LoadUint64(&n.orphanReplies), 10),
		"malformed_records": strconv.FormatUint(atomic.LoadUint64(&n.malformedRecords), 10),
		"pending_calls":     strconv.Itoa(n.calls.count()),
	}

	return s
}

func (n *Node) logStats() {
	stats := n.GetStats()

	n.logger.WithFields(logrus.Fields{
		"id":               stats["id"],
		"messages_read":    stats["messages_read"],
		"messages_written": stats["messages_written"],
		"handlers_started": stats["handlers_started"],
		"orphan_replies":   stats["orphan_replies"],
		"pending_calls":    stats["pending_calls"],
	}).Debug("Stats")
}
