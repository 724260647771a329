package workload

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/mosaicnetworks/eddy/src/app"
	"github.com/mosaicnetworks/eddy/src/wire"
	"github.com/sirupsen/logrus"
)

// broadcastRetries bounds how often a relay is retried before the value
// is given up on for that peer.
const broadcastRetries = 10

// Broadcast accumulates a growing set of values and gossips every new
// value to its neighbours. Values received more than once are absorbed
// without being relayed again, which is what keeps the gossip from
// echoing around the cluster forever. The neighbourhood comes from the
// topology message; until one arrives, every peer is a neighbour.
type Broadcast struct {
	sync.Mutex
	seen      map[string]bool
	order     []json.RawMessage
	neighbors []string

	timeout time.Duration
	logger  *logrus.Entry
}

// NewBroadcast ...
func NewBroadcast(timeout time.Duration, logger *logrus.Entry) *Broadcast {
	return &Broadcast{
		seen:    make(map[string]bool),
		timeout: timeout,
		logger:  logger.WithField("prefix", "broadcast"),
	}
}

// HandleMessage implements the app.Handler interface.
func (b *Broadcast) HandleMessage(node app.Node, msg *wire.Message) error {
	switch msg.Body.Type {
	case "broadcast":
		return b.handleBroadcast(node, msg)
	case "read":
		return b.handleRead(node, msg)
	case "topology":
		return b.handleTopology(node, msg)
	default:
		return wire.NewError(wire.CodeNotSupported, "unsupported type %s", msg.Body.Type)
	}
}

func (b *Broadcast) handleBroadcast(node app.Node, msg *wire.Message) error {
	raw, ok := msg.Body.Raw("message")
	if !ok {
		return wire.NewError(wire.CodeMalformedRequest, "broadcast has no message")
	}

	if b.remember(raw) {
		for _, peer := range b.targets(node) {
			if peer == msg.Src {
				continue
			}
			go b.relay(node, peer, raw)
		}
	}

	// Inter-node relays may come without a msg_id; those expect no ack.
	if msg.Body.MsgID == 0 {
		return nil
	}

	return node.Reply(msg, wire.NewBody("broadcast_ok"))
}

func (b *Broadcast) handleRead(node app.Node, msg *wire.Message) error {
	body := wire.NewBody("read_ok")
	if err := body.Set("messages", b.messages()); err != nil {
		return err
	}

	return node.Reply(msg, body)
}

func (b *Broadcast) handleTopology(node app.Node, msg *wire.Message) error {
	var topo struct {
		Topology map[string][]string `json:"topology"`
	}

	if err := msg.Body.Decode(&topo); err != nil || topo.Topology == nil {
		return wire.NewError(wire.CodeMalformedRequest, "topology does not parse")
	}

	if neighbors, ok := topo.Topology[node.SelfID()]; ok {
		b.Lock()
		b.neighbors = neighbors
		b.Unlock()

		b.logger.WithField("neighbors", neighbors).Debug("topology")
	}

	return node.Reply(msg, wire.NewBody("topology_ok"))
}

// remember records a value and reports whether it is new.
func (b *Broadcast) remember(raw json.RawMessage) bool {
	b.Lock()
	defer b.Unlock()

	key := string(raw)
	if b.seen[key] {
		return false
	}

	b.seen[key] = true
	b.order = append(b.order, raw)

	return true
}

// messages returns the values seen so far, in arrival order.
func (b *Broadcast) messages() []json.RawMessage {
	b.Lock()
	defer b.Unlock()

	res := make([]json.RawMessage, len(b.order))
	copy(res, b.order)

	return res
}

// targets returns the peers a new value is relayed to.
func (b *Broadcast) targets(node app.Node) []string {
	b.Lock()
	neighbors := b.neighbors
	b.Unlock()

	if neighbors != nil {
		return neighbors
	}

	return node.PeerIDs()
}

// relay pushes one value to one peer, retrying until the peer has
// acknowledged it or the attempts run out. It runs on its own goroutine
// so a flaky peer cannot hold up the handler that produced the value.
func (b *Broadcast) relay(node app.Node, peer string, raw json.RawMessage) {
	body := wire.NewBody("broadcast")
	if err := body.SetRaw("message", raw); err != nil {
		b.logger.WithError(err).Error("Building relay")
		return
	}

	for attempt := 0; attempt < broadcastRetries; attempt++ {
		_, err := node.Call(peer, body, b.timeout)
		if err == nil {
			return
		}
		if err == app.ErrShutdown {
			return
		}

		b.logger.WithFields(logrus.Fields{
			"peer":    peer,
			"attempt": attempt,
		}).WithError(err).Debug("Relay retry")
	}

	b.logger.WithField("peer", peer).Warning("Giving up on relay")
}
