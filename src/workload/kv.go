package workload

import (
	"github.com/mosaicnetworks/eddy/src/app"
	cm "github.com/mosaicnetworks/eddy/src/common"
	"github.com/mosaicnetworks/eddy/src/store"
	"github.com/mosaicnetworks/eddy/src/wire"
	"github.com/sirupsen/logrus"
)

// KV serves one register per key with read, write, and cas operations,
// backed by a Store. Keys and values are opaque JSON fragments; cas
// compares values byte-for-byte, which is equivalent to value equality
// because the workbench serializes a given value the same way every time.
type KV struct {
	store  store.Store
	logger *logrus.Entry
}

// NewKV ...
func NewKV(st store.Store, logger *logrus.Entry) *KV {
	return &KV{
		store:  st,
		logger: logger.WithField("prefix", "kv"),
	}
}

// HandleMessage implements the app.Handler interface.
func (k *KV) HandleMessage(node app.Node, msg *wire.Message) error {
	switch msg.Body.Type {
	case "read":
		return k.handleRead(node, msg)
	case "write":
		return k.handleWrite(node, msg)
	case "cas":
		return k.handleCAS(node, msg)
	default:
		return wire.NewError(wire.CodeNotSupported, "unsupported type %s", msg.Body.Type)
	}
}

func (k *KV) handleRead(node app.Node, msg *wire.Message) error {
	keyRaw, ok := msg.Body.Raw("key")
	if !ok {
		return wire.NewError(wire.CodeMalformedRequest, "read has no key")
	}

	key := string(keyRaw)

	k.logger.WithField("key", key).Debug("read")

	val, err := k.store.Get(key)
	if err != nil {
		return kvError(err, key)
	}

	body := wire.NewBody("read_ok")
	if err := body.SetRaw("value", val); err != nil {
		return err
	}

	return node.Reply(msg, body)
}

func (k *KV) handleWrite(node app.Node, msg *wire.Message) error {
	keyRaw, ok := msg.Body.Raw("key")
	if !ok {
		return wire.NewError(wire.CodeMalformedRequest, "write has no key")
	}

	valRaw, ok := msg.Body.Raw("value")
	if !ok {
		return wire.NewError(wire.CodeMalformedRequest, "write has no value")
	}

	key := string(keyRaw)

	k.logger.WithField("key", key).Debug("write")

	if err := k.store.Put(key, valRaw); err != nil {
		return kvError(err, key)
	}

	return node.Reply(msg, wire.NewBody("write_ok"))
}

func (k *KV) handleCAS(node app.Node, msg *wire.Message) error {
	keyRaw, ok := msg.Body.Raw("key")
	if !ok {
		return wire.NewError(wire.CodeMalformedRequest, "cas has no key")
	}

	fromRaw, ok := msg.Body.Raw("from")
	if !ok {
		return wire.NewError(wire.CodeMalformedRequest, "cas has no from value")
	}

	toRaw, ok := msg.Body.Raw("to")
	if !ok {
		return wire.NewError(wire.CodeMalformedRequest, "cas has no to value")
	}

	var opts struct {
		CreateIfNotExists bool `json:"create_if_not_exists"`
	}
	if err := msg.Body.Decode(&opts); err != nil {
		return wire.NewError(wire.CodeMalformedRequest, "cas options do not parse")
	}

	key := string(keyRaw)

	k.logger.WithField("key", key).Debug("cas")

	if err := k.store.CAS(key, fromRaw, toRaw, opts.CreateIfNotExists); err != nil {
		return kvError(err, key)
	}

	return node.Reply(msg, wire.NewBody("cas_ok"))
}

// kvError translates store failures into protocol errors; anything the
// store did not classify stays an internal failure.
func kvError(err error, key string) error {
	switch {
	case cm.IsStore(err, cm.KeyNotFound):
		return wire.NewError(wire.CodeKeyNotFound, "key %s does not exist", key)
	case cm.IsStore(err, cm.PreconditionFailed):
		return wire.NewError(wire.CodePreconditionFailed, "expected value does not match key %s", key)
	default:
		return err
	}
}
