package workload

import (
	"github.com/mosaicnetworks/eddy/src/app"
	"github.com/mosaicnetworks/eddy/src/wire"
	"github.com/sirupsen/logrus"
)

// Echo answers echo requests with echo_ok and the same payload. It doesn't
// really do anything useful but it exercises the whole message path, which
// makes it the first workload to run against a new setup.
type Echo struct {
	logger *logrus.Entry
}

// NewEcho ...
func NewEcho(logger *logrus.Entry) *Echo {
	return &Echo{
		logger: logger.WithField("prefix", "echo"),
	}
}

// HandleMessage implements the app.Handler interface.
func (e *Echo) HandleMessage(node app.Node, msg *wire.Message) error {
	if msg.Body.Type != "echo" {
		return wire.NewError(wire.CodeNotSupported, "unsupported type %s", msg.Body.Type)
	}

	e.logger.WithField("from", msg.Src).Debug("echo")

	body := wire.NewBody("echo_ok")

	if raw, ok := msg.Body.Raw("echo"); ok {
		if err := body.SetRaw("echo", raw); err != nil {
			return err
		}
	}

	return node.Reply(msg, body)
}
