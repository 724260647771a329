package net

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mosaicnetworks/eddy/src/wire"
)

// InmemTransport implements the Transport interface over channels, to
// allow a node to be driven in-memory without byte streams. The test
// side injects inbound traffic with Deliver and collects outbound
// traffic with NextSent.
type InmemTransport struct {
	inCh  chan *wire.Message
	outCh chan *wire.Message

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
}

// NewInmemTransport is used to initialize a new in-memory transport.
func NewInmemTransport() *InmemTransport {
	return &InmemTransport{
		inCh:       make(chan *wire.Message, 64),
		outCh:      make(chan *wire.Message, 64),
		shutdownCh: make(chan struct{}),
	}
}

// Deliver queues msg for consumption by the node. It must not be called
// after EndInput.
func (i *InmemTransport) Deliver(msg *wire.Message) {
	i.inCh <- msg
}

// EndInput marks the end of the inbound stream: once the queue drains,
// NextMessage reports io.EOF, as a closed stdin would.
func (i *InmemTransport) EndInput() {
	close(i.inCh)
}

// NextMessage implements the Transport interface.
func (i *InmemTransport) NextMessage() (*wire.Message, error) {
	if i.isShutdown() {
		return nil, ErrTransportShutdown
	}

	select {
	case msg, ok := <-i.inCh:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case <-i.shutdownCh:
		return nil, ErrTransportShutdown
	}
}

// Write implements the Transport interface. The message is round-tripped
// through the codec so in-memory runs exercise the same encoding
// constraints as stream runs.
func (i *InmemTransport) Write(msg *wire.Message) error {
	enc, err := msg.Marshal()
	if err != nil {
		return err
	}
	decoded, err := wire.Decode(enc)
	if err != nil {
		return err
	}

	if i.isShutdown() {
		return ErrTransportShutdown
	}

	select {
	case i.outCh <- decoded:
		return nil
	case <-i.shutdownCh:
		return ErrTransportShutdown
	}
}

// NextSent returns the next message the node wrote, waiting up to
// timeout for one to appear.
func (i *InmemTransport) NextSent(timeout time.Duration) (*wire.Message, error) {
	select {
	case msg := <-i.outCh:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no message written after %v", timeout)
	}
}

// Close is used to permanently disable the transport.
func (i *InmemTransport) Close() error {
	i.shutdownLock.Lock()
	defer i.shutdownLock.Unlock()

	if !i.shutdown {
		i.shutdown = true
		close(i.shutdownCh)
	}
	return nil
}

func (i *InmemTransport) isShutdown() bool {
	i.shutdownLock.Lock()
	defer i.shutdownLock.Unlock()
	return i.shutdown
}
