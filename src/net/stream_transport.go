package net

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/mosaicnetworks/eddy/src/wire"
)

// StreamTransport frames messages over a pair of byte streams, one
// record per line. It is the production transport: the workbench
// drives the node over stdin and stdout.
type StreamTransport struct {
	reader *bufio.Reader
	writer io.Writer

	// writeLock serializes writers so each record lands on the stream
	// in one piece.
	writeLock sync.Mutex

	closers []io.Closer

	shutdown     bool
	shutdownLock sync.Mutex
}

// NewStreamTransport returns a transport reading records from r and
// writing records to w. If r or w implement io.Closer they are closed
// when the transport shuts down.
func NewStreamTransport(r io.Reader, w io.Writer) *StreamTransport {
	t := &StreamTransport{
		reader: bufio.NewReader(r),
		writer: w,
	}

	rc, rok := r.(io.Closer)
	if rok {
		t.closers = append(t.closers, rc)
	}
	if wc, wok := w.(io.Closer); wok && (!rok || wc != rc) {
		t.closers = append(t.closers, wc)
	}

	return t
}

// NewStdioTransport returns a StreamTransport over the process's
// standard streams. Stdout carries only wire records; all logging
// belongs on stderr.
func NewStdioTransport() *StreamTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

// NextMessage reads and decodes the next record. Lines containing only
// whitespace are skipped.
func (t *StreamTransport) NextMessage() (*wire.Message, error) {
	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if trimmed := bytes.TrimSpace(line); err == io.EOF && len(trimmed) > 0 {
				// Final record arrived without a trailing newline.
				return wire.Decode(trimmed)
			}
			if t.isShutdown() {
				return nil, ErrTransportShutdown
			}
			return nil, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		return wire.Decode(line)
	}
}

// Write encodes msg and appends it to the outbound stream as a single
// record. Safe for concurrent use.
func (t *StreamTransport) Write(msg *wire.Message) error {
	enc, err := msg.Marshal()
	if err != nil {
		return err
	}
	record := append(enc, '\n')

	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	if t.isShutdown() {
		return ErrTransportShutdown
	}

	_, err = t.writer.Write(record)
	return err
}

// Close releases the underlying streams. A reader blocked in
// NextMessage is unblocked with ErrTransportShutdown.
func (t *StreamTransport) Close() error {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()

	if t.shutdown {
		return nil
	}
	t.shutdown = true

	var err error
	for _, c := range t.closers {
		if cerr := c.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

func (t *StreamTransport) isShutdown() bool {
	t.shutdownLock.Lock()
	defer t.shutdownLock.Unlock()
	return t.shutdown
}
