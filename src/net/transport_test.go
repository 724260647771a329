package net

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/eddy/src/wire"
)

func testMessage(src, dest, msgType string, msgID uint64) *wire.Message {
	body := wire.NewBody(msgType)
	body.MsgID = msgID
	body.Set("payload", fmt.Sprintf("%s->%s", src, dest))
	return &wire.Message{Src: src, Dest: dest, Body: body}
}

func TestStreamTransportReads(t *testing.T) {
	input := `{"src":"c1","dest":"n1","body":{"type":"init","msg_id":1,"node_id":"n1","node_ids":["n1"]}}` + "\n" +
		"\n" +
		`{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":2,"echo":"hi"}}`

	trans := NewStreamTransport(strings.NewReader(input), new(bytes.Buffer))

	first, err := trans.NextMessage()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if first.Body.Type != wire.InitType {
		t.Fatalf("got type %s, expected %s", first.Body.Type, wire.InitType)
	}

	// The blank line is skipped; the final record has no trailing newline.
	second, err := trans.NextMessage()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if second.Body.Type != "echo" || second.Body.MsgID != 2 {
		t.Fatalf("unexpected second message: %#v", second.Body)
	}

	if _, err := trans.NextMessage(); err != io.EOF {
		t.Fatalf("got %v, expected EOF", err)
	}
}

func TestStreamTransportMalformedRecord(t *testing.T) {
	input := "this is not json\n" +
		`{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":3}}` + "\n"

	trans := NewStreamTransport(strings.NewReader(input), new(bytes.Buffer))

	_, err := trans.NextMessage()
	if err == nil {
		t.Fatal("expected a decode error")
	}
	if !wire.IsDecode(err) {
		t.Fatalf("got %T, expected wire.DecodeError", err)
	}

	// A malformed record costs one line, nothing more.
	msg, err := trans.NextMessage()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if msg.Body.MsgID != 3 {
		t.Fatalf("got msg_id %d, expected 3", msg.Body.MsgID)
	}
}

func TestStreamTransportWriteAtomicity(t *testing.T) {
	out := new(bytes.Buffer)
	trans := NewStreamTransport(strings.NewReader(""), out)

	writers := 10
	perWriter := 40

	wg := sync.WaitGroup{}
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for s := 0; s < perWriter; s++ {
				msg := testMessage(fmt.Sprintf("n%d", w), "c1", "gossip", uint64(s+1))
				if err := trans.Write(msg); err != nil {
					t.Errorf("err: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	scanner := bufio.NewScanner(out)
	count := 0
	for scanner.Scan() {
		if _, err := wire.Decode(scanner.Bytes()); err != nil {
			t.Fatalf("interleaved or corrupt record %q: %v", scanner.Text(), err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("err: %v", err)
	}

	if expected := writers * perWriter; count != expected {
		t.Fatalf("got %d records, expected %d", count, expected)
	}
}

func TestStreamTransportClose(t *testing.T) {
	pr, pw := io.Pipe()
	trans := NewStreamTransport(pr, new(bytes.Buffer))

	errCh := make(chan error, 1)
	go func() {
		_, err := trans.NextMessage()
		errCh <- err
	}()

	if err := trans.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	select {
	case err := <-errCh:
		if err != ErrTransportShutdown {
			t.Fatalf("got %v, expected %v", err, ErrTransportShutdown)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for reader to unblock")
	}

	if err := trans.Write(testMessage("n1", "c1", "echo_ok", 0)); err != ErrTransportShutdown {
		t.Fatalf("got %v, expected %v", err, ErrTransportShutdown)
	}

	// Close is idempotent.
	if err := trans.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	pw.Close()
}

func TestInmemTransport(t *testing.T) {
	trans := NewInmemTransport()

	delivered := testMessage("c1", "n1", "echo", 9)
	trans.Deliver(delivered)

	msg, err := trans.NextMessage()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if msg != delivered {
		t.Fatalf("got %#v, expected the delivered message", msg)
	}

	if err := trans.Write(testMessage("n1", "c1", "echo_ok", 0)); err != nil {
		t.Fatalf("err: %v", err)
	}

	sent, err := trans.NextSent(200 * time.Millisecond)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if sent.Body.Type != "echo_ok" {
		t.Fatalf("got type %s, expected echo_ok", sent.Body.Type)
	}

	trans.EndInput()
	if _, err := trans.NextMessage(); err != io.EOF {
		t.Fatalf("got %v, expected EOF", err)
	}

	if err := trans.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := trans.Write(sent); err != ErrTransportShutdown {
		t.Fatalf("got %v, expected %v", err, ErrTransportShutdown)
	}
}
