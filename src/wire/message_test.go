package wire

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	body := NewBody("echo")
	body.MsgID = 7

	if err := body.Set("echo", "hello"); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := body.Set("nested", map[string]interface{}{"a": []int{1, 2}}); err != nil {
		t.Fatalf("err: %v", err)
	}

	msg := &Message{Src: "c1", Dest: "n1", Body: body}

	enc, err := msg.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(msg, dec) {
		t.Fatalf("round trip mismatch. got %#v, expected %#v", dec, msg)
	}
}

func TestRoundTripPreservesUnknownFields(t *testing.T) {
	line := []byte(`{"src":"c1","dest":"n1","body":{"type":"txn","msg_id":3,"txn":[["r",1,null],["w",2,{"x":true}]],"extra":"  spaced  "}}`)

	msg, err := Decode(line)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	txn, ok := msg.Body.Raw("txn")
	if !ok {
		t.Fatal("txn field not preserved")
	}
	if expected := `[["r",1,null],["w",2,{"x":true}]]`; string(txn) != expected {
		t.Fatalf("txn fragment altered. got %s, expected %s", txn, expected)
	}

	enc, err := msg.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	again, err := Decode(enc)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reflect.DeepEqual(msg, again) {
		t.Fatalf("round trip mismatch. got %#v, expected %#v", again, msg)
	}
}

func TestCanonicalEncoding(t *testing.T) {
	build := func(keys []string) *Message {
		body := NewBody("gossip")
		body.MsgID = 12
		for i, k := range keys {
			if err := body.Set(k, i); err != nil {
				t.Fatalf("err: %v", err)
			}
		}
		return &Message{Src: "n1", Dest: "n2", Body: body}
	}

	first, err := build([]string{"zulu", "alpha", "mike"}).Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	second, err := build([]string{"zulu", "alpha", "mike"}).Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("encodings differ: %s vs %s", first, second)
	}

	expected := `{"body":{"alpha":1,"mike":2,"msg_id":12,"type":"gossip","zulu":0},"dest":"n2","src":"n1"}`
	if string(first) != expected {
		t.Fatalf("got %s, expected %s", first, expected)
	}
}

func TestDecodeErrors(t *testing.T) {
	bad := []struct {
		name string
		line string
	}{
		{"not json", `garbage`},
		{"trailing garbage", `{"src":"c1","dest":"n1","body":{"type":"echo"}} tail`},
		{"no body", `{"src":"c1","dest":"n1"}`},
		{"no type", `{"src":"c1","dest":"n1","body":{"msg_id":1}}`},
		{"numeric type", `{"src":"c1","dest":"n1","body":{"type":4}}`},
		{"empty type", `{"src":"c1","dest":"n1","body":{"type":""}}`},
		{"string msg_id", `{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":"1"}}`},
		{"float msg_id", `{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":1.5}}`},
		{"negative msg_id", `{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":-1}}`},
		{"zero msg_id", `{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":0}}`},
		{"bad in_reply_to", `{"src":"c1","dest":"n1","body":{"type":"echo_ok","in_reply_to":[2]}}`},
		{"no src", `{"dest":"n1","body":{"type":"echo","msg_id":1}}`},
		{"no dest", `{"src":"c1","body":{"type":"echo","msg_id":1}}`},
	}

	for _, c := range bad {
		_, err := Decode([]byte(c.line))
		if err == nil {
			t.Fatalf("%s: expected decode error", c.name)
		}
		if !IsDecode(err) {
			t.Fatalf("%s: expected DecodeError, got %T", c.name, err)
		}
	}
}

func TestDecodeInitWithoutEnvelope(t *testing.T) {
	// The handshake is the one message type that may arrive before the
	// node has an identity to validate the envelope against.
	msg, err := Decode([]byte(`{"body":{"type":"init","msg_id":1,"node_id":"n1","node_ids":["n1"]}}`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if msg.Body.Type != InitType {
		t.Fatalf("got type %s, expected %s", msg.Body.Type, InitType)
	}
}

func TestBodyDecode(t *testing.T) {
	line := []byte(`{"src":"c1","dest":"n1","body":{"type":"init","msg_id":1,"node_id":"n1","node_ids":["n1","n2","n3"]}}`)

	msg, err := Decode(line)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	var init struct {
		NodeID  string   `json:"node_id"`
		NodeIDs []string `json:"node_ids"`
	}
	if err := msg.Body.Decode(&init); err != nil {
		t.Fatalf("err: %v", err)
	}

	if init.NodeID != "n1" {
		t.Fatalf("got node_id %s, expected n1", init.NodeID)
	}
	if expected := []string{"n1", "n2", "n3"}; !reflect.DeepEqual(init.NodeIDs, expected) {
		t.Fatalf("got node_ids %v, expected %v", init.NodeIDs, expected)
	}
}

func TestReservedFields(t *testing.T) {
	body := NewBody("echo")
	for _, key := range []string{"type", "msg_id", "in_reply_to"} {
		if err := body.Set(key, 1); err == nil {
			t.Fatalf("expected error setting reserved field %q", key)
		}
	}
	if err := body.SetRaw("broken", json.RawMessage(`{"unterminated`)); err == nil {
		t.Fatal("expected error setting invalid fragment")
	}
}
