package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ugorji/go/codec"
)

// Message types consumed and produced by the runtime itself. Everything
// else is application-defined and routed to the handler.
const (
	// InitType is the handshake request sent by the workbench exactly once,
	// before any other traffic. It carries the node's assigned id and the
	// full id list of the cluster.
	InitType = "init"

	// InitOKType is the handshake acknowledgement.
	InitOKType = "init_ok"

	// ErrorType marks a reply that reports a protocol error (see Error).
	ErrorType = "error"
)

// Reserved body field names. They are held in Body's typed fields and
// cannot be set through Set or SetRaw.
const (
	typeField      = "type"
	msgIDField     = "msg_id"
	inReplyToField = "in_reply_to"
)

// Message is one record on the wire: an envelope identifying the sending
// and receiving nodes, and a body.
type Message struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Body *Body  `json:"body"`
}

// Body is the payload of a Message. The three reserved fields are typed;
// every other field is kept as the raw JSON fragment it arrived with, so
// application payloads survive a decode/encode cycle untouched. A zero
// MsgID or InReplyTo means the field is absent.
type Body struct {
	Type      string
	MsgID     uint64
	InReplyTo uint64

	fields map[string]json.RawMessage
}

// NewBody returns a Body with the given type tag and no payload fields.
func NewBody(msgType string) *Body {
	return &Body{Type: msgType}
}

// Set marshals v and stores it under key. Reserved keys are rejected.
func (b *Body) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling body field %q: %v", key, err)
	}
	return b.SetRaw(key, raw)
}

// SetRaw stores a raw JSON fragment under key. The fragment must be a
// single valid JSON value. Reserved keys are rejected.
func (b *Body) SetRaw(key string, raw json.RawMessage) error {
	if isReserved(key) {
		return fmt.Errorf("body field %q is reserved", key)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("body field %q is not valid JSON", key)
	}
	if b.fields == nil {
		b.fields = make(map[string]json.RawMessage)
	}
	b.fields[key] = raw
	return nil
}

// Raw returns the raw JSON fragment stored under key.
func (b *Body) Raw(key string) (json.RawMessage, bool) {
	raw, ok := b.fields[key]
	return raw, ok
}

// Decode unmarshals the whole body, reserved fields included, into v.
// It is the usual way for a handler to read a typed request payload.
func (b *Body) Decode(v interface{}) error {
	enc, err := b.Marshal()
	if err != nil {
		return err
	}
	return json.Unmarshal(enc, v)
}

// Marshal produces the canonical json encoding of the body: object keys
// in sorted order, payload fragments passed through verbatim.
func (b *Body) Marshal() ([]byte, error) {
	m := make(map[string]codec.Raw, len(b.fields)+3)
	for k, v := range b.fields {
		m[k] = codec.Raw(v)
	}

	typeRaw, err := json.Marshal(b.Type)
	if err != nil {
		return nil, err
	}
	m[typeField] = codec.Raw(typeRaw)

	if b.MsgID != 0 {
		m[msgIDField] = codec.Raw(strconv.FormatUint(b.MsgID, 10))
	}
	if b.InReplyTo != 0 {
		m[inReplyToField] = codec.Raw(strconv.FormatUint(b.InReplyTo, 10))
	}

	return canonicalEncode(m)
}

// Marshal produces the canonical json encoding of the message. Two equal
// messages always encode to the same bytes.
func (m *Message) Marshal() ([]byte, error) {
	if m.Body == nil {
		return nil, fmt.Errorf("message has no body")
	}

	body, err := m.Body.Marshal()
	if err != nil {
		return nil, err
	}

	srcRaw, err := json.Marshal(m.Src)
	if err != nil {
		return nil, err
	}
	destRaw, err := json.Marshal(m.Dest)
	if err != nil {
		return nil, err
	}

	return canonicalEncode(map[string]codec.Raw{
		"src":  codec.Raw(srcRaw),
		"dest": codec.Raw(destRaw),
		"body": codec.Raw(body),
	})
}

func canonicalEncode(m map[string]codec.Raw) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	jh.Raw = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Decode parses one encoded record. It fails with a DecodeError when the
// input is not a single well-formed json object, when src or dest are
// missing on a non-handshake message, when the body or its type tag are
// missing, or when msg_id / in_reply_to are present but are not positive
// integers.
func Decode(data []byte) (*Message, error) {
	var env struct {
		Src  string          `json:"src"`
		Dest string          `json:"dest"`
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, newDecodeError("invalid message: %v", err)
	}
	if len(env.Body) == 0 {
		return nil, newDecodeError("message has no body")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.Body, &fields); err != nil {
		return nil, newDecodeError("invalid body: %v", err)
	}

	body := &Body{}

	typeRaw, ok := fields[typeField]
	if !ok {
		return nil, newDecodeError("body has no type")
	}
	if err := json.Unmarshal(typeRaw, &body.Type); err != nil || body.Type == "" {
		return nil, newDecodeError("body type is not a string")
	}
	delete(fields, typeField)

	if raw, ok := fields[msgIDField]; ok {
		id, err := parseID(raw)
		if err != nil {
			return nil, newDecodeError("msg_id %s is not a positive integer", raw)
		}
		body.MsgID = id
		delete(fields, msgIDField)
	}

	if raw, ok := fields[inReplyToField]; ok {
		id, err := parseID(raw)
		if err != nil {
			return nil, newDecodeError("in_reply_to %s is not a positive integer", raw)
		}
		body.InReplyTo = id
		delete(fields, inReplyToField)
	}

	if len(fields) > 0 {
		body.fields = fields
	}

	if body.Type != InitType && (env.Src == "" || env.Dest == "") {
		return nil, newDecodeError("%s message has no src or dest", body.Type)
	}

	return &Message{Src: env.Src, Dest: env.Dest, Body: body}, nil
}

func parseID(raw json.RawMessage) (uint64, error) {
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("zero id")
	}
	return id, nil
}

func isReserved(key string) bool {
	return key == typeField || key == msgIDField || key == inReplyToField
}
