package service

import (
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/eddy/src/app"
	"github.com/mosaicnetworks/eddy/src/config"
	"github.com/mosaicnetworks/eddy/src/net"
	"github.com/mosaicnetworks/eddy/src/node"
	"github.com/mosaicnetworks/eddy/src/wire"
	"github.com/sirupsen/logrus"
)

//TestService covers both endpoints with a single Service because
//handlers register on the http package's DefaultServerMux, which
//refuses duplicate patterns.
func TestService(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)

	handler := app.HandlerFunc(func(nd app.Node, msg *wire.Message) error {
		return nil
	})

	trans := net.NewInmemTransport()

	n := node.NewNode(conf, trans, handler)
	n.RunAsync()
	defer n.Shutdown()

	//Handshake so the stats carry an identity
	body := wire.NewBody(wire.InitType)
	body.MsgID = 1
	if err := body.Set("node_id", "n1"); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := body.Set("node_ids", []string{"n1", "n2"}); err != nil {
		t.Fatalf("err: %v", err)
	}
	trans.Deliver(&wire.Message{Src: "c0", Dest: "n1", Body: body})

	if _, err := trans.NextSent(time.Second); err != nil {
		t.Fatalf("err: %v", err)
	}

	srv := NewService("127.0.0.1:0", n, conf.Logger())

	//stats
	w := httptest.NewRecorder()
	srv.makeHandler(srv.GetStats)(w, httptest.NewRequest("GET", "/stats", nil))

	if w.Code != 200 {
		t.Fatalf("GET /stats should return 200, not %d", w.Code)
	}

	var stats map[string]string
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("err: %v", err)
	}

	if stats["id"] != "n1" {
		t.Fatalf("stats id should be n1, not %s", stats["id"])
	}
	if stats["state"] != "Ready" {
		t.Fatalf("stats state should be Ready, not %s", stats["state"])
	}
	if stats["messages_read"] != "1" {
		t.Fatalf("messages_read should be 1, not %s", stats["messages_read"])
	}

	//peers
	w = httptest.NewRecorder()
	srv.makeHandler(srv.GetPeers)(w, httptest.NewRequest("GET", "/peers", nil))

	if w.Code != 200 {
		t.Fatalf("GET /peers should return 200, not %d", w.Code)
	}

	var membership struct {
		ID    string   `json:"id"`
		Peers []string `json:"peers"`
	}
	if err := json.NewDecoder(w.Body).Decode(&membership); err != nil {
		t.Fatalf("err: %v", err)
	}

	if membership.ID != "n1" {
		t.Fatalf("membership id should be n1, not %s", membership.ID)
	}
	if expected := []string{"n2"}; !reflect.DeepEqual(membership.Peers, expected) {
		t.Fatalf("peers should be %v, not %v", expected, membership.Peers)
	}
}
