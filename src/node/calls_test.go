package node

import (
	"sync"
	"testing"

	"github.com/mosaicnetworks/eddy/src/app"
)

func TestCallTableResolve(t *testing.T) {
	table := newCallTable()

	pending, ok := table.register(42)
	if !ok {
		t.Fatal("register should succeed on an open table")
	}
	if c := table.count(); c != 1 {
		t.Fatalf("count should be 1, not %d", c)
	}

	reply := testMessage("n2", "n1", "probe_ok", 0)

	if !table.resolve(42, reply) {
		t.Fatal("resolve should find the pending call")
	}

	res := <-pending.respCh
	if res.err != nil {
		t.Fatalf("err: %v", res.err)
	}
	if res.reply != reply {
		t.Fatalf("resolved reply should be %v, not %v", reply, res.reply)
	}

	//A second resolution of the same id must find nothing
	if table.resolve(42, reply) {
		t.Fatal("an entry should resolve at most once")
	}
}

func TestCallTableForget(t *testing.T) {
	table := newCallTable()

	table.register(7)

	if !table.forget(7) {
		t.Fatal("forget should report the entry as pending")
	}
	if table.forget(7) {
		t.Fatal("forget should fail on a removed entry")
	}
	if table.resolve(7, testMessage("n2", "n1", "probe_ok", 0)) {
		t.Fatal("resolve should fail on a removed entry")
	}
}

func TestCallTableCancelAll(t *testing.T) {
	table := newCallTable()

	pending := make([]*pendingCall, 3)
	for i := range pending {
		p, ok := table.register(uint64(i + 1))
		if !ok {
			t.Fatal("register should succeed on an open table")
		}
		pending[i] = p
	}

	if n := table.cancelAll(app.ErrShutdown); n != 3 {
		t.Fatalf("cancelAll should cancel 3 calls, not %d", n)
	}

	for i, p := range pending {
		res := <-p.respCh
		if res.err != app.ErrShutdown {
			t.Fatalf("call %d should fail with ErrShutdown, not %v", i, res.err)
		}
	}

	//The table is closed against further registrations
	if _, ok := table.register(99); ok {
		t.Fatal("register should fail on a closed table")
	}
}

func TestCallTableResolveOnce(t *testing.T) {
	table := newCallTable()

	pending, _ := table.register(5)
	reply := testMessage("n2", "n1", "probe_ok", 0)

	routines := 8

	var wg sync.WaitGroup
	wins := make(chan bool, routines)

	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- table.resolve(5, reply)
		}()
	}

	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}

	if winners != 1 {
		t.Fatalf("exactly one resolver should win, not %d", winners)
	}

	//The slot holds exactly the one result
	res := <-pending.respCh
	if res.reply != reply {
		t.Fatalf("resolved reply should be %v, not %v", reply, res.reply)
	}

	select {
	case extra := <-pending.respCh:
		t.Fatalf("slot should hold a single result, got another: %v", extra)
	default:
	}
}
