package store

import (
	"io/ioutil"
	"log"
	"os"
	"sync"
	"testing"

	cm "github.com/mosaicnetworks/eddy/src/common"
)

func testStore(s Store, t *testing.T) {
	//Reading a key that was never written
	if _, err := s.Get("k1"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("Get should fail with KeyNotFound, not %v", err)
	}

	//Write then read
	if err := s.Put("k1", []byte("1")); err != nil {
		t.Fatalf("err: %v", err)
	}

	val, err := s.Get("k1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(val) != "1" {
		t.Fatalf("k1 should be 1, not %s", val)
	}

	//Overwrite
	if err := s.Put("k1", []byte("2")); err != nil {
		t.Fatalf("err: %v", err)
	}

	val, err = s.Get("k1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(val) != "2" {
		t.Fatalf("k1 should be 2, not %s", val)
	}

	//CAS with the right expectation
	if err := s.CAS("k1", []byte("2"), []byte("3"), false); err != nil {
		t.Fatalf("err: %v", err)
	}

	val, err = s.Get("k1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(val) != "3" {
		t.Fatalf("k1 should be 3, not %s", val)
	}

	//CAS with the wrong expectation
	if err := s.CAS("k1", []byte("2"), []byte("4"), false); !cm.IsStore(err, cm.PreconditionFailed) {
		t.Fatalf("CAS should fail with PreconditionFailed, not %v", err)
	}

	val, err = s.Get("k1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(val) != "3" {
		t.Fatalf("a failed CAS should not modify k1, got %s", val)
	}

	//CAS on a missing key
	if err := s.CAS("k2", nil, []byte("9"), false); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("CAS should fail with KeyNotFound, not %v", err)
	}

	//CAS on a missing key, creating it
	if err := s.CAS("k2", nil, []byte("9"), true); err != nil {
		t.Fatalf("err: %v", err)
	}

	val, err = s.Get("k2")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(val) != "9" {
		t.Fatalf("k2 should be 9, not %s", val)
	}
}

func TestInmemStore(t *testing.T) {
	store := NewInmemStore()
	defer store.Close()

	testStore(store, t)
}

func TestInmemStoreConcurrentCAS(t *testing.T) {
	store := NewInmemStore()
	defer store.Close()

	if err := store.Put("ctr", []byte("0")); err != nil {
		t.Fatalf("err: %v", err)
	}

	routines := 8

	var wg sync.WaitGroup
	results := make(chan error, routines)

	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CAS("ctr", []byte("0"), []byte("1"), false)
		}()
	}

	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !cm.IsStore(err, cm.PreconditionFailed) {
			t.Fatalf("err: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("exactly one CAS should win, not %d", wins)
	}
}

func initBadgerStore(t *testing.T) *BadgerStore {
	os.RemoveAll("test_data")
	os.Mkdir("test_data", os.ModeDir|0777)

	dir, err := ioutil.TempDir("test_data", "badger")
	if err != nil {
		log.Fatal(err)
	}

	store, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	return store
}

func removeBadgerStore(store *BadgerStore, t *testing.T) {
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(store.path); err != nil {
		t.Fatal(err)
	}
}

func TestBadgerStore(t *testing.T) {
	store := initBadgerStore(t)
	defer removeBadgerStore(store, t)

	testStore(store, t)
}

func TestBadgerStoreReload(t *testing.T) {
	store := initBadgerStore(t)
	path := store.Path()
	defer os.RemoveAll(path)

	if err := store.Put("k1", []byte("42")); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	//Reopen the same directory: the value must still be there
	reloaded, err := NewBadgerStore(path)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer reloaded.Close()

	val, err := reloaded.Get("k1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(val) != "42" {
		t.Fatalf("k1 should be 42, not %s", val)
	}
}
