package livebus

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/git-afsantos/hplrv/internal/manager"
)

func dialWithRetry(t *testing.T, addr string) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", addr, err)
	return nil
}

func TestBusSendsStatusSnapshotOnConnect(t *testing.T) {
	entries := []manager.StatusEntry{{ID: "m1", Title: "title1", Property: "prop1"}}
	b := New(func() []manager.StatusEntry { return entries })
	if err := b.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	conn := dialWithRetry(t, b.listener.Addr().String())
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}

	var got []map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("decode snapshot line: %v (%q)", err, line)
	}
	if len(got) != 1 || got[0]["id"] != "m1" {
		t.Fatalf("snapshot = %+v, want one entry with id m1", got)
	}
}

func TestBusBroadcastsDeltas(t *testing.T) {
	b := New(func() []manager.StatusEntry { return nil })
	if err := b.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	conn := dialWithRetry(t, b.listener.Addr().String())
	defer conn.Close()
	reader := bufio.NewReader(conn)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := reader.ReadString('\n'); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	b.Publish(manager.VerdictDelta{Monitor: 2, Value: true, Timestamp: 5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("decode delta line: %v (%q)", err, line)
	}
	if got["monitor"].(float64) != 2 || got["value"] != true {
		t.Fatalf("delta = %+v, want monitor=2 value=true", got)
	}
}

func TestBusStopClosesClientConnections(t *testing.T) {
	b := New(func() []manager.StatusEntry { return nil })
	if err := b.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}

	conn := dialWithRetry(t, b.listener.Addr().String())
	defer conn.Close()
	reader := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := reader.ReadString('\n'); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	b.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := reader.ReadString('\n')
	if err == nil {
		t.Fatal("expected connection to be closed after Stop")
	}
}

func TestBusSlowClientDoesNotBlockPublish(t *testing.T) {
	b := New(func() []manager.StatusEntry { return nil }, func(b *Bus) { b.queueSize = 1 })
	if err := b.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	conn := dialWithRetry(t, b.listener.Addr().String())
	defer conn.Close()

	// Flood far more deltas than the queue can hold without ever reading;
	// Publish must never block the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(manager.VerdictDelta{Monitor: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a slow/non-reading client")
	}
}
