package stream

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("trk-1")
	defer hub.Unregister(client)

	payload := []byte(`{"total_km":1.5}`)
	hub.Broadcast("trk-1", payload)

	select {
	case msg := <-client.Send:
		if string(msg) != `{"total_km":1.5}` {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("abc")
	if ch == "" {
		t.Fatalf("expected channel")
	}
	if trackingIDFromChannel(ch) != "abc" {
		t.Fatalf("unexpected tracking id")
	}
	if trackingIDFromChannel("bad") != "" {
		t.Fatalf("expected empty tracking id")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("trk-2")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisBridgesAcrossInstances(t *testing.T) {
	s := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer clientB.Close()

	hubA := NewHub(clientA)
	hubB := NewHub(clientB)

	local := hubA.Register("trk-1")
	defer hubA.Unregister(local)
	remote := hubB.Register("trk-1")
	defer hubB.Unregister(remote)

	// Give both pattern subscriptions time to land.
	time.Sleep(50 * time.Millisecond)

	hubA.Broadcast("trk-1", []byte("ping"))

	select {
	case msg := <-local.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected local message")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for local delivery")
	}

	select {
	case msg := <-remote.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected bridged message")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for cross-instance delivery")
	}

	// The publishing hub must not hand its own publish back to clients it
	// already served directly.
	select {
	case msg := <-local.Send:
		t.Fatalf("duplicate local delivery: %s", msg)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSplitOrigin(t *testing.T) {
	origin, payload := splitOrigin("hub-1|{\"total_km\":1}")
	if origin != "hub-1" || payload != `{"total_km":1}` {
		t.Fatalf("unexpected split: %q %q", origin, payload)
	}
	origin, payload = splitOrigin("untagged")
	if origin != "" || payload != "untagged" {
		t.Fatalf("untagged payload must pass through: %q %q", origin, payload)
	}
}

func TestHubRedisPublishError(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client)
	clientNode := hub.Register("trk-bad")
	defer hub.Unregister(clientNode)

	hub.Broadcast("trk-bad", []byte("ping"))
}
