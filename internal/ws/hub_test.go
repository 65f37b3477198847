package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/plangen/internal/store"
	"go.uber.org/zap"
)

func newTestClient(userID string) *Client {
	return &Client{
		userID: userID,
		send:   make(chan Message, 16),
		logger: zap.NewNop(),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := newTestClient("a"), newTestClient("b")

	hub.Register(a)
	hub.Register(b)
	if hub.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d, want 2", hub.ClientCount())
	}

	hub.Unregister(a)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	if _, ok := <-a.send; ok {
		t.Error("send channel of unregistered client should be closed")
	}
}

func TestUnregisterNotRegistered(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("stranger")

	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		if !ok {
			t.Error("send channel closed for a client that was never registered")
		}
	default:
	}
}

func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("user-1")

	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // must not close the channel again

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	clients := []*Client{newTestClient("1"), newTestClient("2"), newTestClient("3")}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(Message{Type: MessageGeneration, ID: "gen-1", Timestamp: time.Now()})

	for i, c := range clients {
		select {
		case got := <-c.send:
			if got.Type != MessageGeneration || got.ID != "gen-1" {
				t.Errorf("client %d received %+v", i, got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %d did not receive message", i)
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("slow")
	hub.Register(client)

	for i := range cap(client.send) {
		client.send <- Message{Type: MessageGeneration, ID: fmt.Sprint(i)}
	}
	hub.Broadcast(Message{Type: MessageGeneration, ID: "dropped"})

	if len(client.send) != cap(client.send) {
		t.Fatalf("buffer length = %d, want %d", len(client.send), cap(client.send))
	}
	for range cap(client.send) {
		if got := <-client.send; got.ID == "dropped" {
			t.Error("dropped message was delivered")
		}
	}
}

func TestConcurrentRegisterUnregisterBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := newTestClient(fmt.Sprint("user-", i))
			hub.Register(client)
			go func() {
				for range client.send {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			hub.Unregister(client)
		}()
	}
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(Message{Type: MessageGeneration, Timestamp: time.Now()})
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

type stubRecorder struct {
	got []*store.Generation
	err error
}

func (s *stubRecorder) Record(_ context.Context, g *store.Generation) error {
	s.got = append(s.got, g)
	return s.err
}

func TestRecorder_ForwardsAndBroadcasts(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("watcher")
	hub.Register(client)

	next := &stubRecorder{err: errors.New("disk full")}
	rec := hub.Recorder(next)

	g := &store.Generation{ID: "g1", Kind: "weekly", Status: "succeeded"}
	err := rec.Record(context.Background(), g)

	if err == nil || err.Error() != "disk full" {
		t.Errorf("Record() error = %v, want the downstream error", err)
	}
	if len(next.got) != 1 || next.got[0] != g {
		t.Errorf("downstream saw %v", next.got)
	}

	select {
	case msg := <-client.send:
		data, ok := msg.Data.(GenerationData)
		if msg.Type != MessageGeneration || !ok || data.Generation.ID != "g1" {
			t.Errorf("broadcast = %+v", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("generation was not broadcast")
	}
}

func TestRecorder_NilNext(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("watcher")
	hub.Register(client)

	if err := hub.Recorder(nil).Record(context.Background(), &store.Generation{ID: "g2"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(client.send) != 1 {
		t.Errorf("queued = %d, want 1", len(client.send))
	}
}

func TestBroadcast_KindFilter(t *testing.T) {
	hub := NewHub(zap.NewNop())
	all := newTestClient("all")
	daily := newTestClient("daily-only")
	daily.kind = "daily"
	hub.Register(all)
	hub.Register(daily)

	rec := hub.Recorder(nil)
	for _, kind := range []string{"weekly", "daily", "weekly_stream"} {
		if err := rec.Record(context.Background(), &store.Generation{ID: kind, Kind: kind}); err != nil {
			t.Fatalf("Record(%s) error = %v", kind, err)
		}
	}

	if len(all.send) != 3 {
		t.Errorf("unfiltered client queued %d, want 3", len(all.send))
	}
	if len(daily.send) != 1 {
		t.Fatalf("daily client queued %d, want 1", len(daily.send))
	}
	if got := <-daily.send; got.ID != "daily" {
		t.Errorf("daily client got %q", got.ID)
	}
}
