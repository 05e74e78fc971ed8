package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/offnote/internal/models"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "note.created", Data: map[string]string{"id": "a"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"a"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte, wait time.Duration) []string {
	var out []string
	deadline := time.After(wait)
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-deadline:
			return out
		}
	}
}

func TestPublishNoteEvent(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("created", "a")
	b.PublishNoteEvent("deleted", "b")
	b.PublishNoteEvent("bogus", "c")

	msgs := drain(ch, 50*time.Millisecond)
	if len(msgs) != 2 {
		t.Fatalf("messages = %q, want 2", msgs)
	}
	if !strings.Contains(msgs[0], "event: note.created") || !strings.Contains(msgs[0], `"id":"a"`) {
		t.Errorf("first = %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "event: note.deleted") {
		t.Errorf("second = %q", msgs[1])
	}
}

func TestPublishStatus_ThrottledWithTrailingFlush(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishStatus(map[string]models.SyncStatus{"a": models.StatusSyncing})
	b.PublishStatus(map[string]models.SyncStatus{"a": models.StatusSyncing, "b": models.StatusSyncing})
	b.PublishStatus(map[string]models.SyncStatus{"a": models.StatusSynced, "b": models.StatusError})

	msgs := drain(ch, 500*time.Millisecond)
	if len(msgs) != 2 {
		t.Fatalf("status events = %d, want 2 (first + trailing)", len(msgs))
	}
	if !strings.Contains(msgs[0], "event: sync.status") || !strings.Contains(msgs[0], `"headline":"Syncing..."`) {
		t.Errorf("first = %q", msgs[0])
	}
	last := msgs[1]
	if !strings.Contains(last, `"headline":"1 sync errors"`) || !strings.Contains(last, `"b":"error"`) {
		t.Errorf("trailing event must carry the latest snapshot: %q", last)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "note.updated", Data: map[string]string{"id": "x"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"id": "x"}})
	b.PublishNoteEvent("updated", "x")
	b.PublishStatus(map[string]models.SyncStatus{"x": models.StatusSyncing})
}
