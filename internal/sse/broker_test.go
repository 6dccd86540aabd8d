package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

// collect reads exactly n frames, then anything else that arrives shortly after.
func collect(t *testing.T, ch chan []byte, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for len(out) < n {
		out = append(out, recv(t, ch))
	}
	time.Sleep(20 * time.Millisecond)
	return append(out, drain(ch)...)
}

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

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
		t.Fatalf("expected 0 clients after unsubscribe")
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestPublish_FrameFormat(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypePostCreated, Data: map[string]string{"path": "posts/a.md"}})
	b.Publish(Event{Type: TypePostUpdated, Data: map[string]string{"path": "posts/a.md"}})

	first := recv(t, ch)
	want := "id: 1\nevent: post.created\ndata: {\"path\":\"posts/a.md\"}\n\n"
	if first != want {
		t.Errorf("frame = %q, want %q", first, want)
	}
	if second := recv(t, ch); !strings.HasPrefix(second, "id: 2\n") {
		t.Errorf("second frame should carry id 2: %q", second)
	}
}

func TestPublishPostEvent_ListingThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostEvent("created", "posts/a.md")
	b.PublishPostEvent("updated", "posts/b.md")
	b.PublishPostEvent("deleted", "posts/c.md")

	var listing, posts int
	for _, msg := range collect(t, ch, 4) {
		if strings.Contains(msg, "event: listing.updated") {
			listing++
		} else if strings.Contains(msg, "event: post.") {
			posts++
		}
	}
	if posts != 3 {
		t.Errorf("post events = %d, want 3", posts)
	}
	if listing != 1 {
		t.Errorf("listing events = %d, want 1", listing)
	}
}

func TestPublishPostEvent_ThrottleWindowReopens(t *testing.T) {
	b := NewBroker(30 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostEvent("created", "posts/a.md")
	msgs := collect(t, ch, 2)
	time.Sleep(60 * time.Millisecond)
	b.PublishPostEvent("updated", "posts/a.md")
	msgs = append(msgs, collect(t, ch, 2)...)

	var listing int
	for _, msg := range msgs {
		if strings.Contains(msg, "event: listing.updated") {
			listing++
		}
	}
	if listing != 2 {
		t.Errorf("listing events = %d, want 2", listing)
	}
}

func TestPublishPostEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostEvent("renamed", "posts/a.md")
	time.Sleep(30 * time.Millisecond)
	if msgs := drain(ch); len(msgs) != 0 {
		t.Errorf("expected no frames, got %q", msgs)
	}
}

func TestServeHTTP_StreamsAndCleansUp(t *testing.T) {
	b := NewBroker(100*time.Millisecond, WithKeepAlive(0))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.PublishPostEvent("updated", "posts/x.md")
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: post.updated") || !strings.Contains(body, "event: listing.updated") {
		t.Errorf("handler output missing events: %q", body)
	}

	deadline = time.Now().Add(time.Second)
	for b.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not cleaned up after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeHTTP_KeepAlive(t *testing.T) {
	b := NewBroker(time.Second, WithKeepAlive(10*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	b.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), ": keepalive\n\n") {
		t.Errorf("expected keep-alive comment, got %q", w.Body.String())
	}
}

func TestPublish_FullBufferDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for range clientBuffer + 10 {
		b.Publish(Event{Type: "test", Data: map[string]string{}})
	}
	deadline := time.Now().Add(time.Second)
	for len(ch) < clientBuffer {
		if time.Now().After(deadline) {
			t.Fatalf("buffered frames = %d, want %d", len(ch), clientBuffer)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClose(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
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

	// No-ops after close.
	b.Publish(Event{Type: TypePostUpdated})
	b.PublishPostEvent("updated", "posts/x.md")
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close should return a closed channel")
	}
	b.Close()
}
