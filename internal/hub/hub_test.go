package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	h := New()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish("frame-1")

	select {
	case msg := <-a:
		if msg != "frame-1" {
			t.Fatalf("subscriber a got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber a never received the frame")
	}
	select {
	case msg := <-b:
		if msg != "frame-1" {
			t.Fatalf("subscriber b got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber b never received the frame")
	}
}

func TestPublishDropsLaggingSubscriberRatherThanBlock(t *testing.T) {
	h := New()
	sub := h.Subscribe()
	other := h.Subscribe()

	// Fill sub's buffer without ever reading from it; other stays
	// unread too so both start out equally full.
	for i := 0; i < Capacity; i++ {
		done := make(chan struct{})
		go func() {
			h.Publish("x")
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Publish blocked before the buffer was even full")
		}
	}
	require.Equal(t, 2, h.Subscribers())

	// One more publish can't be delivered to either full buffer: both
	// lagging subscribers are dropped, not blocked on or silently
	// left registered.
	done := make(chan struct{})
	go func() {
		h.Publish("x")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	require.Equal(t, 0, h.Subscribers())

	for i := 0; i < Capacity; i++ {
		<-sub
		<-other
	}
	_, ok := <-sub
	require.False(t, ok, "expected the lagging subscriber's channel to be closed")

	_, ok = <-other
	require.False(t, ok, "expected the lagging subscriber's channel to be closed")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New()
	ch := h.Subscribe()
	h.Unsubscribe(ch)

	_, ok := <-ch
	require.False(t, ok, "expected channel to be closed after Unsubscribe")
	require.Equal(t, 0, h.Subscribers())
}
