package msgbus

import (
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := New(4)
	sub := b.Subscribe("air/voc")

	b.Publish("air/voc", 28)

	select {
	case got := <-sub.Channel():
		if got.Payload.(int) != 28 {
			t.Errorf("expected payload 28, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestRetainedMessage(t *testing.T) {
	b := New(2)
	b.PublishRetained("air/state", "conditioning")

	sub := b.Subscribe("air/state")
	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "conditioning" {
			t.Errorf("expected retained payload 'conditioning', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained message")
	}
}

func TestRetainedClear(t *testing.T) {
	b := New(2)
	b.PublishRetained("air/state", "measuring")
	b.PublishRetained("air/state", nil)

	sub := b.Subscribe("air/state")
	select {
	case got := <-sub.Channel():
		t.Fatalf("expected no retained message, got %v", got.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTopicIsolation(t *testing.T) {
	b := New(4)
	voc := b.Subscribe("air/voc")
	nox := b.Subscribe("air/nox")

	b.Publish("air/voc", 28)

	select {
	case <-nox.Channel():
		t.Fatal("nox subscriber received a voc message")
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case got := <-voc.Channel():
		if got.Topic != "air/voc" {
			t.Errorf("wrong topic %q", got.Topic)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("voc subscriber got nothing")
	}
}

func TestDropOldestWhenFull(t *testing.T) {
	b := New(2)
	sub := b.Subscribe("air/voc")

	b.Publish("air/voc", 1)
	b.Publish("air/voc", 2)
	b.Publish("air/voc", 3) // pushes 1 out

	got := []int{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			got = append(got, m.Payload.(int))
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout draining queue")
		}
	}
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("expected [2 3] after drop-oldest, got %v", got)
	}
}

func TestPublishNeverBlocksAgainstDrainingConsumer(t *testing.T) {
	// A consumer draining the queue right between the publisher's failed
	// non-blocking send and its drop-of-the-oldest must not wedge Publish.
	b := New(1)
	sub := b.Subscribe("air/voc")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5000; i++ {
			b.Publish("air/voc", i)
		}
		close(done)
	}()
	go func() {
		for {
			select {
			case <-sub.Channel():
			case <-done:
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher wedged against a draining consumer")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(2)
	sub := b.Subscribe("air/voc")
	sub.Unsubscribe()

	if _, ok := <-sub.Channel(); ok {
		t.Fatal("channel still open after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish("air/voc", 1)
}
