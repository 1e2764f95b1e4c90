// Package msgbus is a small in-process pub/sub bus used for telemetry:
// the sensor tasks publish readings and lifecycle state, and observers
// (the simulator CLI, tests) subscribe without touching the tasks.
//
// Unlike the indicator channel, telemetry may shed load: a subscriber whose
// queue is full loses its oldest message, never the publisher's progress.
package msgbus

import "sync"

// Topic is a flat topic name, e.g. "air/voc".
type Topic string

// Message is what subscribers receive.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// Subscription is one subscriber queue on a topic.
type Subscription struct {
	topic Topic
	ch    chan *Message
	bus   *Bus
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.bus.unsubscribe(s) }

// Bus routes messages to subscribers and keeps the latest retained message
// per topic.
type Bus struct {
	mu       sync.Mutex
	subs     map[Topic][]*Subscription
	retained map[Topic]*Message
	qLen     int
}

// New creates a bus with the given per-subscription queue length.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		subs:     map[Topic][]*Subscription{},
		retained: map[Topic]*Message{},
		qLen:     queueLen,
	}
}

// Subscribe registers a queue on topic. If a retained message exists it is
// delivered immediately.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan *Message, b.qLen), bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], sub)
	if m := b.retained[topic]; m != nil {
		sub.ch <- m
	}
	return sub
}

// Publish delivers payload to all subscribers of topic.
func (b *Bus) Publish(topic Topic, payload any) {
	b.publish(&Message{Topic: topic, Payload: payload})
}

// PublishRetained delivers payload and keeps it as the topic's retained
// message for late subscribers. A nil payload clears the retained slot.
func (b *Bus) PublishRetained(topic Topic, payload any) {
	b.publish(&Message{Topic: topic, Payload: payload, Retained: true})
}

func (b *Bus) publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[msg.Topic] {
		select {
		case sub.ch <- msg:
		default:
			// Queue full: drop the oldest. The drain itself must not block
			// either, in case the consumer emptied the queue between the two
			// selects; publish is the only writer, so space exists after it.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- msg
		}
	}

	if msg.Retained {
		if msg.Payload == nil {
			delete(b.retained, msg.Topic)
		} else {
			b.retained[msg.Topic] = msg
		}
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.topic]
	for i, s := range list {
		if s == sub {
			b.subs[sub.topic] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
	close(sub.ch)
}
