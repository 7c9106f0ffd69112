package local

import (
	"context"
	"sync"
)

// Message is an in-process pub/sub message.
type Message struct {
	Channel string
	Payload string
}

type subscription struct {
	ch       chan *Message
	channels []string
}

// LocalPubSub is an in-process fan-out pub/sub implementation. Slow
// subscribers drop messages instead of blocking publishers.
type LocalPubSub struct {
	mu      sync.RWMutex
	byChan  map[string]map[*subscription]struct{}
	bufSize int
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		byChan:  make(map[string]map[*subscription]struct{}),
		bufSize: bufSize,
	}
}

// Publish sends a message to all subscribers of the given channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &Message{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for s := range ps.byChan[channel] {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of messages for the given channels and a
// cancel function that closes it. Cancel is safe to call more than once.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *Message, func(), error) {
	s := &subscription{ch: make(chan *Message, ps.bufSize), channels: channels}
	ps.mu.Lock()
	for _, c := range channels {
		set, ok := ps.byChan[c]
		if !ok {
			set = make(map[*subscription]struct{})
			ps.byChan[c] = set
		}
		set[s] = struct{}{}
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			for _, c := range s.channels {
				delete(ps.byChan[c], s)
				if len(ps.byChan[c]) == 0 {
					delete(ps.byChan, c)
				}
			}
			ps.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel, nil
}

// Subscribers returns the number of subscriptions on channel.
func (ps *LocalPubSub) Subscribers(channel string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.byChan[channel])
}
