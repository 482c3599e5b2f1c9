package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultSendTimeout = 2 * time.Second

// ErrChannelClosed is returned by channels that can no longer deliver.
var ErrChannelClosed = errors.New("channel closed")

// Message is one named push.
type Message struct {
	Name string
	Data any
}

// Channel is a live one-way connection to a subscriber. The transport opens
// it and hands it to Subscribe.
type Channel interface {
	// Send delivers msg or fails; it must honour ctx.
	Send(ctx context.Context, msg Message) error
	// Close releases the underlying connection. It is idempotent.
	Close() error
	// Done is closed when the transport completes, times out or fails.
	Done() <-chan struct{}
}

type subscriber struct {
	eventID uint
	ch      Channel
	stop    chan struct{}
	once    sync.Once
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	b   *Broadcaster
	sub *subscriber
}

// Cancel deregisters the channel and closes it.
func (s *Subscription) Cancel() {
	s.b.remove(s.sub)
}

type Option func(*Broadcaster)

func WithSendTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.sendTimeout = d
		}
	}
}

// Broadcaster is the per-event registry of live channels. One instance is
// created at startup and shared by every publisher.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[uint]map[*subscriber]struct{}
	sendTimeout time.Duration
}

func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subscribers: make(map[uint]map[*subscriber]struct{}),
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe registers ch under eventID. The channel is deregistered as soon
// as its Done signal fires.
func (b *Broadcaster) Subscribe(eventID uint, ch Channel) *Subscription {
	sub := &subscriber{
		eventID: eventID,
		ch:      ch,
		stop:    make(chan struct{}),
	}

	b.mu.Lock()
	set, ok := b.subscribers[eventID]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subscribers[eventID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ch.Done():
			b.remove(sub)
		case <-sub.stop:
		}
	}()

	zap.L().Debug("subscriber registered", zap.Uint("event_id", eventID))

	return &Subscription{b: b, sub: sub}
}

// Publish pushes one message to every channel registered for eventID and
// returns how many accepted it. Channels that fail or exceed the send
// timeout are removed once every send has finished.
func (b *Broadcaster) Publish(ctx context.Context, eventID uint, name string, data any) int {
	b.mu.RLock()
	snapshot := make([]*subscriber, 0, len(b.subscribers[eventID]))
	for sub := range b.subscribers[eventID] {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.sendTimeout)
	defer cancel()

	msg := Message{Name: name, Data: data}
	results := make(chan int, len(snapshot))
	for i, sub := range snapshot {
		go func(i int, sub *subscriber) {
			if err := sub.ch.Send(ctx, msg); err != nil {
				zap.L().Debug("push failed",
					zap.Uint("event_id", eventID),
					zap.String("name", name),
					zap.Error(err),
				)
				results <- -1 - i
				return
			}
			results <- i
		}(i, sub)
	}

	delivered := make([]bool, len(snapshot))
	timeout := time.NewTimer(b.sendTimeout)
	defer timeout.Stop()

wait:
	for pending := len(snapshot); pending > 0; pending-- {
		select {
		case r := <-results:
			if r >= 0 {
				delivered[r] = true
			}
		case <-timeout.C:
			break wait
		}
	}

	count := 0
	for i, ok := range delivered {
		if ok {
			count++
			continue
		}
		b.remove(snapshot[i])
	}

	if count < len(snapshot) {
		zap.L().Info("dropped dead subscribers",
			zap.Uint("event_id", eventID),
			zap.String("name", name),
			zap.Int("dropped", len(snapshot)-count),
		)
	}

	return count
}

// Subscribers counts the channels registered for eventID.
func (b *Broadcaster) Subscribers(eventID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[eventID])
}

// Close deregisters and closes every channel.
func (b *Broadcaster) Close() {
	b.mu.RLock()
	all := make([]*subscriber, 0)
	for _, set := range b.subscribers {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range all {
		b.remove(sub)
	}
}

func (b *Broadcaster) remove(sub *subscriber) {
	sub.once.Do(func() {
		b.mu.Lock()
		if set, ok := b.subscribers[sub.eventID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subscribers, sub.eventID)
			}
		}
		b.mu.Unlock()

		close(sub.stop)
		if err := sub.ch.Close(); err != nil {
			zap.L().Debug("failed to close channel", zap.Uint("event_id", sub.eventID), zap.Error(err))
		}
		zap.L().Debug("subscriber removed", zap.Uint("event_id", sub.eventID))
	})
}
