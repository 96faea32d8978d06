package netevent

import (
	"context"
	"sync"

	"github.com/opd-ai/espudp/queue"
	"github.com/sirupsen/logrus"
)

// delivery is one queued dispatch; a nil target means every subscriber.
type delivery struct {
	ev     Event
	target Handler
}

// Broadcaster is an in-memory Source. Events are dispatched in publish order
// on a single goroutine, so a handler never runs concurrently with itself or
// with another handler of the same Broadcaster.
type Broadcaster struct {
	mu       sync.Mutex
	current  int
	handlers []Handler

	pending *queue.Queue[delivery]
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	timeProvider TimeProvider
}

// NewBroadcaster creates a Broadcaster reporting initial as the current
// network identity and starts its dispatch goroutine.
func NewBroadcaster(initial int) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broadcaster{
		current: initial,
		pending: queue.New[delivery](),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe registers h and schedules a replay of the current state to it,
// so a new subscriber learns the connectivity it joined under.
func (b *Broadcaster) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.handlers {
		if existing == h {
			return
		}
	}
	b.handlers = append(b.handlers, h)
	b.pending.Push(delivery{ev: b.eventLocked(), target: h})

	logrus.WithFields(logrus.Fields{
		"subscribers": len(b.handlers),
		"network_id":  b.current,
		"component":   "Broadcaster",
	}).Debug("Handler subscribed")
}

// Unsubscribe removes h. Events published after Unsubscribe returns are never
// delivered to h; a delivery already in flight may still complete.
func (b *Broadcaster) Unsubscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.handlers {
		if existing == h {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			logrus.WithFields(logrus.Fields{
				"subscribers": len(b.handlers),
				"component":   "Broadcaster",
			}).Debug("Handler unsubscribed")
			return
		}
	}
}

// CurrentNetworkID returns the last published network identity.
func (b *Broadcaster) CurrentNetworkID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Publish records id as the current network identity and queues an event
// for every subscriber.
func (b *Broadcaster) Publish(id int) {
	b.mu.Lock()
	b.current = id
	ev := b.eventLocked()
	b.mu.Unlock()

	b.pending.Push(delivery{ev: ev})
}

// SetTimeProvider sets the clock used to stamp events.
func (b *Broadcaster) SetTimeProvider(tp TimeProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeProvider = tp
}

// Close stops the dispatch goroutine. Queued events are discarded.
func (b *Broadcaster) Close() {
	b.cancel()
	b.pending.Close()
	<-b.done
}

func (b *Broadcaster) eventLocked() Event {
	return Event{NetworkID: b.current, At: getTimeProvider(b.timeProvider).Now()}
}

func (b *Broadcaster) dispatch() {
	defer close(b.done)
	for {
		d, err := b.pending.Pop(b.ctx)
		if err != nil {
			return
		}
		for _, h := range b.targets(d) {
			if !b.subscribed(h) {
				continue
			}
			h.OnNetworkChanged(d.ev)
		}
	}
}

func (b *Broadcaster) targets(d delivery) []Handler {
	if d.target != nil {
		return []Handler{d.target}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Handler(nil), b.handlers...)
}

func (b *Broadcaster) subscribed(h Handler) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.handlers {
		if existing == h {
			return true
		}
	}
	return false
}
