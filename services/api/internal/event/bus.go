package event

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

// Handler consumes one event. Handlers run on a per-subscriber goroutine, so
// a slow handler delays only its own subscriber.
type Handler func(evt domain.Event)

// Bus is an in-process fan-out publisher. Delivery is at-most-once best
// effort: when a subscriber's buffer is full the event is dropped for that
// subscriber rather than blocking the publisher.
type Bus struct {
	log zerolog.Logger

	mu     sync.Mutex
	subs   map[int]chan domain.Event
	nextID int
	closed bool

	wg sync.WaitGroup
}

const defaultBuffer = 64

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:  log,
		subs: make(map[int]chan domain.Event),
	}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, defaultBuffer)
	b.subs[id] = ch

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for evt := range ch {
			fn(evt)
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Publish fans the event out to every subscriber without blocking.
func (b *Bus) Publish(evt domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.log.Warn().Int("subscriber", id).Str("type", string(evt.Type)).Msg("event bus: dropping event for slow subscriber")
		}
	}
}

// Close stops delivery and waits for in-flight handlers to finish.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
