package feed

import (
	"context"
	"sync"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
)

// MemoryFeed is an in-process Feed used by tests and the local dev harness.
// Delivery is synchronous, which makes subscription lifecycles deterministic
// to assert on.
type MemoryFeed struct {
	mu          sync.Mutex
	retained    map[string]domain.ScanEvent
	subscribers map[string]map[int64]Handler
	nextID      int64
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		retained:    make(map[string]domain.ScanEvent),
		subscribers: make(map[string]map[int64]Handler),
	}
}

func (f *MemoryFeed) Subscribe(_ context.Context, code string, handler Handler) (func(), error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++

	if f.subscribers[code] == nil {
		f.subscribers[code] = make(map[int64]Handler)
	}
	f.subscribers[code][id] = handler

	event, hasRetained := f.retained[code]
	f.mu.Unlock()

	// Last-value semantics: a new subscriber sees the current value at once.
	if hasRetained {
		handler(event)
	}

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subscribers[code], id)
	}
	return cancel, nil
}

func (f *MemoryFeed) Publish(_ context.Context, code string, event domain.ScanEvent) error {
	f.mu.Lock()
	f.retained[code] = event
	handlers := make([]Handler, 0, len(f.subscribers[code]))
	for _, h := range f.subscribers[code] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (f *MemoryFeed) Clear(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.retained, code)
	return nil
}

// SubscriberCount reports the live listeners for one physical cart.
func (f *MemoryFeed) SubscriberCount(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[code])
}
