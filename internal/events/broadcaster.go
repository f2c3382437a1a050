package events

import "sync"

// Subscriber receives every emitted event.
type Subscriber chan Event

const subscriberBuffer = 64

type hub struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
}

var subscribers = &hub{
	subscribers: make(map[Subscriber]struct{}),
}

// Subscribe registers a buffered subscriber.
func Subscribe() Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	subscribers.mu.Lock()
	subscribers.subscribers[ch] = struct{}{}
	subscribers.mu.Unlock()
	return ch
}

// Unsubscribe removes sub and closes it.
func Unsubscribe(sub Subscriber) {
	subscribers.mu.Lock()
	_, ok := subscribers.subscribers[sub]
	delete(subscribers.subscribers, sub)
	subscribers.mu.Unlock()
	if ok {
		close(sub)
	}
}

// broadcast never blocks: a subscriber whose buffer is full misses the event.
func broadcast(e Event) {
	subscribers.mu.RLock()
	defer subscribers.mu.RUnlock()

	for sub := range subscribers.subscribers {
		select {
		case sub <- e:
		default:
		}
	}
}

func SubscriberCount() int {
	subscribers.mu.RLock()
	defer subscribers.mu.RUnlock()
	return len(subscribers.subscribers)
}

// RecentEvents returns up to the last n buffered events; n <= 0 returns all.
func RecentEvents(n int) []Event {
	all := buffer.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// CloseAllSubscribers drops and closes every subscriber. Used on shutdown so
// streaming handlers return.
func CloseAllSubscribers() {
	subscribers.mu.Lock()
	defer subscribers.mu.Unlock()
	for sub := range subscribers.subscribers {
		close(sub)
	}
	subscribers.subscribers = make(map[Subscriber]struct{})
}
