// Package notifier provides a topic-filtered broadcast mechanism for SSE updates.
package notifier

import "sync"

// TopicFiles is broadcast when objects in the blob store change.
const TopicFiles = "files"

// Notifier broadcasts update signals to subscribed listeners.
// Listeners receive an empty struct when something they watch changed and
// should re-query the store. A topic is usually a content table name.
type Notifier struct {
	mu sync.RWMutex
	// listeners maps each channel to its topic set; a nil set matches every topic.
	listeners map[chan struct{}]map[string]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]map[string]struct{}),
	}
}

// Subscribe returns a channel that receives pings when any of topics is
// broadcast, or on every broadcast when no topic is given.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe(topics ...string) chan struct{} {
	ch := make(chan struct{}, 1)
	var set map[string]struct{}
	if len(topics) > 0 {
		set = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			set[t] = struct{}{}
		}
	}
	n.mu.Lock()
	n.listeners[ch] = set
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings the listeners of topics. With no topics every listener
// is pinged.
// Non-blocking: if a listener's channel is full, the ping is skipped.
func (n *Notifier) Broadcast(topics ...string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, set := range n.listeners {
		if !wants(set, topics) {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
			// Channel full, the listener still has a pending ping.
		}
	}
}

func wants(set map[string]struct{}, topics []string) bool {
	if set == nil || len(topics) == 0 {
		return true
	}
	for _, t := range topics {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
