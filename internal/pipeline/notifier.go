package pipeline

import "sync"

// Notifier is the "graph updated" signal. Consumers subscribe and
// recompute on receipt; no payload beyond "something changed".
type Notifier struct {
	mu   sync.Mutex
	subs []chan struct{}
}

// NewNotifier returns an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe returns a channel that receives after each capture or
// reprocess. The channel has a buffer of one; an undelivered signal is
// coalesced, never blocked on.
func (n *Notifier) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

// Notify signals all subscribers.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
