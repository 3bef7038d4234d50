// Package alert fans high-risk access records out to the notification
// pipeline. The recorder invokes it synchronously whenever a decision carries
// the high-risk annotation.
package alert

import (
	"context"
	"sync"

	"sentra/internal/audit"
)

// Notifier delivers high-risk access alerts.
type Notifier interface {
	Notify(ctx context.Context, record audit.AccessRecord) error
}

// InMemoryNotifier collects alerts for tests and development.
type InMemoryNotifier struct {
	mu     sync.Mutex
	alerts []audit.AccessRecord
	err    error
}

// NewInMemoryNotifier creates an empty notifier.
func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

// FailWith makes subsequent Notify calls return err. Pass nil to recover.
func (n *InMemoryNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *InMemoryNotifier) Notify(_ context.Context, record audit.AccessRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, record)
	return nil
}

// Alerts returns all alerts delivered so far.
func (n *InMemoryNotifier) Alerts() []audit.AccessRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]audit.AccessRecord{}, n.alerts...)
}
