package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/responder/core/model"
)

// MockNotifier records orders in memory. It is used in tests and by the
// CLI when no broker is configured.
type MockNotifier struct {
	Orders  []model.AssignmentOrder
	FailIDs map[string]bool
	mu      sync.Mutex
}

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{FailIDs: make(map[string]bool)}
}

// Notify records the order or returns an error if configured to fail.
func (m *MockNotifier) Notify(_ context.Context, order model.AssignmentOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[order.ResponderID] {
		return fmt.Errorf("publish failed")
	}
	m.Orders = append(m.Orders, order)
	return nil
}

// Sent returns a copy of the recorded orders.
func (m *MockNotifier) Sent() []model.AssignmentOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AssignmentOrder(nil), m.Orders...)
}
