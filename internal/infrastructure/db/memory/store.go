// Package memory is an in-process implementation of the repositories. It
// honours the same conditional-write and transaction contract as the Mongo
// and Postgres stores and is used for local runs and tests.
package memory

import (
	"sync"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// Fault operation names accepted by the fault hook.
const (
	OpOrderCreate   = "order.create"
	OpOrderUpdate   = "order.update"
	OpOrderComplete = "order.complete"
	OpWalletCredit  = "wallet.credit"
	OpMessageAppend = "message.append"
	OpEventInsert   = "event.insert"
	OpUserUpdate    = "user.update"
	OpUserDelete    = "user.delete"
)

// Store holds all data behind one lock. Repositories are views over it.
type Store struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	users    map[string]*domain.User
	emails   map[string]string
	messages map[string][]*domain.Message
	events   []domain.OrderEvent

	fault func(op string) error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		orders:   make(map[string]*domain.Order),
		users:    make(map[string]*domain.User),
		emails:   make(map[string]string),
		messages: make(map[string][]*domain.Message),
	}
}

// InjectFault installs f, which is consulted before every write with the
// operation name. A non-nil result aborts the operation as a storage fault.
// OpWalletCredit fires inside the completion transaction after the order
// update has been staged.
func (s *Store) InjectFault(f func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// check must be called with mu held.
func (s *Store) check(op string) error {
	if s.fault == nil {
		return nil
	}
	return domain.Storage(op, s.fault(op))
}

// Orders returns the order repository view.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Users returns the user repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Messages returns the message repository view.
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s: s} }

// Events returns the audit repository view.
func (s *Store) Events() *EventRepository { return &EventRepository{s: s} }

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	if o.StartedAt != nil {
		t := *o.StartedAt
		c.StartedAt = &t
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func cloneMessage(m *domain.Message) *domain.Message {
	c := *m
	return &c
}
