package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// ChatService relays order-scoped chat messages. Persist and broadcast of
// one room run under the same lock, so members receive messages in the order
// they were stored.
type ChatService struct {
	orders   ports.OrderRepository
	messages ports.MessageRepository
	rooms    ports.Broadcaster
	dedup    ports.MessageDeduplicator
	log      zerolog.Logger
	now      func() time.Time

	locks roomLocks
}

// NewChatService wires the relay. dedup may be nil.
func NewChatService(
	orders ports.OrderRepository,
	messages ports.MessageRepository,
	rooms ports.Broadcaster,
	dedup ports.MessageDeduplicator,
	log zerolog.Logger,
) *ChatService {
	return &ChatService{
		orders:   orders,
		messages: messages,
		rooms:    rooms,
		dedup:    dedup,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    roomLocks{rooms: make(map[string]*roomLock)},
	}
}

// JoinRoom places m in the room of orderID. Only the order's client, its
// current booster and admins may join.
//
// A booster can lose the order between the first read and the join, and the
// eviction for that change may already have run. The order is read again
// after joining and the member is taken back out if it no longer qualifies.
func (s *ChatService) JoinRoom(ctx context.Context, p domain.Principal, orderID string, m ports.RoomMember) error {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if p.Role != domain.RoleAdmin && !o.IsParticipant(p.ID) {
		return domain.Forbidden("not a participant of this order")
	}

	s.rooms.Join(orderID, m)

	if p.Role != domain.RoleAdmin {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil || !o.IsParticipant(p.ID) {
			s.rooms.Leave(orderID, m)
			if err != nil {
				return err
			}
			return domain.Forbidden("not a participant of this order")
		}
	}

	s.log.Debug().Str("order_id", orderID).Str("principal_id", p.ID).Str("conn_id", m.ID()).Msg("joined order room")
	return nil
}

func (s *ChatService) LeaveRoom(orderID string, m ports.RoomMember) {
	s.rooms.Leave(orderID, m)
}

func (s *ChatService) Disconnect(m ports.RoomMember) {
	s.rooms.Disconnect(m)
}

// SendMessage persists a message from p to the other participant of the
// order and then broadcasts it to the order room.
func (s *ChatService) SendMessage(ctx context.Context, p domain.Principal, in ports.SendMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, domain.Invalid("content is required")
	}
	if utf8.RuneCountInString(in.Content) > domain.MaxMessageLength {
		return nil, domain.Invalid("content is too long")
	}

	o, err := s.orders.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	receiverID, err := o.Counterpart(p.ID)
	if err != nil {
		return nil, err
	}
	if receiverID == "" {
		return nil, domain.ErrNoReceiver
	}

	unlock := s.locks.lock(in.OrderID)
	defer unlock()

	if in.Nonce != "" && s.dedup != nil {
		prev, seen, err := s.dedup.Seen(ctx, p.ID, in.Nonce)
		if err != nil {
			s.log.Warn().Err(err).Str("order_id", in.OrderID).Msg("nonce check failed, sending anyway")
		} else if seen && prev.OrderID == in.OrderID {
			s.log.Debug().Str("order_id", in.OrderID).Str("message_id", prev.ID).Msg("duplicate message suppressed")
			return prev, nil
		}
	}

	msg := &domain.Message{
		OrderID:    in.OrderID,
		SenderID:   p.ID,
		ReceiverID: receiverID,
		Content:    in.Content,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("order_id", in.OrderID).Msg("failed to persist message")
		return nil, err
	}

	s.rooms.BroadcastMessage(in.OrderID, msg)

	if in.Nonce != "" && s.dedup != nil {
		if err := s.dedup.Remember(ctx, in.Nonce, msg); err != nil {
			s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to remember message nonce")
		}
	}

	s.log.Info().
		Str("order_id", in.OrderID).
		Str("message_id", msg.ID).
		Str("sender_id", msg.SenderID).
		Str("receiver_id", msg.ReceiverID).
		Msg("message sent")
	return msg, nil
}

// History returns the stored conversation of an order, oldest first.
func (s *ChatService) History(ctx context.Context, p domain.Principal, orderID string) ([]*domain.Message, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.Role != domain.RoleAdmin && !o.IsParticipant(p.ID) {
		return nil, domain.Forbidden("not a participant of this order")
	}
	return s.messages.ListByOrder(ctx, orderID)
}

// roomLocks hands out one mutex per order room. Entries live only while a
// send on that room holds or waits for the lock, so rooms never contend with
// each other and the map stays as small as the number of active sends.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func (l *roomLocks) lock(orderID string) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.rooms[orderID]
	if !ok {
		rl = &roomLock{}
		l.rooms[orderID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.rooms, orderID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
