package ports

import (
	"context"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// RoomMember is one live connection that can be placed in an order room.
type RoomMember interface {
	// ID uniquely identifies the connection.
	ID() string
	// PrincipalID is the authenticated user behind the connection.
	PrincipalID() string
}

// Broadcaster owns room membership and delivers frames to members.
type Broadcaster interface {
	Join(orderID string, m RoomMember)
	Leave(orderID string, m RoomMember)
	Disconnect(m RoomMember)
	// BroadcastMessage delivers a persisted message to every member of the room.
	BroadcastMessage(orderID string, msg *domain.Message)
	// BroadcastOrder pushes the current order state to the room.
	BroadcastOrder(orderID string, o *domain.Order)
	// Evict removes every connection of principalID from the room.
	Evict(orderID, principalID string)
}

// MessageDeduplicator suppresses resent chat messages carrying the same
// client nonce.
type MessageDeduplicator interface {
	// Seen returns the message previously stored for the nonce.
	Seen(ctx context.Context, senderID, nonce string) (*domain.Message, bool, error)
	Remember(ctx context.Context, nonce string, msg *domain.Message) error
}

// SendMessageInput is the payload of a chat send.
type SendMessageInput struct {
	OrderID string
	Content string
	// Nonce is an optional client-generated key for resend suppression.
	Nonce string
}

// ChatService is the order-scoped chat relay.
type ChatService interface {
	JoinRoom(ctx context.Context, p domain.Principal, orderID string, m RoomMember) error
	LeaveRoom(orderID string, m RoomMember)
	Disconnect(m RoomMember)
	SendMessage(ctx context.Context, p domain.Principal, in SendMessageInput) (*domain.Message, error)
	History(ctx context.Context, p domain.Principal, orderID string) ([]*domain.Message, error)
}
