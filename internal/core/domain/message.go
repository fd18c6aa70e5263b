package domain

import "time"

// MaxMessageLength bounds the content of a single chat message.
const MaxMessageLength = 4000

// Message is an immutable chat entry scoped to an order.
type Message struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}
