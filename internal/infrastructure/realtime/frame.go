package realtime

import (
	"encoding/json"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// Inbound events.
const (
	EventJoinOrderRoom  = "joinOrderRoom"
	EventLeaveOrderRoom = "leaveOrderRoom"
	EventSendMessage    = "sendMessage"
)

// Outbound events.
const (
	EventReceiveMessage = "receiveMessage"
	EventOrderStatus    = "orderStatus"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventError          = "error"
)

// inboundFrame is any frame a client may send.
type inboundFrame struct {
	Event   string `json:"event"`
	OrderID string `json:"orderId"`
	Content string `json:"content,omitempty"`
	Nonce   string `json:"nonce,omitempty"`
}

type messageFrame struct {
	Event   string          `json:"event"`
	Message *domain.Message `json:"message"`
}

type orderFrame struct {
	Event string        `json:"event"`
	Order *domain.Order `json:"order"`
}

type roomFrame struct {
	Event   string `json:"event"`
	OrderID string `json:"orderId"`
}

type errorFrame struct {
	Event   string `json:"event"`
	OrderID string `json:"orderId,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encode(v any) []byte {
	// Frames are plain structs of strings, times and decimals; Marshal cannot fail.
	b, _ := json.Marshal(v)
	return b
}

func errorFrameFor(orderID string, err error) []byte {
	return encode(errorFrame{
		Event:   EventError,
		OrderID: orderID,
		Code:    domain.Code(err),
		Message: publicMessage(err),
	})
}

// publicMessage hides driver details from connected clients.
func publicMessage(err error) string {
	switch domain.Code(err) {
	case domain.CodeStorageFault:
		return "storage temporarily unavailable"
	case domain.CodeInternal:
		return "internal error"
	}
	return err.Error()
}
