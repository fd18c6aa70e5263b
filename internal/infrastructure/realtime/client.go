package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// Client is one authenticated websocket connection.
type Client struct {
	id        string
	principal domain.Principal
	hub       *Hub
	conn      *websocket.Conn
	chat      ports.ChatService
	log       zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, p domain.Principal, chat ports.ChatService) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		principal: p,
		hub:       h,
		conn:      conn,
		chat:      chat,
		log:       h.log.With().Str("conn_id", id).Str("principal_id", p.ID).Logger(),
		send:      make(chan []byte, h.cfg.SendBuffer),
		done:      make(chan struct{}),
	}
}

func (c *Client) ID() string          { return c.id }
func (c *Client) PrincipalID() string { return c.principal.ID }

func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close signals the writer to send a close frame and drop the connection.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// serve runs the writer in the background and the reader inline until the
// peer goes away or the hub closes the connection.
func (c *Client) serve(ctx context.Context) {
	c.log.Debug().Msg("websocket connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	c.readPump(ctx)

	c.chat.Disconnect(c)
	c.hub.Disconnect(c)
	c.close()
	wg.Wait()
	c.log.Debug().Msg("websocket disconnected")
}

func (c *Client) readPump(ctx context.Context) {
	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var in inboundFrame
		if err := json.Unmarshal(raw, &in); err != nil {
			c.reply(errorFrameFor("", domain.Invalid("malformed frame")))
			continue
		}
		c.dispatch(ctx, in)
	}
}

func (c *Client) dispatch(ctx context.Context, in inboundFrame) {
	if in.OrderID == "" {
		c.reply(errorFrameFor("", domain.Invalid("orderId is required")))
		return
	}

	switch in.Event {
	case EventJoinOrderRoom:
		if err := c.chat.JoinRoom(ctx, c.principal, in.OrderID, c); err != nil {
			c.replyError(in, err)
			return
		}
		c.reply(encode(roomFrame{Event: EventJoined, OrderID: in.OrderID}))

	case EventLeaveOrderRoom:
		c.chat.LeaveRoom(in.OrderID, c)
		c.reply(encode(roomFrame{Event: EventLeft, OrderID: in.OrderID}))

	case EventSendMessage:
		// Delivery happens through the room broadcast.
		_, err := c.chat.SendMessage(ctx, c.principal, ports.SendMessageInput{
			OrderID: in.OrderID,
			Content: in.Content,
			Nonce:   in.Nonce,
		})
		if err != nil {
			c.replyError(in, err)
		}

	default:
		c.reply(errorFrameFor(in.OrderID, domain.Invalid("unknown event "+in.Event)))
	}
}

func (c *Client) replyError(in inboundFrame, err error) {
	ev := c.log.Debug()
	if errors.Is(err, domain.ErrStorageFault) {
		ev = c.log.Error()
	}
	ev.Err(err).Str("event", in.Event).Str("order_id", in.OrderID).Msg("websocket request failed")
	c.reply(errorFrameFor(in.OrderID, err))
}

func (c *Client) reply(frame []byte) {
	c.hub.deliver(c, frame)
}

func (c *Client) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Msg("websocket write failed")
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(cfg.WriteWait))
			return
		}
	}
}
