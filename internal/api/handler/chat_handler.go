package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// SocketServer upgrades a request into a live chat connection and serves it
// until it closes.
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, p domain.Principal, chat ports.ChatService) error
}

// ChatHandler serves the order chat over REST and websockets.
type ChatHandler struct {
	chat    ports.ChatService
	sockets SocketServer
	log     zerolog.Logger
}

func NewChatHandler(chat ports.ChatService, sockets SocketServer, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, sockets: sockets, log: log}
}

// History returns the messages of an order in the order they were sent.
//
// @Summary      Chat history
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        orderId  path      string  true  "Order ID"
// @Success      200      {object}  listMessagesResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /chat/orders/{orderId} [get]
func (h *ChatHandler) History(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	msgs, err := h.chat.History(c.Request().Context(), p, c.Param("orderId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listMessagesResponse{Data: msgs, Count: len(msgs)})
}

// Send stores a message and relays it to the order room.
//
// @Summary      Send a chat message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId  path      string              true  "Order ID"
// @Param        body     body      sendMessageRequest  true  "Message"
// @Success      201      {object}  domain.Message
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      409      {object}  errorResponse
// @Router       /chat/orders/{orderId} [post]
func (h *ChatHandler) Send(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.chat.SendMessage(c.Request().Context(), p, ports.SendMessageInput{
		OrderID: c.Param("orderId"),
		Content: req.Content,
		Nonce:   req.Nonce,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// WebSocket upgrades to the realtime chat protocol.
//
// @Summary      Realtime chat
// @Description  Frames: joinOrderRoom, leaveOrderRoom, sendMessage in; receiveMessage, orderStatus, joined, left, error out.
// @Tags         chat
// @Security     BearerAuth
// @Param        token  query  string  false  "JWT when the Authorization header cannot be set"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Router       /ws [get]
func (h *ChatHandler) WebSocket(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.sockets.ServeWS(c.Response(), c.Request(), p, h.chat); err != nil {
		// The upgrader has already answered the request.
		h.log.Debug().Err(err).Str("principal_id", p.ID).Msg("websocket upgrade failed")
	}
	return nil
}
