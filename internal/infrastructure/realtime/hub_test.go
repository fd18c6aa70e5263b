package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

type fakeMember struct {
	id        string
	principal string
	queue     chan []byte

	mu     sync.Mutex
	closed bool
}

func newFakeMember(id, principal string, buffer int) *fakeMember {
	return &fakeMember{id: id, principal: principal, queue: make(chan []byte, buffer)}
}

func (m *fakeMember) ID() string          { return m.id }
func (m *fakeMember) PrincipalID() string { return m.principal }

func (m *fakeMember) enqueue(frame []byte) bool {
	select {
	case m.queue <- frame:
		return true
	default:
		return false
	}
}

func (m *fakeMember) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *fakeMember) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *fakeMember) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case raw := <-m.queue:
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return out
	default:
		t.Fatalf("member %s has no pending frame", m.id)
		return nil
	}
}

func TestHub_BroadcastReachesRoomMembersOnly(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	client := newFakeMember("c1", "client", 4)
	booster := newFakeMember("c2", "booster", 4)
	outsider := newFakeMember("c3", "other", 4)

	h.Join("o1", client)
	h.Join("o1", booster)
	h.Join("o2", outsider)

	h.BroadcastMessage("o1", &domain.Message{ID: "m1", OrderID: "o1", SenderID: "client", ReceiverID: "booster", Content: "hi"})

	for _, m := range []*fakeMember{client, booster} {
		frame := m.next(t)
		if frame["event"] != EventReceiveMessage {
			t.Fatalf("expected receiveMessage, got %v", frame["event"])
		}
		msg := frame["message"].(map[string]any)
		if msg["content"] != "hi" || msg["orderId"] != "o1" {
			t.Fatalf("unexpected message payload %v", msg)
		}
	}
	if len(outsider.queue) != 0 {
		t.Fatal("member of another room must not receive the frame")
	}
}

func TestHub_JoinTwiceIsIdempotent(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	m := newFakeMember("c1", "client", 4)

	h.Join("o1", m)
	h.Join("o1", m)
	if h.RoomSize("o1") != 1 {
		t.Fatalf("expected 1 member, got %d", h.RoomSize("o1"))
	}

	h.BroadcastOrder("o1", &domain.Order{ID: "o1", Status: domain.StatusAvailable})
	if len(m.queue) != 1 {
		t.Fatalf("expected a single frame, got %d", len(m.queue))
	}
}

func TestHub_LeaveAndDisconnect(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	m := newFakeMember("c1", "client", 4)

	h.Join("o1", m)
	h.Join("o2", m)
	h.Leave("o1", m)
	if h.RoomSize("o1") != 0 || h.RoomSize("o2") != 1 {
		t.Fatalf("unexpected sizes o1=%d o2=%d", h.RoomSize("o1"), h.RoomSize("o2"))
	}

	h.Disconnect(m)
	if h.RoomSize("o2") != 0 {
		t.Fatal("disconnect must remove the member from every room")
	}
}

func TestHub_EvictRemovesEveryConnectionOfPrincipal(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	tab1 := newFakeMember("c1", "booster", 4)
	tab2 := newFakeMember("c2", "booster", 4)
	client := newFakeMember("c3", "client", 4)
	for _, m := range []*fakeMember{tab1, tab2, client} {
		h.Join("o1", m)
	}

	h.Evict("o1", "booster")

	if h.RoomSize("o1") != 1 {
		t.Fatalf("expected only the client to remain, got %d", h.RoomSize("o1"))
	}
	for _, m := range []*fakeMember{tab1, tab2} {
		if frame := m.next(t); frame["event"] != EventLeft || frame["orderId"] != "o1" {
			t.Fatalf("expected left frame, got %v", frame)
		}
	}

	h.BroadcastOrder("o1", &domain.Order{ID: "o1", Status: domain.StatusAvailable})
	if len(tab1.queue) != 0 || len(tab2.queue) != 0 {
		t.Fatal("evicted connections must not receive further frames")
	}
	if client.next(t)["event"] != EventOrderStatus {
		t.Fatal("client should still receive order updates")
	}
}

func TestHub_SlowConsumerIsDropped(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	slow := newFakeMember("slow", "client", 1)
	fast := newFakeMember("fast", "booster", 8)
	h.Join("o1", slow)
	h.Join("o1", fast)

	for i := 0; i < 3; i++ {
		h.BroadcastMessage("o1", &domain.Message{ID: "m", OrderID: "o1", Content: "x"})
	}

	if !slow.isClosed() {
		t.Fatal("slow consumer should have been closed")
	}
	if h.RoomSize("o1") != 1 {
		t.Fatalf("slow consumer should have left the room, size=%d", h.RoomSize("o1"))
	}
	if len(fast.queue) != 3 {
		t.Fatalf("fast consumer should receive every frame, got %d", len(fast.queue))
	}
}

func TestHub_ShutdownRejectsNewConnections(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	m := newFakeMember("c1", "client", 1)
	if !h.register(m) {
		t.Fatal("register before shutdown should succeed")
	}

	h.Shutdown()

	if !m.isClosed() {
		t.Fatal("shutdown must close registered connections")
	}
	if h.register(newFakeMember("c2", "client", 1)) {
		t.Fatal("register after shutdown must fail")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.WriteWait != 10*time.Second || cfg.PongWait != 60*time.Second || cfg.SendBuffer != 64 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.pingPeriod() >= cfg.PongWait {
		t.Fatal("ping period must be shorter than the pong deadline")
	}
}

func TestErrorFrameHidesStorageDetails(t *testing.T) {
	var frame errorFrame
	raw := errorFrameFor("o1", domain.Storage("insert message", context.DeadlineExceeded))
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Code != domain.CodeStorageFault || strings.Contains(frame.Message, "deadline") {
		t.Fatalf("unexpected frame %+v", frame)
	}

	raw = errorFrameFor("o1", domain.ErrNoReceiver)
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Code != domain.CodeNoReceiver {
		t.Fatalf("unexpected code %q", frame.Code)
	}
}

// roomChat is a minimal relay: any principal may join, and every message is
// broadcast as is.
type roomChat struct {
	hub *Hub
}

func (c *roomChat) JoinRoom(_ context.Context, _ domain.Principal, orderID string, m ports.RoomMember) error {
	if orderID == "missing" {
		return domain.ErrOrderNotFound
	}
	c.hub.Join(orderID, m)
	return nil
}

func (c *roomChat) LeaveRoom(orderID string, m ports.RoomMember) { c.hub.Leave(orderID, m) }
func (c *roomChat) Disconnect(m ports.RoomMember)                { c.hub.Disconnect(m) }

func (c *roomChat) SendMessage(_ context.Context, p domain.Principal, in ports.SendMessageInput) (*domain.Message, error) {
	msg := &domain.Message{ID: "m1", OrderID: in.OrderID, SenderID: p.ID, Content: in.Content, CreatedAt: time.Now().UTC()}
	c.hub.BroadcastMessage(in.OrderID, msg)
	return msg, nil
}

func (c *roomChat) History(context.Context, domain.Principal, string) ([]*domain.Message, error) {
	return nil, nil
}

func dial(t *testing.T, srv *httptest.Server, principal string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?p=" + principal
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var out map[string]any
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func TestServeWS_RoundTrip(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	chat := &roomChat{hub: h}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := domain.Principal{ID: r.URL.Query().Get("p"), Role: domain.RoleClient}
		h.ServeWS(w, r, p, chat)
	}))
	defer srv.Close()
	defer h.Shutdown()

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	for _, conn := range []*websocket.Conn{alice, bob} {
		if err := conn.WriteJSON(map[string]string{"event": EventJoinOrderRoom, "orderId": "o1"}); err != nil {
			t.Fatalf("write join: %v", err)
		}
		if frame := readFrame(t, conn); frame["event"] != EventJoined {
			t.Fatalf("expected joined, got %v", frame)
		}
	}

	if err := alice.WriteJSON(map[string]string{"event": EventSendMessage, "orderId": "o1", "content": "gg"}); err != nil {
		t.Fatalf("write message: %v", err)
	}
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn)
		if frame["event"] != EventReceiveMessage {
			t.Fatalf("expected receiveMessage, got %v", frame)
		}
		if msg := frame["message"].(map[string]any); msg["content"] != "gg" || msg["senderId"] != "alice" {
			t.Fatalf("unexpected message %v", msg)
		}
	}

	if err := bob.WriteJSON(map[string]string{"event": EventJoinOrderRoom, "orderId": "missing"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	frame := readFrame(t, bob)
	if frame["event"] != EventError || frame["code"] != domain.CodeNotFound {
		t.Fatalf("expected not_found error frame, got %v", frame)
	}

	if err := bob.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if frame := readFrame(t, bob); frame["code"] != domain.CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %v", frame)
	}
}
