package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// MessageRepository implements ports.MessageRepository.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) error {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, order_id, sender_id, receiver_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, m.OrderID, m.SenderID, m.ReceiverID, m.Content, m.CreatedAt,
	)
	if err != nil {
		return mapError("insert message", err)
	}
	m.ID = id
	return nil
}

// ListByOrder breaks created_at ties with the identity column, which follows
// insertion order.
func (r *MessageRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, sender_id, receiver_id, content, created_at
		 FROM messages
		 WHERE order_id = $1
		 ORDER BY created_at, seq`,
		orderID,
	)
	if err != nil {
		return nil, domain.Storage("select messages", err)
	}
	defer rows.Close()

	out := make([]*domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, domain.Storage("scan message", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("rows error", err)
	}
	return out, nil
}

// EventRepository implements ports.EventRepository.
type EventRepository struct {
	pool *pgxpool.Pool
}

var _ ports.EventRepository = (*EventRepository)(nil)

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) InsertEvent(ctx context.Context, ev *domain.OrderEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO order_events (order_id, transition, from_status, to_status, actor_id, client_id,
			booster_id, previous_booster_id, amount, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10)`,
		ev.OrderID, string(ev.Transition), string(ev.From), string(ev.To), ev.ActorID, ev.ClientID,
		ev.BoosterID, ev.PreviousBoosterID, ev.Amount.String(), ev.OccurredAt,
	)
	if err != nil {
		return domain.Storage("insert event", err)
	}
	return nil
}
