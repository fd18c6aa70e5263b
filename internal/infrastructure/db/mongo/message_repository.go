package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// MessageRepository implements ports.MessageRepository using MongoDB.
type MessageRepository struct {
	coll *mongo.Collection
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection(collectionMessages)}
}

type messageDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	OrderID    string             `bson:"order_id"`
	SenderID   string             `bson:"sender_id"`
	ReceiverID string             `bson:"receiver_id"`
	Content    string             `bson:"content"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := messageDoc{
		OrderID:    m.OrderID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt.UTC(),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return domain.Storage("insert message", err)
	}
	m.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

// ListByOrder sorts by created_at and breaks ties on _id, which grows with
// insertion order.
func (r *MessageRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, domain.Storage("list messages", err)
	}
	defer cur.Close(ctx)

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Storage("decode messages", err)
	}

	out := make([]*domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.Message{
			ID:         d.ID.Hex(),
			OrderID:    d.OrderID,
			SenderID:   d.SenderID,
			ReceiverID: d.ReceiverID,
			Content:    d.Content,
			CreatedAt:  d.CreatedAt.UTC(),
		})
	}
	return out, nil
}
