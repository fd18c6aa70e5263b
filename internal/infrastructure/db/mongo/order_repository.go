package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// OrderRepository implements ports.OrderRepository. booster_id is always
// present (empty when unassigned) so conditional writes can match on it.
type OrderRepository struct {
	client   *mongo.Client
	orders   *mongo.Collection
	users    *mongo.Collection
	messages *mongo.Collection
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{
		client:   db.Client(),
		orders:   db.Collection(collectionOrders),
		users:    db.Collection(collectionUsers),
		messages: db.Collection(collectionMessages),
	}
}

type orderDoc struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	ClientID       string               `bson:"client_id"`
	BoosterID      string               `bson:"booster_id"`
	Status         string               `bson:"status"`
	Price          primitive.Decimal128 `bson:"price"`
	Type           string               `bson:"type"`
	AccountLogin   string               `bson:"account_login,omitempty"`
	AdditionalInfo string               `bson:"additional_info,omitempty"`
	Feedback       string               `bson:"feedback,omitempty"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
	StartedAt      *time.Time           `bson:"started_at,omitempty"`
	CompletedAt    *time.Time           `bson:"completed_at,omitempty"`
	Version        int64                `bson:"version"`
}

func toOrderDoc(o *domain.Order) (orderDoc, error) {
	price, err := toDecimal128(o.Price)
	if err != nil {
		return orderDoc{}, err
	}
	return orderDoc{
		ClientID:       o.ClientID,
		BoosterID:      o.BoosterID,
		Status:         string(o.Status),
		Price:          price,
		Type:           o.Type,
		AccountLogin:   o.AccountLogin,
		AdditionalInfo: o.AdditionalInfo,
		Feedback:       o.Feedback,
		CreatedAt:      o.CreatedAt.UTC(),
		UpdatedAt:      o.UpdatedAt.UTC(),
		StartedAt:      o.StartedAt,
		CompletedAt:    o.CompletedAt,
		Version:        max(o.Version, 1),
	}, nil
}

func (d orderDoc) toDomain() (*domain.Order, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Order{
		ID:             d.ID.Hex(),
		ClientID:       d.ClientID,
		BoosterID:      d.BoosterID,
		Status:         domain.OrderStatus(d.Status),
		Price:          price,
		Type:           d.Type,
		AccountLogin:   d.AccountLogin,
		AdditionalInfo: d.AdditionalInfo,
		Feedback:       d.Feedback,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		StartedAt:      d.StartedAt,
		CompletedAt:    d.CompletedAt,
		Version:        d.Version,
	}, nil
}

func patchUpdate(p domain.OrderPatch) bson.M {
	set := bson.M{
		"status":     string(p.Status),
		"booster_id": p.BoosterID,
		"updated_at": p.UpdatedAt.UTC(),
	}
	if p.StartedAt != nil {
		set["started_at"] = p.StartedAt.UTC()
	}
	if p.CompletedAt != nil {
		set["completed_at"] = p.CompletedAt.UTC()
	}
	return bson.M{"$set": set, "$inc": bson.M{"version": 1}}
}

func detailsUpdate(d domain.OrderDetails) bson.M {
	set := bson.M{"updated_at": d.UpdatedAt.UTC()}
	if d.Type != nil {
		set["type"] = *d.Type
	}
	if d.AccountLogin != nil {
		set["account_login"] = *d.AccountLogin
	}
	if d.AdditionalInfo != nil {
		set["additional_info"] = *d.AdditionalInfo
	}
	return bson.M{"$set": set, "$inc": bson.M{"version": 1}}
}

// Create inserts a new order document.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toOrderDoc(o)
	if err != nil {
		return domain.Invalid(err.Error())
	}
	res, err := r.orders.InsertOne(ctx, doc)
	if err != nil {
		return domain.Storage("insert order", err)
	}
	o.ID = res.InsertedID.(primitive.ObjectID).Hex()
	o.Version = doc.Version
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDoc
	if err := r.orders.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Storage("find order", err)
	}
	o, err := doc.toDomain()
	if err != nil {
		return nil, domain.Storage("decode order", err)
	}
	return o, nil
}

// UpdateIf applies patch with a single findOneAndUpdate whose filter carries
// the expected status and booster.
func (r *OrderRepository) UpdateIf(ctx context.Context, id string, expect domain.OrderExpectation, patch domain.OrderPatch) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	filter := bson.M{
		"_id":        oid,
		"status":     string(expect.Status),
		"booster_id": expect.BoosterID,
	}
	return r.conditionalUpdate(ctx, r.orders, oid, filter, patchUpdate(patch))
}

// conditionalUpdate runs findOneAndUpdate and, when nothing matched, tells a
// missing order apart from a failed expectation.
func (r *OrderRepository) conditionalUpdate(ctx context.Context, coll *mongo.Collection, oid primitive.ObjectID, filter, update bson.M) (*domain.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDoc
	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := coll.CountDocuments(ctx, bson.M{"_id": oid})
		if cerr != nil {
			return nil, domain.Storage("count order", cerr)
		}
		if n == 0 {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.ErrConflict
	}
	if err != nil {
		return nil, domain.Storage("update order", err)
	}

	o, err := doc.toDomain()
	if err != nil {
		return nil, domain.Storage("decode order", err)
	}
	return o, nil
}

type completion struct {
	order   *domain.Order
	balance decimal.Decimal
}

// CompleteAndCredit runs the status update and the wallet $inc in one
// multi-document transaction.
func (r *OrderRepository) CompleteAndCredit(ctx context.Context, id, boosterID string, at time.Time) (*domain.Order, decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return nil, decimal.Zero, domain.ErrOrderNotFound
	}
	boosterOID, ok := objectID(boosterID)
	if !ok {
		return nil, decimal.Zero, domain.ErrBoosterNotFound
	}

	session, err := r.client.StartSession()
	if err != nil {
		return nil, decimal.Zero, domain.Storage("start session", err)
	}
	defer session.EndSession(ctx)

	res, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		at = at.UTC()
		filter := bson.M{
			"_id":        oid,
			"status":     string(domain.StatusInProgress),
			"booster_id": boosterID,
		}
		update := patchUpdate(domain.OrderPatch{
			Status:      domain.StatusCompleted,
			BoosterID:   boosterID,
			UpdatedAt:   at,
			CompletedAt: &at,
		})
		order, err := r.conditionalUpdate(sc, r.orders, oid, filter, update)
		if err != nil {
			return nil, err
		}

		amount, err := toDecimal128(order.Price)
		if err != nil {
			return nil, domain.Storage("encode price", err)
		}
		var user userDoc
		err = r.users.FindOneAndUpdate(sc,
			bson.M{"_id": boosterOID, "role": string(domain.RoleBooster)},
			bson.M{"$inc": bson.M{"wallet": amount}, "$set": bson.M{"updated_at": at}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBoosterNotFound
		}
		if err != nil {
			return nil, domain.Storage("credit wallet", err)
		}
		balance, err := fromDecimal128(user.Wallet)
		if err != nil {
			return nil, domain.Storage("decode wallet", err)
		}
		return completion{order: order, balance: balance}, nil
	})
	if err != nil {
		return nil, decimal.Zero, txError("complete transaction", err)
	}

	c := res.(completion)
	return c.order, c.balance, nil
}

func (r *OrderRepository) SetFeedback(ctx context.Context, id, clientID, feedback string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	filter := bson.M{"_id": oid, "client_id": clientID}
	update := bson.M{
		"$set": bson.M{"feedback": feedback, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}

	guarded := bson.M{"_id": oid, "client_id": clientID, "status": string(domain.StatusCompleted)}
	var doc orderDoc
	err := r.orders.FindOneAndUpdate(ctx, guarded, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := r.orders.CountDocuments(ctx, filter)
		if cerr != nil {
			return nil, domain.Storage("count order", cerr)
		}
		if n == 0 {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Precondition("feedback is only accepted for completed orders")
	}
	if err != nil {
		return nil, domain.Storage("set feedback", err)
	}
	o, err := doc.toDomain()
	if err != nil {
		return nil, domain.Storage("decode order", err)
	}
	return o, nil
}

// UpdateDetails sets descriptive fields only. The update document never
// names status or booster_id.
func (r *OrderRepository) UpdateDetails(ctx context.Context, id string, details domain.OrderDetails) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return r.conditionalUpdate(ctx, r.orders, oid, bson.M{"_id": oid}, detailsUpdate(details))
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context, f ports.ListOrdersFilter) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.ClientID != "" {
		filter["client_id"] = f.ClientID
	}
	if f.BoosterID != "" {
		filter["booster_id"] = f.BoosterID
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := r.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.Storage("list orders", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Storage("decode orders", err)
	}

	out := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, domain.Storage("decode order", err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Delete removes the order and its chat history in one transaction.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return domain.ErrOrderNotFound
	}

	session, err := r.client.StartSession()
	if err != nil {
		return domain.Storage("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.orders.DeleteOne(sc, bson.M{"_id": oid})
		if err != nil {
			return nil, domain.Storage("delete order", err)
		}
		if res.DeletedCount == 0 {
			return nil, domain.ErrOrderNotFound
		}
		if _, err := r.messages.DeleteMany(sc, bson.M{"order_id": id}); err != nil {
			return nil, domain.Storage("delete messages", err)
		}
		return nil, nil
	})
	return txError("delete transaction", err)
}
