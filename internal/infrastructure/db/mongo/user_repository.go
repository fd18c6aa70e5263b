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

type UserRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	orders *mongo.Collection
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		client: db.Client(),
		coll:   db.Collection(collectionUsers),
		orders: db.Collection(collectionOrders),
	}
}

type userDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Email        string               `bson:"email"`
	FirstName    string               `bson:"first_name,omitempty"`
	LastName     string               `bson:"last_name,omitempty"`
	PasswordHash string               `bson:"password_hash"`
	Role         string               `bson:"role"`
	Wallet       primitive.Decimal128 `bson:"wallet"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func (d userDoc) toDomain() (*domain.User, error) {
	wallet, err := fromDecimal128(d.Wallet)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		Wallet:       wallet,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	wallet, err := toDecimal128(user.Wallet)
	if err != nil {
		return nil, domain.Invalid(err.Error())
	}
	doc := userDoc{
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		Wallet:       wallet,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, domain.Storage("insert user", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain()
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Storage("find user", err)
	}
	u, err := doc.toDomain()
	if err != nil {
		return nil, domain.Storage("decode user", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if role != "" {
		filter["role"] = string(role)
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Storage("decode users", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.toDomain()
		if err != nil {
			return nil, domain.Storage("decode user", err)
		}
		out = append(out, u)
	}
	return out, nil
}

// Update sets the given fields only. The update document has no path to
// role or wallet.
func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	set := bson.M{"updated_at": upd.UpdatedAt.UTC()}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.FirstName != nil {
		set["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["last_name"] = *upd.LastName
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}

	var doc userDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, domain.ErrUserExists
	case err != nil:
		return nil, domain.Storage("update user", err)
	}
	u, err := doc.toDomain()
	if err != nil {
		return nil, domain.Storage("decode user", err)
	}
	return u, nil
}

// Delete checks for referencing orders and removes the user inside one
// transaction, so an order created in between aborts the delete.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(id)
	if !ok {
		return domain.ErrUserNotFound
	}

	session, err := r.client.StartSession()
	if err != nil {
		return domain.Storage("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		n, err := r.orders.CountDocuments(sc, bson.M{"$or": bson.A{
			bson.M{"client_id": id},
			bson.M{"booster_id": id},
		}})
		if err != nil {
			return nil, domain.Storage("count user orders", err)
		}
		if n > 0 {
			return nil, domain.Precondition("user is referenced by orders")
		}
		res, err := r.coll.DeleteOne(sc, bson.M{"_id": oid})
		if err != nil {
			return nil, domain.Storage("delete user", err)
		}
		if res.DeletedCount == 0 {
			return nil, domain.ErrUserNotFound
		}
		return nil, nil
	})
	return txError("delete user transaction", err)
}

// CreditWallet applies $inc on the Decimal128 wallet so concurrent
// adjustments never overwrite each other.
func (r *UserRepository) CreditWallet(ctx context.Context, boosterID string, amount decimal.Decimal) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(boosterID)
	if !ok {
		return decimal.Zero, domain.ErrBoosterNotFound
	}
	inc, err := toDecimal128(amount)
	if err != nil {
		return decimal.Zero, domain.Invalid(err.Error())
	}

	var doc userDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "role": string(domain.RoleBooster)},
		bson.M{"$inc": bson.M{"wallet": inc}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return decimal.Zero, domain.ErrBoosterNotFound
	}
	if err != nil {
		return decimal.Zero, domain.Storage("credit wallet", err)
	}

	balance, err := fromDecimal128(doc.Wallet)
	if err != nil {
		return decimal.Zero, domain.Storage("decode wallet", err)
	}
	return balance, nil
}
