package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

func TestDecimal128_PreservesPrecision(t *testing.T) {
	for _, s := range []string{"0", "49.99", "-7.5", "123456789.123456789"} {
		in := decimal.RequireFromString(s)
		enc, err := toDecimal128(in)
		if err != nil {
			t.Fatalf("encode %s: %v", s, err)
		}
		out, err := fromDecimal128(enc)
		if err != nil {
			t.Fatalf("decode %s: %v", s, err)
		}
		if !out.Equal(in) {
			t.Fatalf("expected %s, got %s", in, out)
		}
	}
}

func TestOrderDoc_ToDomain(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	o := &domain.Order{
		ClientID:  "c1",
		BoosterID: "b1",
		Status:    domain.StatusInProgress,
		Price:     decimal.RequireFromString("10.25"),
		Type:      "rank",
		CreatedAt: now,
		UpdatedAt: now,
		StartedAt: &now,
	}
	doc, err := toOrderDoc(o)
	if err != nil {
		t.Fatalf("toOrderDoc: %v", err)
	}
	doc.ID = primitive.NewObjectID()

	back, err := doc.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if back.ID != doc.ID.Hex() || back.Status != o.Status || !back.Price.Equal(o.Price) || back.BoosterID != "b1" {
		t.Fatalf("unexpected order %+v", back)
	}
}

func TestPatchUpdate_AlwaysWritesBooster(t *testing.T) {
	now := time.Now().UTC()
	update := patchUpdate(domain.OrderPatch{Status: domain.StatusAvailable, UpdatedAt: now})
	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected $set document, got %#v", update)
	}
	if v, present := set["booster_id"]; !present || v != "" {
		t.Fatalf("expected booster_id cleared, got %#v", set["booster_id"])
	}
	if _, present := set["completed_at"]; present {
		t.Fatalf("completed_at must not be written when unset")
	}
}

func TestOrderUpdates_BumpVersion(t *testing.T) {
	now := time.Now().UTC()
	info := "evenings"
	for name, update := range map[string]bson.M{
		"patch":   patchUpdate(domain.OrderPatch{Status: domain.StatusAvailable, UpdatedAt: now}),
		"details": detailsUpdate(domain.OrderDetails{AdditionalInfo: &info, UpdatedAt: now}),
	} {
		inc, ok := update["$inc"].(bson.M)
		if !ok || inc["version"] != 1 {
			t.Fatalf("%s: expected version increment, got %#v", name, update["$inc"])
		}
	}
}

func TestDetailsUpdate_OnlyDescriptiveFields(t *testing.T) {
	login := "smurf"
	update := detailsUpdate(domain.OrderDetails{AccountLogin: &login, UpdatedAt: time.Now().UTC()})
	set := update["$set"].(bson.M)
	if set["account_login"] != "smurf" {
		t.Fatalf("expected account_login, got %#v", set)
	}
	for _, field := range []string{"status", "booster_id", "price", "type", "additional_info"} {
		if _, present := set[field]; present {
			t.Fatalf("%s must not be written, got %#v", field, set)
		}
	}
}

func TestToOrderDoc_StartsAtVersionOne(t *testing.T) {
	doc, err := toOrderDoc(&domain.Order{Price: decimal.Zero, Type: "rank"})
	if err != nil {
		t.Fatalf("toOrderDoc: %v", err)
	}
	if doc.Version != 1 {
		t.Fatalf("expected version 1, got %d", doc.Version)
	}
}

func TestEventDoc(t *testing.T) {
	doc, err := eventDoc(&domain.OrderEvent{
		OrderID:    "o1",
		Transition: domain.TransitionComplete,
		From:       domain.StatusInProgress,
		To:         domain.StatusCompleted,
		Amount:     decimal.RequireFromString("49.99"),
		OccurredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("eventDoc: %v", err)
	}
	if doc["transition"] != "complete" || doc["to"] != "Completed" {
		t.Fatalf("unexpected doc %#v", doc)
	}
	if _, ok := doc["amount"].(primitive.Decimal128); !ok {
		t.Fatalf("expected Decimal128 amount, got %#v", doc["amount"])
	}
	if _, ok := doc["previous_booster_id"]; ok {
		t.Fatalf("previous_booster_id should be omitted")
	}
}

func TestTxError(t *testing.T) {
	if txError("op", nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if err := txError("op", domain.ErrConflict); err != domain.ErrConflict {
		t.Fatalf("expected ErrConflict passthrough, got %v", err)
	}
	if err := txError("op", domain.ErrBoosterNotFound); err != domain.ErrBoosterNotFound {
		t.Fatalf("expected ErrBoosterNotFound passthrough, got %v", err)
	}
	raw := errors.New("commit failed")
	err := txError("op", raw)
	if !errors.Is(err, domain.ErrStorageFault) || !errors.Is(err, raw) {
		t.Fatalf("expected storage fault wrapping driver error, got %v", err)
	}
}

func TestObjectID_Malformed(t *testing.T) {
	if _, ok := objectID("not-hex"); ok {
		t.Fatal("expected malformed id to be rejected")
	}
	oid := primitive.NewObjectID()
	if got, ok := objectID(oid.Hex()); !ok || got != oid {
		t.Fatal("expected valid id to parse")
	}
}
