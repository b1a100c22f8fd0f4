package mongostore

import (
	"context"
	"fmt"

	"go-storefront/models"
	"go-storefront/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Orders stores placed orders.
type Orders struct {
	Collection *mongo.Collection
}

func NewOrders(db *mongo.Database) *Orders {
	return &Orders{Collection: db.Collection("orders")}
}

func (o *Orders) Insert(ctx context.Context, order models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if _, err := o.Collection.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

func (o *Orders) Get(ctx context.Context, id string) (models.Order, error) {
	return findOne[models.Order](ctx, o.Collection, id)
}

// ListByEmail returns a customer's orders, newest first.
func (o *Orders) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findAll[models.Order](ctx, o.Collection, bson.M{"customer.email": email}, opts)
}

func (o *Orders) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := o.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("update order %s status: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TransitionStatus matches on both id and the expected current status, so
// concurrent callers cannot both move the same order.
func (o *Orders) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := o.Collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return false, fmt.Errorf("move order %s from %s to %s: %w", id, from, to, err)
	}
	return res.MatchedCount == 1, nil
}
