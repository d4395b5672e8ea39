package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "orders"

// MongoOrderRepository implements OrderRepository on a MongoDB collection.
// orderId carries a unique index, so duplicate inserts fail in the server.
type MongoOrderRepository struct {
	coll *mongo.Collection
}

// NewMongoOrderRepository creates the repository and ensures its indexes.
func NewMongoOrderRepository(ctx context.Context, db *mongo.Database) (*MongoOrderRepository, error) {
	coll := db.Collection(ordersCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order indexes: %w", err)
	}
	return &MongoOrderRepository{coll: coll}, nil
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	prepareInsert(order, time.Now().UTC())

	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

func (r *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	if err := r.coll.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *MongoOrderRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	filter := bson.M{"userId": userID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	orders, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *MongoOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *MongoOrderRepository) Update(ctx context.Context, orderID string, patch models.OrderPatch) (*models.Order, error) {
	current, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkPatch(current, patch); err != nil {
		return nil, err
	}

	filter := bson.M{
		"orderId":        orderID,
		"status":         current.Status,
		"deliveryStatus": current.DeliveryStatus,
	}
	return r.updateOne(ctx, filter, patchSet(patch), ErrConcurrentUpdate)
}

func (r *MongoOrderRepository) Cancel(ctx context.Context, orderID, reason string) (*models.Order, error) {
	set := bson.M{
		"status":             models.PaymentCancelled,
		"deliveryStatus":     models.DeliveryReturned,
		"cancellationReason": reason,
	}
	order, err := r.updateOne(ctx, cancelFilter(orderID), set, ErrNotCancelable)
	if errors.Is(err, ErrNotCancelable) {
		if _, findErr := r.FindByOrderID(ctx, orderID); findErr != nil {
			return nil, findErr
		}
	}
	return order, err
}

func (r *MongoOrderRepository) MarkPaid(ctx context.Context, orderID string, info models.PaymentInfo) (*models.Order, bool, error) {
	filter := bson.M{
		"orderId": orderID,
		"status":  bson.M{"$in": models.PayableStatuses()},
	}
	set := bson.M{
		"status":      models.PaymentPaid,
		"paymentInfo": info,
	}
	order, err := r.updateOne(ctx, filter, set, ErrInvalidTransition)
	if err == nil {
		return order, true, nil
	}
	if !errors.Is(err, ErrInvalidTransition) {
		return nil, false, err
	}

	existing, findErr := r.FindByOrderID(ctx, orderID)
	if findErr != nil {
		return nil, false, findErr
	}
	if existing.Status == models.PaymentPaid {
		return existing, false, nil
	}
	return nil, false, ErrInvalidTransition
}

func (r *MongoOrderRepository) Delete(ctx context.Context, orderID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// updateOne applies set to the document matching filter and returns the
// updated document, or errNoMatch when nothing matched.
func (r *MongoOrderRepository) updateOne(ctx context.Context, filter, set bson.M, errNoMatch error) (*models.Order, error) {
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var o models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNoMatch
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MongoOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func prepareInsert(order *models.Order, now time.Time) {
	order.EnsureID()
	order.Status = models.PaymentInitiated
	order.DeliveryStatus = models.DeliveryUnshipped
	order.CreatedAt = now
	order.UpdatedAt = now
}

func patchSet(patch models.OrderPatch) bson.M {
	set := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.DeliveryStatus != nil {
		set["deliveryStatus"] = *patch.DeliveryStatus
	}
	if patch.ShippingProvider != nil {
		set["shippingProvider"] = *patch.ShippingProvider
	}
	if patch.TrackingID != nil {
		set["trackingId"] = *patch.TrackingID
	}
	if patch.CancellationReason != nil {
		set["cancellationReason"] = *patch.CancellationReason
	}
	return set
}

func cancelFilter(orderID string) bson.M {
	return bson.M{
		"orderId":        orderID,
		"deliveryStatus": bson.M{"$nin": models.NonCancelableDeliveryStatuses()},
		"status":         bson.M{"$nin": []models.PaymentStatus{models.PaymentFailed, models.PaymentCancelled}},
	}
}
