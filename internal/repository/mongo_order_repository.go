package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// orderDocument is the stored shape of an order. The id is a store-assigned ObjectID.
type orderDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Items       []domain.OrderLine `bson:"items"`
	TotalAmount float64            `bson:"totalAmount"`
	Notes       string             `bson:"notes"`
	Customer    domain.Customer    `bson:"customerDetails"`
	Status      domain.OrderStatus `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d orderDocument) toDomain() *domain.Order {
	return &domain.Order{
		ID:          d.ID.Hex(),
		Lines:       d.Items,
		TotalAmount: d.TotalAmount,
		Customer:    d.Customer,
		Notes:       d.Notes,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
	}
}

type mongoOrderRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoOrderRepository(db *mongo.Database) *mongoOrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
		now:        time.Now,
	}
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, draft domain.OrderDraft) (string, error) {
	doc := orderDocument{
		ID:          primitive.NewObjectID(),
		Items:       draft.Lines(),
		TotalAmount: draft.TotalAmount(),
		Notes:       draft.Notes(),
		Customer:    draft.Customer(),
		Status:      draft.Status(),
		CreatedAt:   m.now().UTC(),
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return "", remote("failed to create order", err)
	}
	return doc.ID.Hex(), nil
}

func (m *mongoOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// a malformed id can never match a stored order
		return nil, ErrOrderNotFound
	}

	var doc orderDocument
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, remote("failed to get order", err)
	}
	return doc.toDomain(), nil
}
