package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/shared/pkg/models"
)

const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
	CollectionReviews  = "reviews"
	CollectionUsers    = "users"
)

var ErrInvalidID = errors.New("invalid identifier")

// ParseID converts a path parameter into the native identifier type.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// Filter is a single top-level equality match. The zero Filter matches
// every document.
type Filter struct {
	Field string
	Value any
}

var All = Filter{}

func ByID(id primitive.ObjectID) Filter {
	return Filter{Field: models.FieldID, Value: id}
}

func ByField(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

func (f Filter) bson() bson.M {
	if f.Field == "" {
		return bson.M{}
	}
	return bson.M{f.Field: f.Value}
}

type InsertResult struct {
	Acknowledged bool `json:"acknowledged"`
	InsertedID   any  `json:"insertedId"`
}

type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
	UpsertedCount int64 `json:"upsertedCount"`
	UpsertedID    any   `json:"upsertedId"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Collection is one named set of documents. Every method performs exactly
// one storage operation.
type Collection interface {
	InsertOne(ctx context.Context, doc models.Document) (InsertResult, error)
	Find(ctx context.Context, f Filter) ([]models.Document, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, f Filter) (models.Document, error)
	// UpdateOne applies set as a $set to the first match. With upsert a
	// document built from the filter and set is inserted when nothing
	// matches.
	UpdateOne(ctx context.Context, f Filter, set models.Document, upsert bool) (UpdateResult, error)
	DeleteOne(ctx context.Context, f Filter) (DeleteResult, error)
}
