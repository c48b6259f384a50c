package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"storefront-api/shared/pkg/models"
)

type MongoCollection struct {
	C *mongo.Collection
}

// OpenMongo connects and pings once. The returned Store disconnects the
// client on Close.
func OpenMongo(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return NewMongoStore(client, database), nil
}

func NewMongoStore(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		Products: &MongoCollection{C: db.Collection(CollectionProducts)},
		Orders:   &MongoCollection{C: db.Collection(CollectionOrders)},
		Reviews:  &MongoCollection{C: db.Collection(CollectionReviews)},
		Users:    &MongoCollection{C: db.Collection(CollectionUsers)},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}
}

func (m *MongoCollection) InsertOne(ctx context.Context, doc models.Document) (InsertResult, error) {
	res, err := m.C.InsertOne(ctx, doc)
	if err != nil {
		return InsertResult{}, err
	}
	return InsertResult{Acknowledged: true, InsertedID: res.InsertedID}, nil
}

func (m *MongoCollection) Find(ctx context.Context, f Filter) ([]models.Document, error) {
	cur, err := m.C.Find(ctx, f.bson())
	if err != nil {
		return nil, err
	}
	docs := []models.Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (m *MongoCollection) FindOne(ctx context.Context, f Filter) (models.Document, error) {
	var doc models.Document
	err := m.C.FindOne(ctx, f.bson()).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *MongoCollection) UpdateOne(ctx context.Context, f Filter, set models.Document, upsert bool) (UpdateResult, error) {
	res, err := m.C.UpdateOne(ctx, f.bson(), bson.M{"$set": set}, options.Update().SetUpsert(upsert))
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

func (m *MongoCollection) DeleteOne(ctx context.Context, f Filter) (DeleteResult, error) {
	res, err := m.C.DeleteOne(ctx, f.bson())
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}
