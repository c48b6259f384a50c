package models

import "go.mongodb.org/mongo-driver/bson"

// Document is a schemaless record as stored in a collection. Values keep
// their BSON types (ObjectID, int32, float64, nested documents).
type Document = bson.M

const FieldID = "_id"
