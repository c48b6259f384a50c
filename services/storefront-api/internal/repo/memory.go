package repo

import (
	"context"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/shared/pkg/models"
)

// MemoryCollection keeps documents in insertion order. It is used by
// STORAGE_DRIVER=memory and by tests.
type MemoryCollection struct {
	mu   sync.RWMutex
	docs []models.Document
}

func NewMemory() *Store {
	return &Store{
		Products: &MemoryCollection{},
		Orders:   &MemoryCollection{},
		Reviews:  &MemoryCollection{},
		Users:    &MemoryCollection{},
	}
}

func (m *MemoryCollection) InsertOne(_ context.Context, doc models.Document) (InsertResult, error) {
	d := clone(doc)
	id, ok := d[models.FieldID]
	if !ok {
		id = primitive.NewObjectID()
		d[models.FieldID] = id
	}

	m.mu.Lock()
	m.docs = append(m.docs, d)
	m.mu.Unlock()

	return InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (m *MemoryCollection) Find(_ context.Context, f Filter) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Document{}
	for _, d := range m.docs {
		if f.matches(d) {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

func (m *MemoryCollection) FindOne(_ context.Context, f Filter) (models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.index(f); i >= 0 {
		return clone(m.docs[i]), nil
	}
	return nil, nil
}

func (m *MemoryCollection) UpdateOne(_ context.Context, f Filter, set models.Document, upsert bool) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := UpdateResult{Acknowledged: true}
	if i := m.index(f); i >= 0 {
		res.MatchedCount = 1
		d := m.docs[i]
		for k, v := range set {
			if old, ok := d[k]; !ok || !reflect.DeepEqual(old, v) {
				res.ModifiedCount = 1
			}
			d[k] = v
		}
		return res, nil
	}
	if !upsert {
		return res, nil
	}

	d := models.Document{}
	if f.Field != "" {
		d[f.Field] = f.Value
	}
	for k, v := range set {
		d[k] = v
	}
	if _, ok := d[models.FieldID]; !ok {
		d[models.FieldID] = primitive.NewObjectID()
	}
	m.docs = append(m.docs, d)
	res.UpsertedCount = 1
	res.UpsertedID = d[models.FieldID]
	return res, nil
}

func (m *MemoryCollection) DeleteOne(_ context.Context, f Filter) (DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := DeleteResult{Acknowledged: true}
	if i := m.index(f); i >= 0 {
		m.docs = append(m.docs[:i], m.docs[i+1:]...)
		res.DeletedCount = 1
	}
	return res, nil
}

// index must be called with mu held.
func (m *MemoryCollection) index(f Filter) int {
	for i, d := range m.docs {
		if f.matches(d) {
			return i
		}
	}
	return -1
}

func (f Filter) matches(d models.Document) bool {
	if f.Field == "" {
		return true
	}
	v, ok := d[f.Field]
	return ok && reflect.DeepEqual(v, f.Value)
}

func clone(d models.Document) models.Document {
	out := make(models.Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}
