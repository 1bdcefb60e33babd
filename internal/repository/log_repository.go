package repository

import (
	"context"
	"sync"
	"time"

	"ecoplate-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBAttemptLog implements AttemptLog for MongoDB.
type MongoDBAttemptLog struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBAttemptLog connects and returns a MongoDB-backed attempt log.
func NewMongoDBAttemptLog(ctx context.Context, uri, dbName, collectionName string) (*MongoDBAttemptLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	collection := client.Database(dbName).Collection(collectionName)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoDBAttemptLog{client: client, collection: collection}, nil
}

// InsertAttempt appends one attempt.
func (r *MongoDBAttemptLog) InsertAttempt(ctx context.Context, a *model.RedemptionAttempt) error {
	_, err := r.collection.InsertOne(ctx, a)
	return err
}

// ListAttempts returns attempts newest first with the total count.
func (r *MongoDBAttemptLog) ListAttempts(ctx context.Context, limit, offset int) ([]model.RedemptionAttempt, int64, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})
	findOptions.SetLimit(int64(limit))
	findOptions.SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var attempts []model.RedemptionAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, 0, err
	}
	if attempts == nil {
		attempts = []model.RedemptionAttempt{}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	return attempts, count, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBAttemptLog) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// MemoryAttemptLog keeps a bounded in-process attempt log. It is used when
// no MongoDB URI is configured. Once full it overwrites the oldest slot.
type MemoryAttemptLog struct {
	mu       sync.RWMutex
	attempts []model.RedemptionAttempt
	next     int // slot overwritten by the next insert once full
	max      int
}

// NewMemoryAttemptLog keeps at most max attempts, dropping the oldest.
func NewMemoryAttemptLog(max int) *MemoryAttemptLog {
	if max <= 0 {
		max = 10000
	}
	return &MemoryAttemptLog{max: max}
}

// InsertAttempt records one attempt.
func (r *MemoryAttemptLog) InsertAttempt(_ context.Context, a *model.RedemptionAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) < r.max {
		r.attempts = append(r.attempts, *a)
		return nil
	}
	r.attempts[r.next] = *a
	r.next = (r.next + 1) % r.max
	return nil
}

// ListAttempts returns attempts newest first with the total count.
func (r *MemoryAttemptLog) ListAttempts(_ context.Context, limit, offset int) ([]model.RedemptionAttempt, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.attempts)
	out := []model.RedemptionAttempt{}
	for i := offset; i < total && len(out) < limit; i++ {
		idx := ((r.next-1-i)%total + total) % total
		out = append(out, r.attempts[idx])
	}
	return out, int64(total), nil
}

// Close is a no-op.
func (r *MemoryAttemptLog) Close() error { return nil }
