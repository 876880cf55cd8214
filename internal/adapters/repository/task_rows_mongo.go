package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskmaster/daybook/internal/ports"
)

// TaskRowsCollection is the Mongo collection holding task rows
const TaskRowsCollection = "task_rows"

// MongoTaskRowRepository implements the TaskRowStore interface on MongoDB
type MongoTaskRowRepository struct {
	collection *mongo.Collection
}

// NewMongoTaskRowRepository creates a new Mongo task row store
func NewMongoTaskRowRepository(db *mongo.Database) *MongoTaskRowRepository {
	return &MongoTaskRowRepository{collection: db.Collection(TaskRowsCollection)}
}

// EnsureIndexes creates the (user_id, date, position) index used by ListByUser
func (r *MongoTaskRowRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "position", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create task_rows index: %w", err)
	}
	return nil
}

func (r *MongoTaskRowRepository) ListByUser(ctx context.Context, userID string) ([]ports.TaskRow, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: 1},
		{Key: "position", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list task rows: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []ports.TaskRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode task rows: %w", err)
	}
	return rows, nil
}

func (r *MongoTaskRowRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete task rows: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoTaskRowRepository) InsertBatch(ctx context.Context, rows []ports.TaskRow) error {
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, len(rows))
	for i := range rows {
		docs[i] = rows[i]
	}

	if _, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert task rows: %w", err)
	}
	return nil
}
