package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const runsCollection = "runs"

// mongoRun is the BSON document shape for a persisted run.
type mongoRun struct {
	ID           string    `bson:"_id"`
	Model        string    `bson:"model"`
	Provider     string    `bson:"provider"`
	Fingerprint  string    `bson:"fingerprint"`
	Output       string    `bson:"output"`
	ErrorType    string    `bson:"error_type"`
	ErrorMessage string    `bson:"error_message"`
	StatusCode   int       `bson:"status_code"`
	LatencyMS    int64     `bson:"latency_ms"`
	CreatedAt    time.Time `bson:"created_at"`
}

// mongoStore implements Store on a MongoDB collection.
type mongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDB connects to MongoDB and ensures the runs indexes exist.
func NewMongoDB(ctx context.Context, url, database string) (Store, error) {
	if url == "" {
		return nil, fmt.Errorf("mongodb url is required")
	}
	if database == "" {
		database = "promptrun"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(runsCollection)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "fingerprint", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck
		return nil, fmt.Errorf("failed to create runs indexes: %w", err)
	}
	return &mongoStore{client: client, collection: coll}, nil
}

func (s *mongoStore) Save(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	doc := mongoRun{
		ID:           run.ID,
		Model:        run.Model,
		Provider:     run.Provider,
		Fingerprint:  run.Fingerprint,
		Output:       run.Output,
		ErrorType:    run.ErrorType,
		ErrorMessage: run.ErrorMessage,
		StatusCode:   run.StatusCode,
		LatencyMS:    run.LatencyMS,
		CreatedAt:    run.CreatedAt.UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (s *mongoStore) Get(ctx context.Context, id string) (*Run, error) {
	var doc mongoRun
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return docToRun(&doc), nil
}

func (s *mongoStore) List(ctx context.Context, limit int) ([]*Run, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx) //nolint:errcheck
	}()

	var runs []*Run
	for cursor.Next(ctx) {
		var doc mongoRun
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode run: %w", err)
		}
		runs = append(runs, docToRun(&doc))
	}
	return runs, cursor.Err()
}

func (s *mongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func docToRun(doc *mongoRun) *Run {
	return &Run{
		ID:           doc.ID,
		Model:        doc.Model,
		Provider:     doc.Provider,
		Fingerprint:  doc.Fingerprint,
		Output:       doc.Output,
		ErrorType:    doc.ErrorType,
		ErrorMessage: doc.ErrorMessage,
		StatusCode:   doc.StatusCode,
		LatencyMS:    doc.LatencyMS,
		CreatedAt:    doc.CreatedAt.UTC(),
	}
}
