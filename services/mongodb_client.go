package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stock_recommendation_backend/models"
)

// MongoDB collection names
const (
	MongoDBName             = "stock_recommendations"
	MongoBatchesCollection  = "recommendation_batches"
	MongoCronRunsCollection = "cron_runs"
)

// MongoDBClient handles MongoDB Atlas connection and operations. It stores
// full batch snapshots for the UI layers and an execution log for the
// scheduler, and degrades to a disabled no-op when MONGODB_URI is unset.
type MongoDBClient struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	uriSet      bool
	lastError   string
}

// MongoBatchSnapshot is a full recommendation batch document
type MongoBatchSnapshot struct {
	ExecutionID string                   `bson:"_id"`
	Strategy    string                   `bson:"strategy"`
	GeneratedAt time.Time                `bson:"generated_at"`
	TotalCount  int                      `bson:"total_count"`
	Candidates  []models.ScoredCandidate `bson:"candidates"`
	SavedAt     time.Time                `bson:"saved_at"`
}

// MongoCronRun logs one scheduler execution of the aggregation pipeline
type MongoCronRun struct {
	ExecutionID string    `bson:"_id"`
	Strategy    string    `bson:"strategy"`
	StartedAt   time.Time `bson:"started_at"`
	FinishedAt  time.Time `bson:"finished_at"`
	Status      string    `bson:"status"` // completed, failed
	BatchSize   int       `bson:"batch_size"`
	Error       string    `bson:"error,omitempty"`
}

// Global MongoDB client instance
var GlobalMongoClient *MongoDBClient

// InitMongoDBClient initializes the MongoDB client
func InitMongoDBClient() error {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Println("MONGODB_URI not set, MongoDB storage disabled")
		GlobalMongoClient = &MongoDBClient{
			uriSet:    false,
			lastError: "MONGODB_URI environment variable not set",
		}
		return nil
	}

	GlobalMongoClient = &MongoDBClient{
		uriSet: true,
	}

	return GlobalMongoClient.Connect()
}

// Connect establishes connection to MongoDB Atlas
func (m *MongoDBClient) Connect() error {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		m.lastError = "MONGODB_URI environment variable not set"
		return fmt.Errorf("%s", m.lastError)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		m.lastError = fmt.Sprintf("Failed to connect: %v", err)
		log.Printf("Failed to connect to MongoDB Atlas: %v", err)
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		m.lastError = fmt.Sprintf("Failed to ping: %v", err)
		log.Printf("Failed to ping MongoDB Atlas: %v", err)
		client.Disconnect(ctx)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(MongoDBName)
	m.isConnected = true
	m.lastError = ""
	m.mu.Unlock()

	m.createIndexes()

	log.Println("MongoDB Atlas connected successfully")
	return nil
}

// IsConfigured returns whether MongoDB is configured and connected
func (m *MongoDBClient) IsConfigured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// GetLastError returns the last connection error
func (m *MongoDBClient) GetLastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// Close closes the MongoDB connection
func (m *MongoDBClient) Close() error {
	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return m.client.Disconnect(ctx)
	}
	return nil
}

// createIndexes creates necessary indexes for collections
func (m *MongoDBClient) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batches := m.database.Collection(MongoBatchesCollection)
	batches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "strategy", Value: 1}, {Key: "generated_at", Value: -1}},
	})

	cronRuns := m.database.Collection(MongoCronRunsCollection)
	cronRuns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "started_at", Value: -1}},
	})

	log.Println("MongoDB indexes created")
}

// ==================== Batch Snapshot Operations ====================

// SaveBatchSnapshot stores the full batch document keyed by execution id.
// Replace-with-upsert keeps a scheduler retry from duplicating a snapshot.
func (m *MongoDBClient) SaveBatchSnapshot(executionID string, batch *models.RecommendationBatch) error {
	if !m.IsConfigured() {
		return fmt.Errorf("MongoDB not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc := MongoBatchSnapshot{
		ExecutionID: executionID,
		Strategy:    batch.Strategy.String(),
		GeneratedAt: batch.GeneratedAt,
		TotalCount:  batch.TotalCount,
		Candidates:  batch.Recommendations,
		SavedAt:     time.Now(),
	}

	collection := m.database.Collection(MongoBatchesCollection)
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, bson.M{"_id": executionID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save batch snapshot %s to MongoDB: %w", executionID, err)
	}

	log.Printf("Saved batch snapshot %s (%d candidates) to MongoDB Atlas", executionID, batch.TotalCount)
	return nil
}

// LoadLatestBatchSnapshot returns the most recent snapshot for a strategy
func (m *MongoDBClient) LoadLatestBatchSnapshot(strategy models.Strategy) (*MongoBatchSnapshot, error) {
	if !m.IsConfigured() {
		return nil, fmt.Errorf("MongoDB not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := m.database.Collection(MongoBatchesCollection)
	opts := options.FindOne().SetSort(bson.D{{Key: "generated_at", Value: -1}})

	var doc MongoBatchSnapshot
	err := collection.FindOne(ctx, bson.M{"strategy": strategy.String()}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no batch snapshot found for %s", strategy)
		}
		return nil, fmt.Errorf("failed to load batch snapshot for %s: %w", strategy, err)
	}

	return &doc, nil
}

// ==================== Cron Run Operations ====================

// LogCronRun records one scheduler execution, upserting on execution id
func (m *MongoDBClient) LogCronRun(run MongoCronRun) error {
	if !m.IsConfigured() {
		return fmt.Errorf("MongoDB not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := m.database.Collection(MongoCronRunsCollection)
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, bson.M{"_id": run.ExecutionID}, run, opts)
	if err != nil {
		return fmt.Errorf("failed to log cron run %s to MongoDB: %w", run.ExecutionID, err)
	}
	return nil
}

// RecentCronRuns returns the latest scheduler executions, newest first
func (m *MongoDBClient) RecentCronRuns(limit int) ([]MongoCronRun, error) {
	if !m.IsConfigured() {
		return nil, fmt.Errorf("MongoDB not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := m.database.Collection(MongoCronRunsCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query cron runs from MongoDB: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []MongoCronRun
	for cursor.Next(ctx) {
		var doc MongoCronRun
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		runs = append(runs, doc)
	}
	return runs, nil
}

// GetConnectionStatus returns detailed connection status
func (m *MongoDBClient) GetConnectionStatus() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := map[string]interface{}{
		"uri_set":   m.uriSet,
		"connected": m.isConnected,
	}
	if m.lastError != "" {
		status["error"] = m.lastError
	}
	return status
}
