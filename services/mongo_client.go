package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tradelog_backend/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB collection names
const (
	MongoEventsCollection     = "economic_events"
	MongoMarksCollection      = "user_event_marks"
	MongoNotesCollection      = "event_notes"
	MongoRemindersCollection  = "event_reminders"
	MongoTradeLinksCollection = "event_trade_links"
	MongoTradesCollection     = "trades"
)

// MongoClient handles the MongoDB connection shared by the calendar
// subsystem and its annotation stores.
type MongoClient struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	lastError   string
}

// Global MongoDB client instance
var GlobalMongoClient *MongoClient

// InitMongoClient initializes the MongoDB client and verifies the
// connection. A missing MONGODB_URI leaves the client unconfigured;
// callers are expected to check IsConfigured before use.
func InitMongoClient() error {
	if config.AppConfig == nil || config.AppConfig.MongoURI == "" {
		log.Println("MONGODB_URI not set, calendar storage disabled")
		GlobalMongoClient = &MongoClient{
			lastError: "MONGODB_URI environment variable not set",
		}
		return fmt.Errorf("MONGODB_URI not set")
	}

	GlobalMongoClient = &MongoClient{}
	return GlobalMongoClient.Connect()
}

// Connect establishes the MongoDB connection
func (m *MongoClient) Connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.AppConfig.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		m.setError(fmt.Sprintf("Failed to connect: %v", err))
		log.Printf("Failed to connect to MongoDB: %v", err)
		return err
	}

	// Verify connection with ping
	if err := client.Ping(ctx, nil); err != nil {
		m.setError(fmt.Sprintf("Failed to ping: %v", err))
		log.Printf("Failed to ping MongoDB: %v", err)
		client.Disconnect(ctx)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(config.AppConfig.MongoDBName)
	m.isConnected = true
	m.lastError = ""
	m.mu.Unlock()

	m.createIndexes()

	log.Println("MongoDB connected successfully")
	return nil
}

// IsConfigured returns whether MongoDB is connected
func (m *MongoClient) IsConfigured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// GetLastError returns the last connection error
func (m *MongoClient) GetLastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// Database returns the underlying database handle
func (m *MongoClient) Database() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.database
}

// Close closes the MongoDB connection
func (m *MongoClient) Close() error {
	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return m.client.Disconnect(ctx)
	}
	return nil
}

func (m *MongoClient) setError(msg string) {
	m.mu.Lock()
	m.lastError = msg
	m.mu.Unlock()
}

// createIndexes creates necessary indexes for collections
func (m *MongoClient) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Events are addressed by their natural key on every sync pass
	events := m.database.Collection(MongoEventsCollection)
	events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "unique_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "event_time_utc", Value: 1}},
		},
	})

	// Annotation collections are always scanned by (user_id, event_id)
	for _, name := range []string{MongoMarksCollection, MongoNotesCollection, MongoTradeLinksCollection} {
		m.database.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "event_id", Value: 1}},
		})
	}

	m.database.Collection(MongoRemindersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "reminder_time", Value: 1}, {Key: "is_sent", Value: 1}},
	})

	log.Println("MongoDB indexes created")
}
