package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

// cartDocument wraps the working-cart record with its register key.
type cartDocument struct {
	RegisterID string        `bson:"_id"`
	Cart       receiptRecord `bson:"cart"`
	UpdatedAt  time.Time     `bson:"updated_at"`
}

// MongoCartStore persists the working cart per register so a session
// survives an app restart.
type MongoCartStore struct {
	collection *mongo.Collection
}

func NewMongoCartStore(db *mongo.Database) *MongoCartStore {
	return &MongoCartStore{
		collection: db.Collection("carts"),
	}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *MongoCartStore) GetCart(ctx context.Context, registerID string) (domain.Receipt, error) {
	var doc cartDocument

	filter := bson.M{"_id": registerID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Receipt{}, ErrCartNotFound
		}
		return domain.Receipt{}, fmt.Errorf("failed to get cart: %w", err)
	}

	cart, err := receiptFromRecord(doc.Cart)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("register %q: %w", registerID, err)
	}
	return cart, nil
}

func (m *MongoCartStore) SaveCart(ctx context.Context, registerID string, cart domain.Receipt) error {
	doc := cartDocument{
		RegisterID: registerID,
		Cart:       receiptToRecord(cart),
		UpdatedAt:  time.Now(),
	}

	filter := bson.M{"_id": registerID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (m *MongoCartStore) DeleteCart(ctx context.Context, registerID string) error {
	filter := bson.M{"_id": registerID}
	if _, err := m.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// CreateIndexes sets a TTL on abandoned carts.
func (m *MongoCartStore) CreateIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
	}

	if _, err := m.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
