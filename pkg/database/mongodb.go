package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	OracleRegistryCollection = "oracles"
	BuiltinPartiesCollection = "builtin_oracle_parties"
)

type Config struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ConnectionTimeout      time.Duration
	ServerSelectionTimeout time.Duration
}

type Database struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewConnection(cfg *Config) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	clientOptions.SetMinPoolSize(cfg.MinPoolSize)
	clientOptions.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	clientOptions.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Database{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

// CreateIndexes bootstraps the indexes both collections rely on. The unique
// index on the builtin parties collection is what actually enforces the
// one-association-per-tuple invariant; the providers' read-before-insert
// check only exists to produce a friendly conflict error.
func (d *Database) CreateIndexes(ctx context.Context) error {
	parties := d.Database.Collection(BuiltinPartiesCollection)
	partyIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "party_type", Value: 1},
				{Key: "party_id", Value: 1},
				{Key: "party_sub_id", Value: 1},
				{Key: "currency", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("party_tuple_unique_idx"),
		},
		{
			Keys: bson.D{
				{Key: "fsp_id", Value: 1},
			},
			Options: options.Index().SetName("fsp_id_idx"),
		},
	}
	if _, err := parties.Indexes().CreateMany(ctx, partyIndexes); err != nil {
		return fmt.Errorf("failed to create builtin parties indexes: %w", err)
	}

	oracles := d.Database.Collection(OracleRegistryCollection)
	oracleIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "party_type", Value: 1},
				{Key: "currency", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("party_type_currency_unique_idx"),
		},
	}
	if _, err := oracles.Indexes().CreateMany(ctx, oracleIndexes); err != nil {
		return fmt.Errorf("failed to create oracle registry indexes: %w", err)
	}

	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.Client.Ping(ctx, nil)
}

func (d *Database) Close(ctx context.Context) error {
	if err := d.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

func (d *Database) GetCollection(name string) *mongo.Collection {
	return d.Database.Collection(name)
}
