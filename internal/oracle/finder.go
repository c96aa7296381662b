package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"account-lookup-api/internal/models"
	"account-lookup-api/pkg/database"
)

// Finder maps a (party type, currency) pair to the registered oracle that
// should serve it. A nil oracle with a nil error means "unrouted": no oracle
// covers that party type. That is a user-facing not-found condition, not an
// infrastructure fault.
type Finder interface {
	Init(ctx context.Context) error
	Destroy(ctx context.Context) error
	GetOracle(ctx context.Context, partyType, currency string) (*models.Oracle, error)
	ListOracles(ctx context.Context) ([]models.Oracle, error)
}

// MongoFinder reads the oracle registry collection. The registry is written
// out-of-band (seeding, admin tooling); the finder only ever reads it. The
// collection handle is bound at construction so the registry can be read
// before Init runs; Init only verifies store connectivity.
type MongoFinder struct {
	db         *database.Database
	collection *mongo.Collection
	logger     *logrus.Logger
	opTimeout  time.Duration
}

func NewMongoFinder(db *database.Database, logger *logrus.Logger, opTimeout time.Duration) *MongoFinder {
	if opTimeout == 0 {
		opTimeout = 10 * time.Second
	}
	return &MongoFinder{
		db:         db,
		collection: db.GetCollection(database.OracleRegistryCollection),
		logger:     logger,
		opTimeout:  opTimeout,
	}
}

func (f *MongoFinder) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()

	if err := f.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to init oracle finder: %w", err)
	}
	return nil
}

func (f *MongoFinder) Destroy(ctx context.Context) error {
	return nil
}

func (f *MongoFinder) GetOracle(ctx context.Context, partyType, currency string) (*models.Oracle, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()

	cursor, err := f.collection.Find(ctx, bson.M{"party_type": partyType})
	if err != nil {
		return nil, fmt.Errorf("%w: partyType %s: %v", models.ErrUnableToGetOracle, partyType, err)
	}
	defer cursor.Close(ctx)

	var candidates []models.Oracle
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("%w: partyType %s: %v", models.ErrUnableToGetOracle, partyType, err)
	}

	return selectOracle(candidates, currency), nil
}

func (f *MongoFinder) ListOracles(ctx context.Context) ([]models.Oracle, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()

	cursor, err := f.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnableToGetOracle, err)
	}
	defer cursor.Close(ctx)

	var oracles []models.Oracle
	if err := cursor.All(ctx, &oracles); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnableToGetOracle, err)
	}

	return oracles, nil
}

// selectOracle applies the routing rule over the oracles registered for one
// party type: a currency-specific oracle wins, an oracle with no currency is
// the fallback default, and nil means unrouted.
func selectOracle(candidates []models.Oracle, currency string) *models.Oracle {
	var fallback *models.Oracle
	for i := range candidates {
		o := candidates[i]
		if currency != "" && o.Currency == currency {
			return &o
		}
		if o.Currency == "" && fallback == nil {
			fallback = &o
		}
	}
	return fallback
}
