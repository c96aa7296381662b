package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"account-lookup-api/internal/models"
	"account-lookup-api/pkg/database"
)

// BuiltinProvider resolves associations against the service's own document
// store. It is the system of record for oracles of type "builtin".
type BuiltinProvider struct {
	oracle     models.Oracle
	db         *database.Database
	collection *mongo.Collection
	logger     *logrus.Logger
	opTimeout  time.Duration
}

func NewBuiltinProvider(oracle models.Oracle, db *database.Database, logger *logrus.Logger, opTimeout time.Duration) *BuiltinProvider {
	if opTimeout == 0 {
		opTimeout = 10 * time.Second
	}
	return &BuiltinProvider{
		oracle:    oracle,
		db:        db,
		logger:    logger,
		opTimeout: opTimeout,
	}
}

func (p *BuiltinProvider) OracleID() string {
	return p.oracle.ID
}

func (p *BuiltinProvider) Type() models.OracleType {
	return models.OracleTypeBuiltin
}

func (p *BuiltinProvider) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToInitProvider, p.oracle.ID, err)
	}
	p.collection = p.db.GetCollection(database.BuiltinPartiesCollection)
	return nil
}

func (p *BuiltinProvider) Destroy(ctx context.Context) error {
	// The Mongo client is owned by the process, not by a single provider;
	// nothing to release here beyond dropping the collection handle.
	p.collection = nil
	return nil
}

// lookupFilter matches the way reads route: a request without a currency
// matches whatever association exists for the party, while a currency-scoped
// request only matches that currency.
func lookupFilter(partyType, partyID, partySubID, currency string) bson.M {
	filter := bson.M{
		"party_type":   partyType,
		"party_id":     partyID,
		"party_sub_id": partySubID,
	}
	if currency != "" {
		filter["currency"] = currency
	}
	return filter
}

// tupleFilter matches the exact uniqueness tuple, empty fields included.
// Writes use it so that "no currency" is a distinct slot from any currency.
func tupleFilter(partyType, partyID, partySubID, currency string) bson.M {
	return bson.M{
		"party_type":   partyType,
		"party_id":     partyID,
		"party_sub_id": partySubID,
		"currency":     currency,
	}
}

func (p *BuiltinProvider) GetParticipantFspID(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	var association models.Association
	err := p.collection.FindOne(ctx, lookupFilter(partyType, partyID, partySubID, currency)).Decode(&association)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			p.logger.WithFields(logrus.Fields{
				"oracle_id":  p.oracle.ID,
				"party_type": partyType,
				"party_id":   partyID,
			}).Debug("No association found")
			return "", fmt.Errorf("%w: partyType %s partyId %s", models.ErrNoSuchParticipant, partyType, partyID)
		}
		return "", fmt.Errorf("%w: partyType %s partyId %s: %v", models.ErrUnableToGetParticipant, partyType, partyID, err)
	}

	return association.FspID, nil
}

func (p *BuiltinProvider) AssociateParticipant(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	// Early read to produce a distinct conflict error; the unique index on
	// the tuple is the real guard against a concurrent duplicate insert.
	err := p.collection.FindOne(ctx, tupleFilter(partyType, partyID, partySubID, currency)).Err()
	if err == nil {
		return fmt.Errorf("%w: partyType %s partyId %s", models.ErrParticipantAssociationExists, partyType, partyID)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: partyType %s partyId %s: %v", models.ErrUnableToAssociateParticipant, partyType, partyID, err)
	}

	_, err = p.collection.InsertOne(ctx, models.Association{
		FspID:      fspID,
		PartyType:  partyType,
		PartyID:    partyID,
		PartySubID: partySubID,
		Currency:   currency,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: partyType %s partyId %s", models.ErrParticipantAssociationExists, partyType, partyID)
		}
		return fmt.Errorf("%w: partyType %s partyId %s: %v", models.ErrUnableToAssociateParticipant, partyType, partyID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"oracle_id":  p.oracle.ID,
		"fsp_id":     fspID,
		"party_type": partyType,
		"party_id":   partyID,
	}).Debug("Participant association stored")
	return nil
}

func (p *BuiltinProvider) DisassociateParticipant(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	filter := tupleFilter(partyType, partyID, partySubID, currency)
	filter["fsp_id"] = fspID

	// Deleting a non-existent association is not an error.
	if _, err := p.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("%w: partyType %s partyId %s: %v", models.ErrUnableToDisassociateParticipant, partyType, partyID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"oracle_id":  p.oracle.ID,
		"fsp_id":     fspID,
		"party_type": partyType,
		"party_id":   partyID,
	}).Debug("Participant association removed")
	return nil
}

func (p *BuiltinProvider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	if err := p.db.Ping(ctx); err != nil {
		p.logger.WithError(err).WithField("oracle_id", p.oracle.ID).Debug("Builtin oracle health check failed")
		return false
	}
	return true
}

func (p *BuiltinProvider) GetAllAssociations(ctx context.Context) ([]models.Association, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	cursor, err := p.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToGetAssociations, p.oracle.ID, err)
	}
	defer cursor.Close(ctx)

	var associations []models.Association
	if err := cursor.All(ctx, &associations); err != nil {
		return nil, fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToGetAssociations, p.oracle.ID, err)
	}

	return associations, nil
}
