package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"account-lookup-api/internal/cache"
	"account-lookup-api/internal/models"
	"account-lookup-api/internal/oracle"
)

// AccountLookupService is the orchestration core: it routes a request to the
// right oracle provider, consults the participant cache, and publishes the
// outcome. The twelve operations are Get/Associate/Disassociate over
// party- and participant-scoped identifiers, with and without sub-id.
type AccountLookupService interface {
	Init(ctx context.Context) error
	Destroy(ctx context.Context) error

	GetPartyByTypeAndID(ctx context.Context, partyType, partyID, currency string) (string, error)
	GetPartyByTypeAndIDAndSubID(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error)
	AssociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error
	AssociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error
	DisassociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error
	DisassociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error

	GetParticipantByTypeAndID(ctx context.Context, participantType, participantID, currency string) (string, error)
	GetParticipantByTypeAndIDAndSubID(ctx context.Context, participantType, participantID, participantSubID, currency string) (string, error)
	AssociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error
	AssociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error
	DisassociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error
	DisassociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error

	ListOracles(ctx context.Context) ([]models.Oracle, error)
	OracleHealth(ctx context.Context) map[string]bool
	OracleAssociations(ctx context.Context, oracleID string, pageIndex, pageSize int) (*models.AssociationsPage, error)
}

// EventPublisher is the outbound side of the bus. Implemented by
// messaging.Publisher.
type EventPublisher interface {
	PublishLookupResult(ctx context.Context, scope string, ident models.PartyIdentifier, fspID string) error
	PublishAssociationCreated(ctx context.Context, scope string, ident models.PartyIdentifier, fspID string) error
	PublishAssociationRemoved(ctx context.Context, scope string, ident models.PartyIdentifier, fspID string) error
}

const (
	scopeParty       = "party"
	scopeParticipant = "participant"
)

var lookupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "account_lookup_operations_total",
	Help: "Account lookup operations by scope, operation and outcome",
}, []string{"scope", "operation", "outcome"})

type LookupService struct {
	logger    *logrus.Logger
	finder    oracle.Finder
	providers map[string]oracle.Provider
	cache     cache.ParticipantCache
	publisher EventPublisher

	initialized bool
}

func NewLookupService(
	logger *logrus.Logger,
	finder oracle.Finder,
	providers []oracle.Provider,
	participantCache cache.ParticipantCache,
	publisher EventPublisher,
) *LookupService {
	byID := make(map[string]oracle.Provider, len(providers))
	for _, p := range providers {
		byID[p.OracleID()] = p
	}

	return &LookupService{
		logger:    logger,
		finder:    finder,
		providers: byID,
		cache:     participantCache,
		publisher: publisher,
	}
}

// Init brings up the finder and every provider. Startup is all-or-nothing:
// if any collaborator fails, everything already initialized is torn down
// before the error is returned.
func (s *LookupService) Init(ctx context.Context) error {
	if err := s.finder.Init(ctx); err != nil {
		return fmt.Errorf("failed to init oracle finder: %w", err)
	}

	var initialized []oracle.Provider
	for _, provider := range s.providers {
		if err := provider.Init(ctx); err != nil {
			for _, p := range initialized {
				if derr := p.Destroy(ctx); derr != nil {
					s.logger.WithError(derr).WithField("oracle_id", p.OracleID()).Error("Failed to tear down provider after init failure")
				}
			}
			if derr := s.finder.Destroy(ctx); derr != nil {
				s.logger.WithError(derr).Error("Failed to tear down oracle finder after init failure")
			}
			return fmt.Errorf("failed to init provider for oracle %s: %w", provider.OracleID(), err)
		}
		initialized = append(initialized, provider)
	}

	s.initialized = true
	return nil
}

func (s *LookupService) Destroy(ctx context.Context) error {
	var errs []error
	for _, provider := range s.providers {
		if err := provider.Destroy(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.finder.Destroy(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cache.Destroy()
	s.initialized = false
	return errors.Join(errs...)
}

// Party-scoped operations.

func (s *LookupService) GetPartyByTypeAndID(ctx context.Context, partyType, partyID, currency string) (string, error) {
	return s.resolve(ctx, scopeParty, models.PartyIdentifier{PartyType: partyType, PartyID: partyID, Currency: currency})
}

func (s *LookupService) GetPartyByTypeAndIDAndSubID(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error) {
	return s.resolve(ctx, scopeParty, models.PartyIdentifier{PartyType: partyType, PartyID: partyID, PartySubID: partySubID, Currency: currency})
}

func (s *LookupService) AssociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error {
	return s.associate(ctx, scopeParty, fspID, models.PartyIdentifier{PartyType: partyType, PartyID: partyID, Currency: currency})
}

func (s *LookupService) AssociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	return s.associate(ctx, scopeParty, fspID, models.PartyIdentifier{PartyType: partyType, PartyID: partyID, PartySubID: partySubID, Currency: currency})
}

func (s *LookupService) DisassociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error {
	return s.disassociate(ctx, scopeParty, fspID, models.PartyIdentifier{PartyType: partyType, PartyID: partyID, Currency: currency})
}

func (s *LookupService) DisassociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	return s.disassociate(ctx, scopeParty, fspID, models.PartyIdentifier{PartyType: partyType, PartyID: partyID, PartySubID: partySubID, Currency: currency})
}

// Participant-scoped operations. Routing and caching are identical to the
// party-scoped family; only event naming differs.

func (s *LookupService) GetParticipantByTypeAndID(ctx context.Context, participantType, participantID, currency string) (string, error) {
	return s.resolve(ctx, scopeParticipant, models.PartyIdentifier{PartyType: participantType, PartyID: participantID, Currency: currency})
}

func (s *LookupService) GetParticipantByTypeAndIDAndSubID(ctx context.Context, participantType, participantID, participantSubID, currency string) (string, error) {
	return s.resolve(ctx, scopeParticipant, models.PartyIdentifier{PartyType: participantType, PartyID: participantID, PartySubID: participantSubID, Currency: currency})
}

func (s *LookupService) AssociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error {
	return s.associate(ctx, scopeParticipant, fspID, models.PartyIdentifier{PartyType: participantType, PartyID: participantID, Currency: currency})
}

func (s *LookupService) AssociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error {
	return s.associate(ctx, scopeParticipant, fspID, models.PartyIdentifier{PartyType: participantType, PartyID: participantID, PartySubID: participantSubID, Currency: currency})
}

func (s *LookupService) DisassociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error {
	return s.disassociate(ctx, scopeParticipant, fspID, models.PartyIdentifier{PartyType: participantType, PartyID: participantID, Currency: currency})
}

func (s *LookupService) DisassociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error {
	return s.disassociate(ctx, scopeParticipant, fspID, models.PartyIdentifier{PartyType: participantType, PartyID: participantID, PartySubID: participantSubID, Currency: currency})
}

// resolve is the read path: cache, then finder, then provider, then cache
// fill. A missing oracle or a missing association both resolve to an empty
// fspID with no error; the published result carries the no-FSP outcome.
func (s *LookupService) resolve(ctx context.Context, scope string, ident models.PartyIdentifier) (string, error) {
	if !ident.IsValid() {
		lookupOutcomes.WithLabelValues(scope, "get", "invalid").Inc()
		return "", fmt.Errorf("%w: party type and id are required", models.ErrInvalidRequest)
	}

	key := ident.LookupKey()
	if fspID, ok := s.cache.Get(key); ok {
		lookupOutcomes.WithLabelValues(scope, "get", "cache_hit").Inc()
		s.publishResult(ctx, scope, ident, fspID)
		return fspID, nil
	}

	provider, err := s.route(ctx, ident)
	if err != nil {
		lookupOutcomes.WithLabelValues(scope, "get", "error").Inc()
		return "", err
	}
	if provider == nil {
		lookupOutcomes.WithLabelValues(scope, "get", "unrouted").Inc()
		s.publishResult(ctx, scope, ident, "")
		return "", nil
	}

	fspID, err := provider.GetParticipantFspID(ctx, ident.PartyType, ident.PartyID, ident.PartySubID, ident.Currency)
	if err != nil {
		if errors.Is(err, models.ErrNoSuchParticipant) {
			lookupOutcomes.WithLabelValues(scope, "get", "not_found").Inc()
			s.publishResult(ctx, scope, ident, "")
			return "", nil
		}
		lookupOutcomes.WithLabelValues(scope, "get", "error").Inc()
		return "", err
	}

	s.cache.Set(key, fspID)
	lookupOutcomes.WithLabelValues(scope, "get", "resolved").Inc()
	s.publishResult(ctx, scope, ident, fspID)
	return fspID, nil
}

func (s *LookupService) associate(ctx context.Context, scope, fspID string, ident models.PartyIdentifier) error {
	if !ident.IsValid() || fspID == "" {
		lookupOutcomes.WithLabelValues(scope, "associate", "invalid").Inc()
		return fmt.Errorf("%w: fsp id, party type and id are required", models.ErrInvalidRequest)
	}

	provider, err := s.route(ctx, ident)
	if err != nil {
		lookupOutcomes.WithLabelValues(scope, "associate", "error").Inc()
		return err
	}
	if provider == nil {
		lookupOutcomes.WithLabelValues(scope, "associate", "unrouted").Inc()
		return fmt.Errorf("%w: partyType %s", models.ErrNoOracleForPartyType, ident.PartyType)
	}

	if err := provider.AssociateParticipant(ctx, fspID, ident.PartyType, ident.PartyID, ident.PartySubID, ident.Currency); err != nil {
		outcome := "error"
		if errors.Is(err, models.ErrParticipantAssociationExists) {
			outcome = "conflict"
		}
		lookupOutcomes.WithLabelValues(scope, "associate", outcome).Inc()
		return err
	}

	lookupOutcomes.WithLabelValues(scope, "associate", "created").Inc()
	if err := s.publisher.PublishAssociationCreated(ctx, scope, ident, fspID); err != nil {
		s.logger.WithError(err).WithField("lookup_key", ident.LookupKey()).Error("Failed to publish association created event")
	}
	return nil
}

func (s *LookupService) disassociate(ctx context.Context, scope, fspID string, ident models.PartyIdentifier) error {
	if !ident.IsValid() || fspID == "" {
		lookupOutcomes.WithLabelValues(scope, "disassociate", "invalid").Inc()
		return fmt.Errorf("%w: fsp id, party type and id are required", models.ErrInvalidRequest)
	}

	provider, err := s.route(ctx, ident)
	if err != nil {
		lookupOutcomes.WithLabelValues(scope, "disassociate", "error").Inc()
		return err
	}
	if provider == nil {
		lookupOutcomes.WithLabelValues(scope, "disassociate", "unrouted").Inc()
		return fmt.Errorf("%w: partyType %s", models.ErrNoOracleForPartyType, ident.PartyType)
	}

	if err := provider.DisassociateParticipant(ctx, fspID, ident.PartyType, ident.PartyID, ident.PartySubID, ident.Currency); err != nil {
		lookupOutcomes.WithLabelValues(scope, "disassociate", "error").Inc()
		return err
	}

	// Invalidate before anyone can read the stale entry back. A currency-less
	// read matches associations stored with any currency, so it may have
	// cached this association under the bare key; that alias goes too.
	s.cache.Delete(ident.LookupKey())
	if ident.Currency != "" {
		bare := ident
		bare.Currency = ""
		s.cache.Delete(bare.LookupKey())
	}

	lookupOutcomes.WithLabelValues(scope, "disassociate", "removed").Inc()
	if err := s.publisher.PublishAssociationRemoved(ctx, scope, ident, fspID); err != nil {
		s.logger.WithError(err).WithField("lookup_key", ident.LookupKey()).Error("Failed to publish association removed event")
	}
	return nil
}

// route picks the provider for the identifier. (nil, nil) means no oracle is
// registered for the party type.
func (s *LookupService) route(ctx context.Context, ident models.PartyIdentifier) (oracle.Provider, error) {
	o, err := s.finder.GetOracle(ctx, ident.PartyType, ident.Currency)
	if err != nil {
		return nil, err
	}
	if o == nil {
		s.logger.WithFields(logrus.Fields{
			"party_type": ident.PartyType,
			"currency":   ident.Currency,
		}).Debug("No oracle registered for party type")
		return nil, nil
	}

	provider, ok := s.providers[o.ID]
	if !ok {
		return nil, fmt.Errorf("%w: oracle %s", models.ErrNoProviderForOracle, o.ID)
	}
	return provider, nil
}

func (s *LookupService) publishResult(ctx context.Context, scope string, ident models.PartyIdentifier, fspID string) {
	if err := s.publisher.PublishLookupResult(ctx, scope, ident, fspID); err != nil {
		s.logger.WithError(err).WithField("lookup_key", ident.LookupKey()).Error("Failed to publish lookup result event")
	}
}

// Admin surface.

func (s *LookupService) ListOracles(ctx context.Context) ([]models.Oracle, error) {
	return s.finder.ListOracles(ctx)
}

func (s *LookupService) OracleHealth(ctx context.Context) map[string]bool {
	health := make(map[string]bool, len(s.providers))
	for id, provider := range s.providers {
		health[id] = provider.HealthCheck(ctx)
	}
	return health
}

func (s *LookupService) OracleAssociations(ctx context.Context, oracleID string, pageIndex, pageSize int) (*models.AssociationsPage, error) {
	provider, ok := s.providers[oracleID]
	if !ok {
		return nil, fmt.Errorf("%w: oracle %s", models.ErrNoProviderForOracle, oracleID)
	}

	associations, err := provider.GetAllAssociations(ctx)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	totalPages := (len(associations) + pageSize - 1) / pageSize
	start := pageIndex * pageSize
	if start > len(associations) {
		start = len(associations)
	}
	end := start + pageSize
	if end > len(associations) {
		end = len(associations)
	}

	return &models.AssociationsPage{
		Items:      associations[start:end],
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
