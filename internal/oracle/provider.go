package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"account-lookup-api/internal/models"
	"account-lookup-api/pkg/database"
)

// Provider is the capability set one oracle adapter implements. Each
// provider is scoped to exactly one registered oracle; the backing store or
// endpoint differs per implementation but the contract does not.
//
// PartySubID is accepted everywhere even when absent (empty string) so the
// sub-id operation families can reuse the same adapter.
type Provider interface {
	OracleID() string
	Type() models.OracleType

	Init(ctx context.Context) error
	Destroy(ctx context.Context) error

	GetParticipantFspID(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error)
	AssociateParticipant(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error
	DisassociateParticipant(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error
	HealthCheck(ctx context.Context) bool
	GetAllAssociations(ctx context.Context) ([]models.Association, error)
}

type ProviderConfig struct {
	RemoteTimeout    time.Duration
	OperationTimeout time.Duration
}

// BuildProviders constructs one provider per registered oracle, selected by
// the oracle's configured type. No runtime type inspection happens after
// this point.
func BuildProviders(oracles []models.Oracle, db *database.Database, logger *logrus.Logger, cfg *ProviderConfig) ([]Provider, error) {
	providers := make([]Provider, 0, len(oracles))
	for _, o := range oracles {
		switch o.Type {
		case models.OracleTypeBuiltin:
			providers = append(providers, NewBuiltinProvider(o, db, logger, cfg.OperationTimeout))
		case models.OracleTypeRemoteHTTP:
			providers = append(providers, NewRemoteProvider(o, logger, &http.Client{Timeout: cfg.RemoteTimeout}))
		default:
			return nil, fmt.Errorf("oracle %s has unknown type %q", o.ID, o.Type)
		}
	}
	return providers, nil
}
