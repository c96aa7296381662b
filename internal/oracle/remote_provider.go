package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"account-lookup-api/internal/models"
)

// RemoteProvider implements the provider contract over HTTP against an
// external FSP registry. HTTP 404 maps to the not-found outcome; every other
// non-2xx response or transport failure surfaces as the operation's
// infrastructure error kind. Transport error types never cross this boundary.
type RemoteProvider struct {
	oracle     models.Oracle
	logger     *logrus.Logger
	httpClient *http.Client
}

type remoteParticipantResponse struct {
	FspID string `json:"fspId"`
}

type remoteAssociationRequest struct {
	FspID    string `json:"fspId"`
	Currency string `json:"currency,omitempty"`
}

func NewRemoteProvider(oracle models.Oracle, logger *logrus.Logger, httpClient *http.Client) *RemoteProvider {
	return &RemoteProvider{
		oracle:     oracle,
		logger:     logger,
		httpClient: httpClient,
	}
}

func (p *RemoteProvider) OracleID() string {
	return p.oracle.ID
}

func (p *RemoteProvider) Type() models.OracleType {
	return models.OracleTypeRemoteHTTP
}

func (p *RemoteProvider) Init(ctx context.Context) error {
	if p.oracle.Endpoint == "" {
		return fmt.Errorf("%w: oracle %s has no endpoint", models.ErrUnableToInitProvider, p.oracle.ID)
	}
	if _, err := url.Parse(p.oracle.Endpoint); err != nil {
		return fmt.Errorf("%w: oracle %s endpoint: %v", models.ErrUnableToInitProvider, p.oracle.ID, err)
	}
	return nil
}

func (p *RemoteProvider) Destroy(ctx context.Context) error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *RemoteProvider) participantURL(partyType, partyID, partySubID, currency string) string {
	base := strings.TrimSuffix(p.oracle.Endpoint, "/")
	u := fmt.Sprintf("%s/participants/%s/%s", base, url.PathEscape(partyType), url.PathEscape(partyID))
	if partySubID != "" {
		u += "/" + url.PathEscape(partySubID)
	}
	if currency != "" {
		u += "?currency=" + url.QueryEscape(currency)
	}
	return u
}

func (p *RemoteProvider) GetParticipantFspID(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.participantURL(partyType, partyID, partySubID, currency), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnableToGetParticipant, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToGetParticipant, p.oracle.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: partyType %s partyId %s", models.ErrNoSuchParticipant, partyType, partyID)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: oracle %s returned status %d", models.ErrUnableToGetParticipant, p.oracle.ID, resp.StatusCode)
	}

	var body remoteParticipantResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToGetParticipant, p.oracle.ID, err)
	}
	if body.FspID == "" {
		return "", fmt.Errorf("%w: partyType %s partyId %s", models.ErrNoSuchParticipant, partyType, partyID)
	}

	return body.FspID, nil
}

func (p *RemoteProvider) AssociateParticipant(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	payload, err := json.Marshal(remoteAssociationRequest{FspID: fspID, Currency: currency})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnableToAssociateParticipant, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.participantURL(partyType, partyID, partySubID, ""), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnableToAssociateParticipant, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToAssociateParticipant, p.oracle.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: partyType %s partyId %s", models.ErrParticipantAssociationExists, partyType, partyID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: oracle %s returned status %d", models.ErrUnableToAssociateParticipant, p.oracle.ID, resp.StatusCode)
	}

	return nil
}

func (p *RemoteProvider) DisassociateParticipant(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	u := p.participantURL(partyType, partyID, partySubID, currency)
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	u += sep + "fspId=" + url.QueryEscape(fspID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnableToDisassociateParticipant, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToDisassociateParticipant, p.oracle.ID, err)
	}
	defer resp.Body.Close()

	// 404 keeps the delete idempotent: the association is gone either way.
	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fmt.Errorf("%w: oracle %s returned status %d", models.ErrUnableToDisassociateParticipant, p.oracle.ID, resp.StatusCode)
	}

	return nil
}

func (p *RemoteProvider) HealthCheck(ctx context.Context) bool {
	base := strings.TrimSuffix(p.oracle.Endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.WithError(err).WithField("oracle_id", p.oracle.ID).Debug("Remote oracle health check failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (p *RemoteProvider) GetAllAssociations(ctx context.Context) ([]models.Association, error) {
	base := strings.TrimSuffix(p.oracle.Endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/associations", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnableToGetAssociations, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToGetAssociations, p.oracle.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: oracle %s returned status %d", models.ErrUnableToGetAssociations, p.oracle.ID, resp.StatusCode)
	}

	var associations []models.Association
	if err := json.NewDecoder(resp.Body).Decode(&associations); err != nil {
		return nil, fmt.Errorf("%w: oracle %s: %v", models.ErrUnableToGetAssociations, p.oracle.ID, err)
	}

	return associations, nil
}
