package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"account-lookup-api/internal/models"
)

const defaultPeerTimeout = 5 * time.Second

// PeerClient is the synchronous path between deployments: it asks another
// account-lookup instance to resolve identifiers its own oracles cannot.
// A remote 404 is a legitimate "not found" (empty fspID, nil error), never
// an error; transport failures are translated to this package's error kinds
// and never leak http types to callers.
type PeerClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

type PeerClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type peerLookupResponse struct {
	FspID string `json:"fspId"`
}

func NewPeerClient(config *PeerClientConfig, logger *logrus.Logger) *PeerClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultPeerTimeout
	}

	return &PeerClient{
		baseURL: config.BaseURL,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ParticipantLookUp resolves a single identifier against the peer. Returns
// ("", nil) when the peer does not know the party.
func (c *PeerClient) ParticipantLookUp(ctx context.Context, partyID, partyType, partySubID, currency string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.lookupURL(partyID, partyType, partySubID, currency), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnableToLookUpFspID, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"party_type": partyType,
			"party_id":   partyID,
		}).Error("Peer participant lookup failed")
		return "", fmt.Errorf("%w: %v", models.ErrUnableToLookUpFspID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: peer returned status %d", models.ErrUnableToLookUpFspID, resp.StatusCode)
	}

	var body peerLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnableToLookUpFspID, err)
	}

	return body.FspID, nil
}

// ParticipantBulkLookUp resolves a batch of identifiers keyed by caller-
// chosen correlation keys. In the result an empty fspID means "not found";
// an empty FSP id is not a legal identifier, so the two cannot collide.
func (c *PeerClient) ParticipantBulkLookUp(ctx context.Context, identifiers map[string]models.PartyIdentifier) (map[string]string, error) {
	if len(identifiers) == 0 {
		return map[string]string{}, nil
	}

	payload, err := json.Marshal(identifiers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnableToBulkLookUpFspID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/account-lookup", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnableToBulkLookUpFspID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Peer bulk participant lookup failed")
		return nil, fmt.Errorf("%w: %v", models.ErrUnableToBulkLookUpFspID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		results := make(map[string]string, len(identifiers))
		for key := range identifiers {
			results[key] = ""
		}
		return results, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: peer returned status %d", models.ErrUnableToBulkLookUpFspID, resp.StatusCode)
	}

	var results map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnableToBulkLookUpFspID, err)
	}

	return results, nil
}

func (c *PeerClient) lookupURL(partyID, partyType, partySubID, currency string) string {
	u := fmt.Sprintf("%s/account-lookup/%s/%s", c.baseURL, url.PathEscape(partyID), url.PathEscape(partyType))
	if partySubID != "" {
		u += "/" + url.PathEscape(partySubID)
	}
	if currency != "" {
		u += "?currency=" + url.QueryEscape(currency)
	}
	return u
}
