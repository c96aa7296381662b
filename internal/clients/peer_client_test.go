package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"account-lookup-api/internal/models"
)

func newTestPeerClient(baseURL string) *PeerClient {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPeerClient(&PeerClientConfig{BaseURL: baseURL}, logger)
}

func TestParticipantLookUp_Resolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account-lookup/123456789/MSISDN", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("currency"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fspId":"FSP1"}`))
	}))
	defer server.Close()

	client := newTestPeerClient(server.URL)

	fspID, err := client.ParticipantLookUp(context.Background(), "123456789", "MSISDN", "", "USD")

	assert.NoError(t, err)
	assert.Equal(t, "FSP1", fspID)
}

func TestParticipantLookUp_SubIDInPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account-lookup/123456789/MSISDN/sub-1", r.URL.Path)
		w.Write([]byte(`{"fspId":"FSP2"}`))
	}))
	defer server.Close()

	client := newTestPeerClient(server.URL)

	fspID, err := client.ParticipantLookUp(context.Background(), "123456789", "MSISDN", "sub-1", "")

	assert.NoError(t, err)
	assert.Equal(t, "FSP2", fspID)
}

func TestParticipantLookUp_NotFoundIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestPeerClient(server.URL)

	fspID, err := client.ParticipantLookUp(context.Background(), "999", "MSISDN", "", "")

	assert.NoError(t, err)
	assert.Empty(t, fspID)
}

func TestParticipantLookUp_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestPeerClient(server.URL)

	_, err := client.ParticipantLookUp(context.Background(), "123", "MSISDN", "", "")

	assert.ErrorIs(t, err, models.ErrUnableToLookUpFspID)
}

func TestParticipantBulkLookUp_MixedResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/account-lookup", r.URL.Path)

		var identifiers map[string]models.PartyIdentifier
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&identifiers))
		assert.Len(t, identifiers, 2)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"a":"FSP1","b":""}`))
	}))
	defer server.Close()

	client := newTestPeerClient(server.URL)

	results, err := client.ParticipantBulkLookUp(context.Background(), map[string]models.PartyIdentifier{
		"a": {PartyType: "MSISDN", PartyID: "123456789"},
		"b": {PartyType: "EMAIL", PartyID: "user@example.com"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "FSP1", results["a"])
	assert.Empty(t, results["b"])
}

func TestParticipantBulkLookUp_NotFoundMapsEveryKeyEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestPeerClient(server.URL)

	results, err := client.ParticipantBulkLookUp(context.Background(), map[string]models.PartyIdentifier{
		"a": {PartyType: "MSISDN", PartyID: "1"},
		"b": {PartyType: "MSISDN", PartyID: "2"},
	})

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Empty(t, results["a"])
	assert.Empty(t, results["b"])
}

func TestParticipantBulkLookUp_EmptyBatchSkipsNetwork(t *testing.T) {
	client := newTestPeerClient("http://peer.invalid")

	results, err := client.ParticipantBulkLookUp(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, results)
}
