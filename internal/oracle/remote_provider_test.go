package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"account-lookup-api/internal/models"
)

func newRemoteTestProvider(endpoint string) *RemoteProvider {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	o := models.Oracle{ID: "remote-1", Type: models.OracleTypeRemoteHTTP, PartyType: "MSISDN", Endpoint: endpoint}
	return NewRemoteProvider(o, logger, &http.Client{})
}

func TestRemoteProvider_GetParticipantFspID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/participants/MSISDN/123456789", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("currency"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fspId":"FSP1"}`))
	}))
	defer server.Close()

	provider := newRemoteTestProvider(server.URL)

	fspID, err := provider.GetParticipantFspID(context.Background(), "MSISDN", "123456789", "", "USD")

	assert.NoError(t, err)
	assert.Equal(t, "FSP1", fspID)
}

func TestRemoteProvider_GetParticipantFspID_SubIDInPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/participants/MSISDN/123456789/sub-1", r.URL.Path)
		w.Write([]byte(`{"fspId":"FSP2"}`))
	}))
	defer server.Close()

	provider := newRemoteTestProvider(server.URL)

	fspID, err := provider.GetParticipantFspID(context.Background(), "MSISDN", "123456789", "sub-1", "")

	assert.NoError(t, err)
	assert.Equal(t, "FSP2", fspID)
}

func TestRemoteProvider_GetParticipantFspID_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider := newRemoteTestProvider(server.URL)

	_, err := provider.GetParticipantFspID(context.Background(), "MSISDN", "999", "", "")

	assert.ErrorIs(t, err, models.ErrNoSuchParticipant)
}

func TestRemoteProvider_GetParticipantFspID_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := newRemoteTestProvider(server.URL)

	_, err := provider.GetParticipantFspID(context.Background(), "MSISDN", "123", "", "")

	assert.ErrorIs(t, err, models.ErrUnableToGetParticipant)
	assert.NotErrorIs(t, err, models.ErrNoSuchParticipant)
}

func TestRemoteProvider_AssociateParticipant_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	provider := newRemoteTestProvider(server.URL)

	err := provider.AssociateParticipant(context.Background(), "FSP1", "MSISDN", "123456789", "", "USD")

	assert.ErrorIs(t, err, models.ErrParticipantAssociationExists)
}

func TestRemoteProvider_DisassociateParticipant_NotFoundIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "FSP1", r.URL.Query().Get("fspId"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider := newRemoteTestProvider(server.URL)

	err := provider.DisassociateParticipant(context.Background(), "FSP1", "MSISDN", "123456789", "", "")

	assert.NoError(t, err, "deleting a missing association must not fail")
}

func TestRemoteProvider_HealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	assert.True(t, newRemoteTestProvider(healthy.URL).HealthCheck(context.Background()))

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	assert.False(t, newRemoteTestProvider(unhealthy.URL).HealthCheck(context.Background()))
}

func TestRemoteProvider_GetAllAssociations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/associations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"fspId":"FSP1","partyType":"MSISDN","partyId":"123"}]`))
	}))
	defer server.Close()

	provider := newRemoteTestProvider(server.URL)

	associations, err := provider.GetAllAssociations(context.Background())

	assert.NoError(t, err)
	assert.Len(t, associations, 1)
	assert.Equal(t, "FSP1", associations[0].FspID)
}

func TestRemoteProvider_Init_RequiresEndpoint(t *testing.T) {
	provider := newRemoteTestProvider("")

	err := provider.Init(context.Background())

	assert.ErrorIs(t, err, models.ErrUnableToInitProvider)
}
