package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"account-lookup-api/internal/models"
)

// fakeLookupService stubs the aggregate for handler tests. Only the resolve
// functions are configurable; everything else returns zero values.
type fakeLookupService struct {
	get      func(ctx context.Context, partyType, partyID, currency string) (string, error)
	getSubID func(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error)
	oracles  []models.Oracle
	health   map[string]bool
	page     *models.AssociationsPage
	pageErr  error
}

func (f *fakeLookupService) Init(ctx context.Context) error    { return nil }
func (f *fakeLookupService) Destroy(ctx context.Context) error { return nil }

func (f *fakeLookupService) GetPartyByTypeAndID(ctx context.Context, partyType, partyID, currency string) (string, error) {
	return f.get(ctx, partyType, partyID, currency)
}

func (f *fakeLookupService) GetPartyByTypeAndIDAndSubID(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error) {
	return f.getSubID(ctx, partyType, partyID, partySubID, currency)
}

func (f *fakeLookupService) AssociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error {
	return nil
}

func (f *fakeLookupService) AssociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	return nil
}

func (f *fakeLookupService) DisassociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error {
	return nil
}

func (f *fakeLookupService) DisassociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error {
	return nil
}

func (f *fakeLookupService) GetParticipantByTypeAndID(ctx context.Context, participantType, participantID, currency string) (string, error) {
	return f.get(ctx, participantType, participantID, currency)
}

func (f *fakeLookupService) GetParticipantByTypeAndIDAndSubID(ctx context.Context, participantType, participantID, participantSubID, currency string) (string, error) {
	return f.getSubID(ctx, participantType, participantID, participantSubID, currency)
}

func (f *fakeLookupService) AssociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error {
	return nil
}

func (f *fakeLookupService) AssociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error {
	return nil
}

func (f *fakeLookupService) DisassociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error {
	return nil
}

func (f *fakeLookupService) DisassociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error {
	return nil
}

func (f *fakeLookupService) ListOracles(ctx context.Context) ([]models.Oracle, error) {
	return f.oracles, nil
}

func (f *fakeLookupService) OracleHealth(ctx context.Context) map[string]bool {
	return f.health
}

func (f *fakeLookupService) OracleAssociations(ctx context.Context, oracleID string, pageIndex, pageSize int) (*models.AssociationsPage, error) {
	return f.page, f.pageErr
}

func setupLookupRouter(service *fakeLookupService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewLookupHandler(service)

	router := gin.New()
	router.GET("/account-lookup/:partyId/:partyType", handler.Lookup)
	router.GET("/account-lookup/:partyId/:partyType/:partySubId", handler.Lookup)
	router.POST("/account-lookup", handler.BulkLookup)
	return router
}

func TestLookup_Resolved(t *testing.T) {
	service := &fakeLookupService{
		get: func(ctx context.Context, partyType, partyID, currency string) (string, error) {
			assert.Equal(t, "MSISDN", partyType)
			assert.Equal(t, "123456789", partyID)
			assert.Equal(t, "USD", currency)
			return "FSP1", nil
		},
	}
	router := setupLookupRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/account-lookup/123456789/MSISDN?currency=USD", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "FSP1", body["fspId"])
	assert.Equal(t, "MSISDN", body["partyType"])
}

func TestLookup_SubIDRoutesToSubIDOperation(t *testing.T) {
	called := false
	service := &fakeLookupService{
		getSubID: func(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error) {
			called = true
			assert.Equal(t, "sub-1", partySubID)
			return "FSP2", nil
		},
	}
	router := setupLookupRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/account-lookup/123456789/MSISDN/sub-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestLookup_NotFound(t *testing.T) {
	service := &fakeLookupService{
		get: func(ctx context.Context, partyType, partyID, currency string) (string, error) {
			return "", nil
		},
	}
	router := setupLookupRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/account-lookup/999/MSISDN", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLookup_InfrastructureError(t *testing.T) {
	service := &fakeLookupService{
		get: func(ctx context.Context, partyType, partyID, currency string) (string, error) {
			return "", models.ErrUnableToGetParticipant
		},
	}
	router := setupLookupRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/account-lookup/123/MSISDN", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBulkLookup_MixedResults(t *testing.T) {
	service := &fakeLookupService{
		get: func(ctx context.Context, partyType, partyID, currency string) (string, error) {
			if partyID == "123456789" {
				return "FSP1", nil
			}
			return "", nil
		},
	}
	router := setupLookupRouter(service)

	payload := `{"a":{"partyType":"MSISDN","partyId":"123456789"},"b":{"partyType":"MSISDN","partyId":"999"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account-lookup", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var results map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Equal(t, "FSP1", results["a"])
	assert.Empty(t, results["b"])
}

func TestBulkLookup_NothingResolvedIs404(t *testing.T) {
	service := &fakeLookupService{
		get: func(ctx context.Context, partyType, partyID, currency string) (string, error) {
			return "", nil
		},
	}
	router := setupLookupRouter(service)

	payload := `{"a":{"partyType":"MSISDN","partyId":"1"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account-lookup", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var results map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Empty(t, results["a"])
}

func TestBulkLookup_InvalidIdentifierIs400(t *testing.T) {
	router := setupLookupRouter(&fakeLookupService{})

	payload := `{"a":{"partyType":"","partyId":"1"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account-lookup", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkLookup_EmptyBatchIs400(t *testing.T) {
	router := setupLookupRouter(&fakeLookupService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account-lookup", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOracleHandler_ListAndHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLookupService{
		oracles: []models.Oracle{{ID: "oracle-1", Type: models.OracleTypeBuiltin, PartyType: "MSISDN"}},
		health:  map[string]bool{"oracle-1": true},
	}
	handler := NewOracleHandler(service)

	router := gin.New()
	router.GET("/oracles", handler.ListOracles)
	router.GET("/oracles/health", handler.OracleHealth)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oracles", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "oracle-1")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oracles/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOracleHandler_UnhealthyOracleIs503(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLookupService{health: map[string]bool{"oracle-1": false}}
	handler := NewOracleHandler(service)

	router := gin.New()
	router.GET("/oracles/health", handler.OracleHealth)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oracles/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOracleHandler_AssociationsUnknownOracleIs404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeLookupService{pageErr: models.ErrNoProviderForOracle}
	handler := NewOracleHandler(service)

	router := gin.New()
	router.GET("/oracles/:oracleId/associations", handler.OracleAssociations)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oracles/missing/associations", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
