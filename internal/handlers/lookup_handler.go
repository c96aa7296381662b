package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"account-lookup-api/internal/models"
	"account-lookup-api/internal/services"
)

// LookupHandler serves the peer lookup interface: the synchronous HTTP path
// other account-lookup deployments call instead of going through the bus.
type LookupHandler struct {
	service services.AccountLookupService
}

func NewLookupHandler(service services.AccountLookupService) *LookupHandler {
	return &LookupHandler{service: service}
}

type lookupResponse struct {
	FspID      string `json:"fspId"`
	PartyType  string `json:"partyType"`
	PartyID    string `json:"partyId"`
	PartySubID string `json:"partySubId,omitempty"`
	Currency   string `json:"currency,omitempty"`
}

// Lookup handles GET /account-lookup/:partyId/:partyType[/:partySubId].
// 200 with the resolved identifier, 404 when no FSP owns the party.
func (h *LookupHandler) Lookup(c *gin.Context) {
	partyID := c.Param("partyId")
	partyType := c.Param("partyType")
	partySubID := c.Param("partySubId")
	currency := c.Query("currency")

	var (
		fspID string
		err   error
	)
	if partySubID != "" {
		fspID, err = h.service.GetParticipantByTypeAndIDAndSubID(c.Request.Context(), partyType, partyID, partySubID, currency)
	} else {
		fspID, err = h.service.GetParticipantByTypeAndID(c.Request.Context(), partyType, partyID, currency)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if fspID == "" {
		c.Status(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, lookupResponse{
		FspID:      fspID,
		PartyType:  partyType,
		PartyID:    partyID,
		PartySubID: partySubID,
		Currency:   currency,
	})
}

// BulkLookup handles POST /account-lookup: a batch of identifiers keyed by
// caller correlation keys. The response maps every key to its resolved fspId
// or "" for not found; 404 is returned only when nothing resolved at all.
func (h *LookupHandler) BulkLookup(c *gin.Context) {
	var identifiers map[string]models.PartyIdentifier
	if err := c.ShouldBindJSON(&identifiers); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(identifiers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no identifiers provided"})
		return
	}

	results := make(map[string]string, len(identifiers))
	anyFound := false
	for key, ident := range identifiers {
		if !ident.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "identifier " + key + " is missing partyType or partyId"})
			return
		}

		var (
			fspID string
			err   error
		)
		if ident.PartySubID != "" {
			fspID, err = h.service.GetParticipantByTypeAndIDAndSubID(c.Request.Context(), ident.PartyType, ident.PartyID, ident.PartySubID, ident.Currency)
		} else {
			fspID, err = h.service.GetParticipantByTypeAndID(c.Request.Context(), ident.PartyType, ident.PartyID, ident.Currency)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		results[key] = fspID
		if fspID != "" {
			anyFound = true
		}
	}

	if !anyFound {
		c.JSON(http.StatusNotFound, results)
		return
	}
	c.JSON(http.StatusOK, results)
}
