package models

import "strings"

// PartyIdentifier identifies the subject of a lookup. Empty PartySubID or
// Currency means "not provided". The zero value is not a valid identifier.
type PartyIdentifier struct {
	PartyType  string `json:"partyType"`
	PartyID    string `json:"partyId"`
	PartySubID string `json:"partySubId,omitempty"`
	Currency   string `json:"currency,omitempty"`
}

// LookupKey builds the deterministic composite key used for both cache
// entries and store queries. All four positions are always present so that
// ("MSISDN", "12") and ("MSISDN", "1", "2") can never collide.
func (p PartyIdentifier) LookupKey() string {
	return strings.Join([]string{p.PartyType, p.PartyID, p.PartySubID, p.Currency}, "|")
}

func (p PartyIdentifier) IsValid() bool {
	return p.PartyType != "" && p.PartyID != ""
}
