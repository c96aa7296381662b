package models

// Association is the persisted fact that a party belongs to an FSP. At most
// one association may exist per (party_type, party_id, party_sub_id,
// currency) tuple within a single oracle's store; the builtin store backs
// this with a unique index.
type Association struct {
	FspID      string `json:"fspId" bson:"fsp_id"`
	PartyType  string `json:"partyType" bson:"party_type"`
	PartyID    string `json:"partyId" bson:"party_id"`
	PartySubID string `json:"partySubId,omitempty" bson:"party_sub_id"`
	Currency   string `json:"currency,omitempty" bson:"currency"`
}

// AssociationsPage is a windowed view over an oracle's associations, used by
// the admin reconciliation endpoint.
type AssociationsPage struct {
	Items      []Association `json:"items"`
	PageIndex  int           `json:"pageIndex"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}
