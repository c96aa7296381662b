package models

type OracleType string

const (
	OracleTypeBuiltin    OracleType = "builtin"
	OracleTypeRemoteHTTP OracleType = "remote-http"
)

func (t OracleType) IsValid() bool {
	return t == OracleTypeBuiltin || t == OracleTypeRemoteHTTP
}

// Oracle describes one registered routing target. Oracles are loaded from the
// registry collection at startup and are read-only afterwards; changing the
// set requires a restart.
type Oracle struct {
	ID        string     `json:"id" bson:"id"`
	Name      string     `json:"name" bson:"name"`
	Type      OracleType `json:"type" bson:"type"`
	PartyType string     `json:"partyType" bson:"party_type"`
	Currency  string     `json:"currency,omitempty" bson:"currency,omitempty"`
	Endpoint  string     `json:"endpoint,omitempty" bson:"endpoint,omitempty"`
}
