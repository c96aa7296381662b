package models

import "encoding/json"

// EventType is the closed set of inbound account-lookup event kinds. The
// party-scoped and participant-scoped families are routed identically; they
// differ only in payload field names.
type EventType string

const (
	EventGetPartyByTypeAndID                  EventType = "account-lookup.party.get"
	EventGetPartyByTypeAndIDAndSubID          EventType = "account-lookup.party.get.sub-id"
	EventAssociatePartyByTypeAndID            EventType = "account-lookup.party.associate"
	EventAssociatePartyByTypeAndIDAndSubID    EventType = "account-lookup.party.associate.sub-id"
	EventDisassociatePartyByTypeAndID         EventType = "account-lookup.party.disassociate"
	EventDisassociatePartyByTypeAndIDAndSubID EventType = "account-lookup.party.disassociate.sub-id"

	EventGetParticipantByTypeAndID                  EventType = "account-lookup.participant.get"
	EventGetParticipantByTypeAndIDAndSubID          EventType = "account-lookup.participant.get.sub-id"
	EventAssociateParticipantByTypeAndID            EventType = "account-lookup.participant.associate"
	EventAssociateParticipantByTypeAndIDAndSubID    EventType = "account-lookup.participant.associate.sub-id"
	EventDisassociateParticipantByTypeAndID         EventType = "account-lookup.participant.disassociate"
	EventDisassociateParticipantByTypeAndIDAndSubID EventType = "account-lookup.participant.disassociate.sub-id"
)

// AllEventTypes lists every inbound event type the handler dispatches on.
var AllEventTypes = []EventType{
	EventGetPartyByTypeAndID,
	EventGetPartyByTypeAndIDAndSubID,
	EventAssociatePartyByTypeAndID,
	EventAssociatePartyByTypeAndIDAndSubID,
	EventDisassociatePartyByTypeAndID,
	EventDisassociatePartyByTypeAndIDAndSubID,
	EventGetParticipantByTypeAndID,
	EventGetParticipantByTypeAndIDAndSubID,
	EventAssociateParticipantByTypeAndID,
	EventAssociateParticipantByTypeAndIDAndSubID,
	EventDisassociateParticipantByTypeAndID,
	EventDisassociateParticipantByTypeAndIDAndSubID,
}

func (t EventType) IsValid() bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EventEnvelope mirrors the bus message shape: transport metadata plus a
// typed value whose payload shape is keyed to the event type.
type EventEnvelope struct {
	Key       string            `json:"key"`
	Timestamp int64             `json:"timestamp"`
	Topic     string            `json:"topic"`
	Headers   map[string]string `json:"headers,omitempty"`
	Value     EventValue        `json:"value"`
}

type EventValue struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PartyEventPayload is the payload for party-scoped events. FspID is only
// present on associate/disassociate events.
type PartyEventPayload struct {
	PartyType  string `json:"partyType"`
	PartyID    string `json:"partyId"`
	PartySubID string `json:"partySubId,omitempty"`
	Currency   string `json:"currency,omitempty"`
	FspID      string `json:"fspId,omitempty"`
}

// ParticipantEventPayload is the payload for participant-scoped events.
type ParticipantEventPayload struct {
	ParticipantType  string `json:"participantType"`
	ParticipantID    string `json:"participantId"`
	ParticipantSubID string `json:"participantSubId,omitempty"`
	Currency         string `json:"currency,omitempty"`
	FspID            string `json:"fspId,omitempty"`
}
