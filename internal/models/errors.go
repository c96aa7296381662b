package models

import "errors"

// Error kinds shared across the service. Components wrap these with
// fmt.Errorf("...: %w", err) and callers discriminate with errors.Is.

// Validation errors. Recovered locally, never propagated past the event
// handler.
var (
	ErrInvalidRequest      = errors.New("invalid lookup request")
	ErrInvalidEventPayload = errors.New("invalid event payload")
)

// Not-found outcomes. These are legitimate "no FSP" results, not faults.
var (
	ErrNoSuchParticipant    = errors.New("no such participant")
	ErrNoOracleForPartyType = errors.New("no oracle registered for party type")
)

// Conflict errors.
var ErrParticipantAssociationExists = errors.New("participant association already exists")

// Infrastructure errors.
var (
	ErrUnableToGetOracle               = errors.New("unable to get oracle")
	ErrNoProviderForOracle             = errors.New("no provider registered for oracle")
	ErrUnableToGetParticipant          = errors.New("unable to get participant")
	ErrUnableToAssociateParticipant    = errors.New("unable to associate participant")
	ErrUnableToDisassociateParticipant = errors.New("unable to disassociate participant")
	ErrUnableToGetAssociations         = errors.New("unable to get associations")
	ErrUnableToInitProvider            = errors.New("unable to init oracle provider")
	ErrUnableToPublishEvent            = errors.New("unable to publish event")
	ErrUnableToLookUpFspID             = errors.New("unable to look up fsp id")
	ErrUnableToBulkLookUpFspID         = errors.New("unable to bulk look up fsp ids")
)
