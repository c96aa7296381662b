package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"account-lookup-api/internal/models"
)

// AccountLookup is the slice of the aggregate the event handler dispatches
// into. Declared here, on the consumer side, so the handler can be tested
// against a mock.
type AccountLookup interface {
	GetPartyByTypeAndID(ctx context.Context, partyType, partyID, currency string) (string, error)
	GetPartyByTypeAndIDAndSubID(ctx context.Context, partyType, partyID, partySubID, currency string) (string, error)
	AssociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error
	AssociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error
	DisassociatePartyByTypeAndID(ctx context.Context, fspID, partyType, partyID, currency string) error
	DisassociatePartyByTypeAndIDAndSubID(ctx context.Context, fspID, partyType, partyID, partySubID, currency string) error
	GetParticipantByTypeAndID(ctx context.Context, participantType, participantID, currency string) (string, error)
	GetParticipantByTypeAndIDAndSubID(ctx context.Context, participantType, participantID, participantSubID, currency string) (string, error)
	AssociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error
	AssociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error
	DisassociateParticipantByTypeAndID(ctx context.Context, fspID, participantType, participantID, currency string) error
	DisassociateParticipantByTypeAndIDAndSubID(ctx context.Context, fspID, participantType, participantID, participantSubID, currency string) error
}

// ErrorPublisher is the outbound error path; implemented by Publisher.
type ErrorPublisher interface {
	PublishLookupError(ctx context.Context, eventType models.EventType, correlationKey, errorMessage string) error
}

type dispatchFunc func(ctx context.Context, payload json.RawMessage) error

// EventHandler decouples the bus transport from the aggregate's typed method
// signatures. It performs no business logic beyond routing-by-type.
// Malformed messages are logged and dropped, never propagated; aggregate
// failures are logged as "<eventType>: <error>" and published as error
// events. The handler itself never fails the dispatch path.
type EventHandler struct {
	logger    *logrus.Logger
	service   AccountLookup
	publisher ErrorPublisher

	mu       sync.RWMutex
	dispatch map[models.EventType]dispatchFunc
}

func NewEventHandler(logger *logrus.Logger, service AccountLookup, publisher ErrorPublisher) *EventHandler {
	return &EventHandler{
		logger:    logger,
		service:   service,
		publisher: publisher,
		dispatch:  make(map[models.EventType]dispatchFunc),
	}
}

// Init registers every dispatch target exactly once. Re-init is safe: the
// table is cleared before registration.
func (h *EventHandler) Init() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dispatch = map[models.EventType]dispatchFunc{
		models.EventGetPartyByTypeAndID: h.partyDispatch(false, func(ctx context.Context, pl models.PartyEventPayload) error {
			_, err := h.service.GetPartyByTypeAndID(ctx, pl.PartyType, pl.PartyID, pl.Currency)
			return err
		}),
		models.EventGetPartyByTypeAndIDAndSubID: h.partyDispatch(false, func(ctx context.Context, pl models.PartyEventPayload) error {
			_, err := h.service.GetPartyByTypeAndIDAndSubID(ctx, pl.PartyType, pl.PartyID, pl.PartySubID, pl.Currency)
			return err
		}),
		models.EventAssociatePartyByTypeAndID: h.partyDispatch(true, func(ctx context.Context, pl models.PartyEventPayload) error {
			return h.service.AssociatePartyByTypeAndID(ctx, pl.FspID, pl.PartyType, pl.PartyID, pl.Currency)
		}),
		models.EventAssociatePartyByTypeAndIDAndSubID: h.partyDispatch(true, func(ctx context.Context, pl models.PartyEventPayload) error {
			return h.service.AssociatePartyByTypeAndIDAndSubID(ctx, pl.FspID, pl.PartyType, pl.PartyID, pl.PartySubID, pl.Currency)
		}),
		models.EventDisassociatePartyByTypeAndID: h.partyDispatch(true, func(ctx context.Context, pl models.PartyEventPayload) error {
			return h.service.DisassociatePartyByTypeAndID(ctx, pl.FspID, pl.PartyType, pl.PartyID, pl.Currency)
		}),
		models.EventDisassociatePartyByTypeAndIDAndSubID: h.partyDispatch(true, func(ctx context.Context, pl models.PartyEventPayload) error {
			return h.service.DisassociatePartyByTypeAndIDAndSubID(ctx, pl.FspID, pl.PartyType, pl.PartyID, pl.PartySubID, pl.Currency)
		}),
		models.EventGetParticipantByTypeAndID: h.participantDispatch(false, func(ctx context.Context, pl models.ParticipantEventPayload) error {
			_, err := h.service.GetParticipantByTypeAndID(ctx, pl.ParticipantType, pl.ParticipantID, pl.Currency)
			return err
		}),
		models.EventGetParticipantByTypeAndIDAndSubID: h.participantDispatch(false, func(ctx context.Context, pl models.ParticipantEventPayload) error {
			_, err := h.service.GetParticipantByTypeAndIDAndSubID(ctx, pl.ParticipantType, pl.ParticipantID, pl.ParticipantSubID, pl.Currency)
			return err
		}),
		models.EventAssociateParticipantByTypeAndID: h.participantDispatch(true, func(ctx context.Context, pl models.ParticipantEventPayload) error {
			return h.service.AssociateParticipantByTypeAndID(ctx, pl.FspID, pl.ParticipantType, pl.ParticipantID, pl.Currency)
		}),
		models.EventAssociateParticipantByTypeAndIDAndSubID: h.participantDispatch(true, func(ctx context.Context, pl models.ParticipantEventPayload) error {
			return h.service.AssociateParticipantByTypeAndIDAndSubID(ctx, pl.FspID, pl.ParticipantType, pl.ParticipantID, pl.ParticipantSubID, pl.Currency)
		}),
		models.EventDisassociateParticipantByTypeAndID: h.participantDispatch(true, func(ctx context.Context, pl models.ParticipantEventPayload) error {
			return h.service.DisassociateParticipantByTypeAndID(ctx, pl.FspID, pl.ParticipantType, pl.ParticipantID, pl.Currency)
		}),
		models.EventDisassociateParticipantByTypeAndIDAndSubID: h.participantDispatch(true, func(ctx context.Context, pl models.ParticipantEventPayload) error {
			return h.service.DisassociateParticipantByTypeAndIDAndSubID(ctx, pl.FspID, pl.ParticipantType, pl.ParticipantID, pl.ParticipantSubID, pl.Currency)
		}),
	}
}

// Destroy removes every registration, leaving zero active dispatch targets.
func (h *EventHandler) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatch = make(map[models.EventType]dispatchFunc)
}

// RegisteredEvents reports the event types currently wired to a dispatch
// target.
func (h *EventHandler) RegisteredEvents() []models.EventType {
	h.mu.RLock()
	defer h.mu.RUnlock()

	types := make([]models.EventType, 0, len(h.dispatch))
	for t := range h.dispatch {
		types = append(types, t)
	}
	return types
}

// HandleMessage consumes one raw bus message. It never fails the dispatch
// path: validation failures mean the message is unprocessable (redelivery
// cannot fix it) and are logged and dropped; aggregate failures are logged
// and published as error events.
func (h *EventHandler) HandleMessage(ctx context.Context, body []byte) {
	var envelope models.EventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Value.Type == "" {
		h.logger.Error("EventHandler: message has an invalid format or value")
		return
	}

	eventType := envelope.Value.Type
	if !eventType.IsValid() {
		h.logger.Errorf("EventHandler: message type %s is not a valid event type", eventType)
		return
	}

	h.mu.RLock()
	fn, ok := h.dispatch[eventType]
	h.mu.RUnlock()
	if !ok {
		h.logger.Errorf("EventHandler: no handler registered for event type %s", eventType)
		return
	}

	if err := fn(ctx, envelope.Value.Payload); err != nil {
		h.logger.Errorf("%s: %s", eventType, err.Error())
		if perr := h.publisher.PublishLookupError(ctx, eventType, envelope.Key, err.Error()); perr != nil {
			h.logger.WithError(perr).Error("EventHandler: failed to publish error event")
		}
	}
}

func (h *EventHandler) partyDispatch(needsFsp bool, call func(ctx context.Context, pl models.PartyEventPayload) error) dispatchFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		var pl models.PartyEventPayload
		if err := json.Unmarshal(payload, &pl); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidEventPayload, err)
		}
		if pl.PartyType == "" || pl.PartyID == "" {
			return fmt.Errorf("%w: partyType and partyId are required", models.ErrInvalidEventPayload)
		}
		if needsFsp && pl.FspID == "" {
			return fmt.Errorf("%w: fspId is required", models.ErrInvalidEventPayload)
		}
		return call(ctx, pl)
	}
}

func (h *EventHandler) participantDispatch(needsFsp bool, call func(ctx context.Context, pl models.ParticipantEventPayload) error) dispatchFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		var pl models.ParticipantEventPayload
		if err := json.Unmarshal(payload, &pl); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidEventPayload, err)
		}
		if pl.ParticipantType == "" || pl.ParticipantID == "" {
			return fmt.Errorf("%w: participantType and participantId are required", models.ErrInvalidEventPayload)
		}
		if needsFsp && pl.FspID == "" {
			return fmt.Errorf("%w: fspId is required", models.ErrInvalidEventPayload)
		}
		return call(ctx, pl)
	}
}
