package service

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaFiles maps each event type to the embedded schema describing its payload.
var schemaFiles = map[string]string{
	EventTypeCreated:   "schemas/booking.created.json",
	EventTypePencilled: "schemas/booking.transitioned.json",
	EventTypeConfirmed: "schemas/booking.transitioned.json",
	EventTypeCancelled: "schemas/booking.transitioned.json",
	EventTypeCompleted: "schemas/booking.transitioned.json",
}

// PayloadValidator guards the append-only log: every payload is checked against
// its event type's JSON Schema before the event is written, so the log never
// stores a document a replay consumer cannot decode.
type PayloadValidator struct {
	byType map[string]*jsonschema.Schema
}

// NewPayloadValidator compiles the embedded payload schemas.
func NewPayloadValidator() (*PayloadValidator, error) {
	byType := make(map[string]*jsonschema.Schema, len(schemaFiles))

	for eventType, file := range schemaFiles {
		raw, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload schema %s: %w", file, err)
		}

		key := "memory://" + file
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(key, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("register payload schema %s: %w", file, err)
		}
		compiled, err := compiler.Compile(key)
		if err != nil {
			return nil, fmt.Errorf("compile payload schema %s: %w", file, err)
		}
		byType[eventType] = compiled
	}

	return &PayloadValidator{byType: byType}, nil
}

// Validate ensures the payload matches the schema registered for the event type.
func (v *PayloadValidator) Validate(eventType string, payload []byte) error {
	compiled, ok := v.byType[eventType]
	if !ok {
		return fmt.Errorf("no payload schema for event type %q", eventType)
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := compiled.Validate(document); err != nil {
		return fmt.Errorf("payload schema validation: %w", err)
	}
	return nil
}

type createdPayload struct {
	BookingID     string    `json:"booking_id"`
	ResourceID    string    `json:"resource_id"`
	GroupID       *string   `json:"group_id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
	CreatedBy     *string   `json:"created_by,omitempty"`
}

type transitionedPayload struct {
	BookingID  string  `json:"booking_id"`
	FromStatus string  `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	Actor      *string `json:"actor,omitempty"`
	Reason     *string `json:"reason,omitempty"`
}

func (s *Service) createdEvent(b Booking) (Event, error) {
	p := createdPayload{
		BookingID:     b.ID.String(),
		ResourceID:    b.ResourceID.String(),
		StartTime:     b.Start,
		EndTime:       b.End,
		Status:        string(StatusHold),
		HoldExpiresAt: *b.HoldExpiresAt,
		CreatedBy:     b.CreatedBy,
	}
	if b.GroupID != nil {
		gid := b.GroupID.String()
		p.GroupID = &gid
	}
	return s.buildEvent(b, EventTypeCreated, p)
}

func (s *Service) transitionEvent(b Booking, target Status, actor, reason *string) (Event, error) {
	p := transitionedPayload{
		BookingID:  b.ID.String(),
		FromStatus: string(b.Status),
		ToStatus:   string(target),
		Actor:      actor,
		Reason:     reason,
	}
	return s.buildEvent(b, eventTypeFor(target), p)
}

func (s *Service) buildEvent(b Booking, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode event payload: %w", err)
	}
	if err := s.payloads.Validate(eventType, data); err != nil {
		return Event{}, err
	}
	return Event{
		AggregateID: b.ID,
		TenantID:    b.TenantID,
		Type:        eventType,
		Data:        data,
	}, nil
}
